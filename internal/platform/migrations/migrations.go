// Package migrations embeds the kernel's schema and trigger SQL and
// applies it in lexical order, one ExecContext call per file.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Apply executes all embedded SQL migration files in lexical order. Each
// file uses IF NOT EXISTS / OR REPLACE guards so re-application is safe.
func Apply(ctx context.Context, db *sql.DB) error {
	entries, err := files.ReadDir(".")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".sql") && name != "99_drop_all.sql" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		sqlBytes, err := files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// DropAll executes 99_drop_all.sql, removing every trigger and trigger
// function this package installs; tables and their data are kept.
func DropAll(ctx context.Context, db *sql.DB) error {
	sqlBytes, err := files.ReadFile("99_drop_all.sql")
	if err != nil {
		return fmt.Errorf("read drop migration: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("apply drop migration: %w", err)
	}
	return nil
}

// AllTriggerNames is the full set of immutability and balance-enforcement
// trigger names this package installs. migrations_test.go checks the list
// is non-empty and free of duplicates; whether each trigger exists in a
// live database is not checked by any test here.
var AllTriggerNames = []string{
	"trg_journal_entry_immutability_update",
	"trg_journal_entry_immutability_delete",
	"trg_journal_line_immutability_update",
	"trg_journal_line_immutability_delete",
	"trg_journal_line_no_insert_posted",
	"trg_audit_event_immutability_update",
	"trg_audit_event_immutability_delete",
	"trg_event_immutability_update",
	"trg_event_immutability_delete",
	"trg_journal_entry_balance_check",
}
