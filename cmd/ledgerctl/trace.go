package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/config"
	"github.com/ledgerforge/kernel/internal/trace"
	"github.com/ledgerforge/kernel/pkg/logger"
)

// handleTrace renders one event's or journal entry's decision bundle
// directly against storage: the same narrative renderer the HTTP
// surface's ?format=text branch uses, here driving a plain stdout CLI
// instead of an HTTP response.
func handleTrace(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trace", flag.ContinueOnError)
	dsn := fs.String("dsn", "", "Postgres DSN (overrides DATABASE_URL and the config file)")
	eventID := fs.String("event", "", "event id to trace")
	journalEntryID := fs.String("journal-entry", "", "journal entry id to trace")
	format := fs.String("format", "text", "output format: text | json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventID == "" && *journalEntryID == "" {
		return fmt.Errorf("trace: one of -event or -journal-entry is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *dsn != "" {
		cfg.DatabaseURL = *dsn
	}

	log := logger.New(logger.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})
	store, closeStore, err := openStore(ctx, cfg, false, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStore()

	selector := trace.New(store)

	var bundle trace.Bundle
	if *eventID != "" {
		id, err := uuid.Parse(*eventID)
		if err != nil {
			return fmt.Errorf("invalid -event id: %w", err)
		}
		bundle, err = selector.TraceByEventID(ctx, id)
		if err != nil {
			return fmt.Errorf("trace event: %w", err)
		}
	} else {
		id, err := uuid.Parse(*journalEntryID)
		if err != nil {
			return fmt.Errorf("invalid -journal-entry id: %w", err)
		}
		bundle, err = selector.TraceByJournalEntryID(ctx, id)
		if err != nil {
			return fmt.Errorf("trace journal entry: %w", err)
		}
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	default:
		fmt.Println(trace.RenderNarrative(bundle))
		return nil
	}
}
