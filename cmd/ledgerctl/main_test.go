package main

import (
	"context"
	"testing"

	"github.com/ledgerforge/kernel/internal/config"
	"github.com/ledgerforge/kernel/internal/storage/memory"
	"github.com/ledgerforge/kernel/pkg/logger"
)

func TestRunWithNoArgsReturnsUsageError(t *testing.T) {
	if err := run(context.Background(), nil); err == nil {
		t.Fatalf("expected an error when no command is given")
	}
}

func TestRunWithUnknownCommandReturnsError(t *testing.T) {
	if err := run(context.Background(), []string{"bogus"}); err == nil {
		t.Fatalf("expected an error for an unrecognized command")
	}
}

func TestOpenStoreDefaultsToMemoryWhenNoDatabaseURL(t *testing.T) {
	cfg := &config.Config{}
	log := logger.New(logger.LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
	store, closeFn, err := openStore(context.Background(), cfg, false, log)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer closeFn()
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected an in-memory store when DatabaseURL is empty, got %T", store)
	}
}

func TestHandleTraceRequiresEventOrJournalEntryFlag(t *testing.T) {
	err := handleTrace(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected an error when neither -event nor -journal-entry is given")
	}
}

func TestRunHelpSucceeds(t *testing.T) {
	if err := run(context.Background(), []string{"help"}); err != nil {
		t.Fatalf("expected help to succeed, got %v", err)
	}
	if err := run(context.Background(), []string{"-h"}); err != nil {
		t.Fatalf("expected -h to succeed, got %v", err)
	}
	if err := run(context.Background(), []string{"--help"}); err != nil {
		t.Fatalf("expected --help to succeed, got %v", err)
	}
}
