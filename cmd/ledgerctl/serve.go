package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/ledgerforge/kernel/internal/bootstrap"
	"github.com/ledgerforge/kernel/internal/config"
	"github.com/ledgerforge/kernel/internal/metrics"
	"github.com/ledgerforge/kernel/internal/platform/migrations"
	"github.com/ledgerforge/kernel/internal/storage"
	"github.com/ledgerforge/kernel/internal/storage/memory"
	"github.com/ledgerforge/kernel/internal/storage/postgres"
	"github.com/ledgerforge/kernel/internal/trace"
	"github.com/ledgerforge/kernel/internal/trace/httptrace"
	"github.com/ledgerforge/kernel/pkg/logger"
)

// handleServe bootstraps the registries and coordinator from config and
// runs the trace/metrics HTTP surfaces until SIGINT/SIGTERM: flag-over-env-
// over-config-file DSN resolution, conditional migration, signal.Notify-
// driven graceful shutdown.
func handleServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", ":8090", "HTTP address for the trace and metrics surfaces")
	dsn := fs.String("dsn", "", "Postgres DSN (overrides DATABASE_URL and the config file)")
	packPath := fs.String("config-pack", "", "path to the YAML config pack (overrides KERNEL_CONFIG_PACK)")
	migrate := fs.Bool("migrate", true, "apply pending migrations before serving (Postgres only)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *dsn != "" {
		cfg.DatabaseURL = *dsn
	}
	if *packPath != "" {
		cfg.ConfigPackPath = *packPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})

	var pack *config.Pack
	if cfg.ConfigPackPath != "" {
		pack, err = config.LoadPack(cfg.ConfigPackPath)
		if err != nil {
			return fmt.Errorf("load config pack: %w", err)
		}
		log.Infof("loaded config pack from %s (%d policies, %d ledger roles, %d import mappings)",
			cfg.ConfigPackPath, len(pack.Policies), len(pack.LedgerRoles), len(pack.ImportMappings))
	}

	store, closeStore, err := openStore(ctx, cfg, *migrate, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStore()

	regs, coord, err := bootstrap.Assemble(pack, store, time.Now())
	if err != nil {
		return fmt.Errorf("assemble registries: %w", err)
	}
	for _, name := range []string{"gl", "ap", "ar", "inventory", "cash"} {
		log.Infof("module %s: %d selectable policies", name, len(regs.Modules.ListByModule(name)))
	}

	if pg, ok := store.(*postgres.Store); ok {
		coord.RunInTx = pg.WithTx
	}

	// ledgerctl serve exposes trace and metrics over HTTP today, not
	// ingestion; internal/ingestion's ImportService/PromotionService,
	// bootstrap.ImportMappingLookup, and bootstrap.BuildPromoters wire the
	// same coordinator for embedders and tests without a ledgerctl-level
	// command fronting them yet.
	traceSelector := trace.New(store)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", httptrace.NewRouter(traceSelector))

	server := &http.Server{Addr: *addr, Handler: mux}
	serveErr := make(chan error, 1)
	go func() {
		log.Infof("ledgerctl listening on %s", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
		log.Infof("ledgerctl shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore resolves the storage backend: Postgres when DatabaseURL is
// set (applying migrations first through a raw *sql.DB opened
// separately, since postgres.Open wraps its own sqlx connection and
// exposes no raw *sql.DB to run migrations against), otherwise an
// in-memory store for local runs and tests.
func openStore(ctx context.Context, cfg *config.Config, migrate bool, log *logger.Logger) (storage.Store, func(), error) {
	noop := func() {}
	if cfg.DatabaseURL == "" {
		log.Infof("no DATABASE_URL set, using in-memory storage")
		return memory.New(), noop, nil
	}

	if migrate {
		rawDB, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("open raw connection for migrations: %w", err)
		}
		migCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		migErr := migrations.Apply(migCtx, rawDB)
		cancel()
		closeErr := rawDB.Close()
		if migErr != nil {
			return nil, noop, fmt.Errorf("apply migrations: %w", migErr)
		}
		if closeErr != nil {
			log.Warnf("close migration connection: %v", closeErr)
		}
		log.Infof("migrations applied")
	}

	store, err := postgres.Open(cfg.DatabaseURL, cfg.DBMaxConnections)
	if err != nil {
		return nil, noop, fmt.Errorf("open postgres store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}
