// Command migrate manages the ledger schema outside the server process.
//
//	migrate up        apply all pending migrations
//	migrate down      roll back every migration
//	migrate steps N   apply N migrations (negative N rolls back)
//	migrate version   print the current schema version
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"tokobuku/backend/internal/config"
	"tokobuku/backend/internal/logger"
	"tokobuku/backend/internal/store/sqlstore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate up|down|steps N|version")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	dialect, err := sqlstore.ParseDialect(cfg.DB.Driver)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := sqlstore.Open(ctx, sqlstore.Options{
		Dialect:        dialect,
		DSN:            cfg.DB.DSN,
		MaxOpenConns:   1,
		SkipMigrations: true,
	}, log)
	if err != nil {
		return err
	}
	m, err := st.Migrator()
	if err != nil {
		_ = st.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("closing migrator", zap.Error(err))
		}
	}()

	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps":
		if len(args) < 2 {
			return fmt.Errorf("steps requires a count")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n == 0 {
			return fmt.Errorf("invalid step count %q", args[1])
		}
		return m.Steps(n)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d dirty=%t\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
