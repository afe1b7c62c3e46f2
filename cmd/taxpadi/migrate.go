package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taxpadi/taxpadi/internal/config"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version. Safe to
run repeatedly; already-applied migrations are skipped.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.Info("Running database migrations", "database", cfg.DatabasePath)

	store, cleanup, err := getStorage(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("Database migrations completed")
	return nil
}
