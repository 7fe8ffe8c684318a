package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/budgetbuddy/internal/cli"
	"github.com/Veraticus/budgetbuddy/internal/config"
	"github.com/Veraticus/budgetbuddy/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on startup; this one only reports or applies
the schema without doing anything else.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), settings, status)
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show the current schema version without applying changes")
	return cmd
}

func runMigrate(ctx context.Context, out io.Writer, s config.Settings, statusOnly bool) error {
	store, err := storage.NewSQLiteStorage(s.Database.Path, storage.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if statusOnly {
		_, err = fmt.Fprintln(out, cli.RenderBox("Database",
			fmt.Sprintf("Path:     %s\nCurrent:  %d\nLatest:   %d", s.Database.Path, current, storage.ExpectedSchemaVersion)))
		return err
	}

	slog.Info("running database migrations", "database", s.Database.Path, "from_version", current)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database at schema version %d", storage.ExpectedSchemaVersion)))
	return err
}
