package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odiabackend099/callwaiting/internal/config"
	"github.com/odiabackend099/callwaiting/internal/repository/postgres"
	"github.com/odiabackend099/callwaiting/migrations"
)

// migrate works on the local database from the server's environment, not through the API
func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the metering database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(ctx context.Context, db *sql.DB, driver string) error {
				applied, err := postgres.RunMigrations(ctx, db, driver, migrations.GetFS())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(ctx context.Context, db *sql.DB, driver string) error {
				if err := postgres.RollbackMigration(ctx, db, driver, migrations.GetFS()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Rolled back one migration")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(ctx context.Context, db *sql.DB, driver string) error {
				v, err := postgres.MigrationVersion(ctx, db, driver, migrations.GetFS())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d\n", v)
				return nil
			})
		},
	})

	return cmd
}

func withDatabase(fn func(ctx context.Context, db *sql.DB, driver string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Database.Driver == "memory" {
		return fmt.Errorf("DB_DRIVER=memory has no schema to migrate")
	}

	db, err := postgres.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(context.Background(), db, cfg.Database.Driver)
}
