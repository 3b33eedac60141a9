package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"foldervault/internal/config"
	"foldervault/internal/repository/postgres"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the metadata schema",
		Long: `Manage the metadata schema.

Postgres runs the embedded SQL migrations. SQLite creates or extends its
tables in place and cannot be migrated down. serve migrates up on start.`,
	}

	cmd.AddCommand(newMigrateUpCommand())
	cmd.AddCommand(newMigrateDownCommand())

	return cmd
}

func newMigrateUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger, logCloser := config.NewLogger(cfg.Log)
			defer logCloser.Close()

			switch cfg.Metadata.Driver {
			case "postgres":
				return postgres.Migrate(cfg.Metadata.Postgres.URL, cfg.Metadata.Postgres.TablePrefix, logger)
			case "sqlite":
				db, err := openSQLite(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer db.Close()
				return db.Migrate(cmd.Context())
			default:
				return fmt.Errorf("metadata driver %q has no schema", cfg.Metadata.Driver)
			}
		},
	}
}

func newMigrateDownCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back every postgres migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger, logCloser := config.NewLogger(cfg.Log)
			defer logCloser.Close()

			if cfg.Metadata.Driver != "postgres" {
				return errors.New("migrate down is only supported for the postgres metadata driver")
			}
			return postgres.MigrateDown(cfg.Metadata.Postgres.URL, cfg.Metadata.Postgres.TablePrefix, logger)
		},
	}
}
