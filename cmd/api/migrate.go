package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres"
)

// NewMigrateCmd creates the migrate subcommand and its up, down and version children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("migrations applied")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			RunE: withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("migrations reverted")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Printf("version=%d dirty=%t\n", v, dirty)
				return nil
			}),
		},
	)
	return cmd
}

func withMigrator(fn func(*cobra.Command, *postgres.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) (err error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return oops.Code("CONFIG_INVALID").Wrap(err)
		}
		if cfg.Storage.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("database url is required (DATABASE_URL or --database-url)")
		}
		m, err := postgres.NewMigrator(cfg.Storage.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := m.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(cmd, m)
	}
}

// migrateUp applies pending migrations before the server opens its pool.
func migrateUp(databaseURL string, logger *slog.Logger) (err error) {
	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := m.Up(); err != nil {
		return err
	}
	v, _, err := m.Version()
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "version", v)
	return nil
}
