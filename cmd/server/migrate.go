package main

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/ltdat/flashstock/internal/config"
)

func newMigrateCommand(logger pslog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.AddCommand(
		newMigrateDirection(logger, "up", "Apply all pending migrations", (*migrate.Migrate).Up),
		newMigrateDirection(logger, "down", "Roll back one migration", func(m *migrate.Migrate) error {
			return m.Steps(-1)
		}),
	)
	return cmd
}

func newMigrateDirection(logger pslog.Logger, use, short string, run func(*migrate.Migrate) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return err
			}

			m, err := migrate.New("file://"+cfg.MigrationsDir, "mysql://"+cfg.MySQLDSN)
			if err != nil {
				return fmt.Errorf("open migrations: %w", err)
			}
			defer m.Close()

			if err := run(m); err != nil {
				if errors.Is(err, migrate.ErrNoChange) {
					logger.Info("migrate.nochange")
					return nil
				}
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			logger.Info("migrate.done", "direction", use)
			return nil
		},
	}
}
