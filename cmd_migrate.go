package main

import (
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-storefront/internal/config"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/minishop-storefront/internal/pkg/logging"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back the PostgreSQL schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(postgres.Up), string(postgres.Down)},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := postgres.Up
		if len(args) == 1 {
			dir = postgres.Direction(args[0])
		}

		cfg, err := config.Read(configPath, envFile)
		if err != nil {
			return err
		}
		if cfg.Postgres.DSN == "" {
			return errors.New("migrate: postgres dsn is required (STOREFRONT_POSTGRES_DSN)")
		}

		zl, err := logging.NewLogger(logging.Options{Service: cfg.Service, Env: cfg.Env, Level: cfg.Log.Level})
		if err != nil {
			return err
		}
		defer func() { _ = zl.Sync() }()

		if err := postgres.Migrate(cfg.Postgres.DSN, dir, zaplogger.New(zl)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrations applied: %s\n", dir)
		return nil
	},
}
