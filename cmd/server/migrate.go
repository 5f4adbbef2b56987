package main

import (
	"context"
	"fmt"

	"farmfi-backend/internal/config"
	"farmfi-backend/internal/database"
	"farmfi-backend/internal/db"
	"farmfi-backend/internal/logging"
	"farmfi-backend/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logging.New(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			pool, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			return runMigrations(cmd.Context(), pool, log)
		},
	}
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) error {
	migrator := database.NewMigratorWithFS(pool, migrations.FS, ".", log)
	if err := migrator.RunMigrations(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
