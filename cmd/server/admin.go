package main

import (
	"errors"
	"fmt"
	"os"

	"farmfi-backend/internal/auth"
	"farmfi-backend/internal/config"
	"farmfi-backend/internal/db"
	"farmfi-backend/internal/logging"
	"farmfi-backend/internal/models"
	"farmfi-backend/internal/repositories"
	"farmfi-backend/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// createAdminCmd bootstraps the first administrator. Later admins are
// created the same way; there is no HTTP route for it.
func createAdminCmd() *cobra.Command {
	var req models.CreateStaffRequest
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("ADMIN_PASSWORD")
			}
			if req.Password == "" {
				return errors.New("--password or ADMIN_PASSWORD is required")
			}

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

			staffRepo := repositories.NewStaffRepository(pool)
			locationRepo := repositories.NewLocationRepository(pool)
			authService := services.NewAuthService(
				repositories.NewFarmerRepository(pool), staffRepo, locationRepo,
				repositories.NewLoginLogRepository(pool), services.NewTOTPService(staffRepo),
				auth.NewJWTManager(cfg), log)

			admin, err := authService.CreateAdmin(cmd.Context(), &req)
			if err != nil {
				return err
			}
			log.Info("admin created", zap.Int("id", admin.ID), zap.String("username", admin.Username))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "admin", "login name")
	cmd.Flags().StringVar(&req.Name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (defaults to $ADMIN_PASSWORD)")
	return cmd
}
