package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go-bpm/internal/common/models"
	"go-bpm/internal/config"
	"go-bpm/internal/database"
	"go-bpm/internal/features/account"
	"go-bpm/internal/features/admin"
	"go-bpm/internal/logger"
	"go-bpm/pkg/utils"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Seed creates the first admin account and prints a token for it.
func Seed(
	lc fx.Lifecycle,
	adminService admin.AdminService,
	signer *utils.TokenSigner,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				code := 0
				defer func() {
					if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				if err := seedAdmin(adminService, signer, logger); err != nil {
					logger.Error("seeding failed", zap.Error(err))
					code = 1
				}
			}()
			return nil
		},
	})
}

func seedAdmin(adminService admin.AdminService, signer *utils.TokenSigner, logger *zap.Logger) error {
	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set")
	}
	name := os.Getenv("SEED_ADMIN_NAME")
	if name == "" {
		name = "Administrator"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, created, err := adminService.BootstrapAdmin(ctx, name, email, password)
	if err != nil {
		return err
	}
	if created {
		logger.Info("admin account created", zap.String("email", a.Email))
	} else {
		logger.Info("admin account already exists", zap.String("email", a.Email))
	}

	token, err := signer.GenerateToken(models.ActorAdmin, a.ID.Hex())
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewDBLogWriter,
			logger.NewLogger,
			utils.NewTokenSigner,
			account.NewBusinessRepository,
			account.NewEmployeeRepository,
			account.NewAdminRepository,
			account.NewSupportRepository,
			admin.NewAdminService,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
