// Команда seed создаёт администратора по умолчанию и стартовые тарифные планы.
// Повторный запуск ничего не меняет.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/easytomanagexyz/admin-backend/internal/cache"
	"github.com/easytomanagexyz/admin-backend/internal/config"
	"github.com/easytomanagexyz/admin-backend/internal/events"
	"github.com/easytomanagexyz/admin-backend/internal/lib/password"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
	"github.com/easytomanagexyz/admin-backend/internal/migrations"
	"github.com/easytomanagexyz/admin-backend/internal/models"
	"github.com/easytomanagexyz/admin-backend/internal/secrets"
	planservice "github.com/easytomanagexyz/admin-backend/internal/services/plan"
	"github.com/easytomanagexyz/admin-backend/internal/storage/repository"
)

const (
	defaultAdminEmail    = "admin@easytomanage.xyz"
	defaultAdminPassword = "admin123"
)

type starterPlan struct {
	name        string
	price       float64
	description string
}

var starterPlans = []starterPlan{
	{name: "Starter", price: 0, description: "Free starter plan"},
	{name: "Pro", price: 499, description: "Business plan"},
	{name: "Enterprise", price: 1999, description: "Enterprise plan"},
}

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("seed failed", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("seed finished")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dsn, err := secrets.ResolveDatabaseURL(ctx, logger, cfg.Database)
	if err != nil {
		return err
	}
	storage, err := repository.New(ctx, dsn, cfg.Database.MaxOpenConns)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.Close()
	}()

	if err = migrations.Run(logger, storage.DB, cfg.Database.MigrationsPath); err != nil {
		return err
	}

	hash, err := password.Hash(defaultAdminPassword)
	if err != nil {
		return err
	}
	created, err := storage.CreateAdminIfMissing(ctx, models.AdminUser{
		Email:        defaultAdminEmail,
		PasswordHash: hash,
		Name:         "EasyToManage Admin",
		Role:         "superadmin",
	})
	if err != nil {
		return err
	}
	if created {
		logger.Info("created default admin", slog.String("email", defaultAdminEmail))
	} else {
		logger.Info("admin already exists", slog.String("email", defaultAdminEmail))
	}

	plans := planservice.NewService(logger, storage, cache.Noop{}, events.Noop{}, 0)
	for _, p := range starterPlans {
		price := p.price
		plan, err := plans.Create(ctx, models.CreatePlanRequest{
			Name:        p.name,
			Price:       &price,
			PosType:     models.PosRestaurant,
			Description: p.description,
		})
		if errors.Is(err, repository.ErrAlreadyExists) {
			logger.Info("plan exists", slog.String("name", p.name))
			continue
		}
		if err != nil {
			return err
		}
		logger.Info("created plan", slog.String("slug", plan.Slug))
	}
	return nil
}
