// Package plan содержит бизнес-логику тарифных планов: список с кэшированием,
// создание с расчётом годовой цены, частичное обновление, клонирование
// в другой сегмент POS и удаление.
package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easytomanagexyz/admin-backend/internal/cache"
	"github.com/easytomanagexyz/admin-backend/internal/events"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
	"github.com/easytomanagexyz/admin-backend/internal/lib/slug"
	"github.com/easytomanagexyz/admin-backend/internal/models"
)

// Ошибки валидации планов.
var (
	ErrInvalidPosType      = errors.New("invalid posType")
	ErrInvalidBillingCycle = errors.New("invalid billingCycle")
	ErrPosTypeImmutable    = errors.New("posType cannot be changed")
	ErrNameRequired        = errors.New("name is required")
	ErrPriceRequired       = errors.New("price is required")
	ErrNegativePrice       = errors.New("price must not be negative")
)

// DefaultCurrency — валюта плана по умолчанию.
const DefaultCurrency = "INR"

// Repository описывает контракт хранилища планов.
type Repository interface {
	ListPlans(ctx context.Context, posType string) ([]models.Plan, error)
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	CreatePlan(ctx context.Context, plan models.Plan, features []models.FeatureInput) (*models.Plan, error)
	UpdatePlan(ctx context.Context, id string, changes models.PlanChanges) (*models.Plan, error)
	DeletePlan(ctx context.Context, id string) error
}

// Cache описывает кэш ответов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// Publisher публикует доменные события.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Service реализует операции над тарифными планами.
type Service struct {
	log       *slog.Logger
	repo      Repository
	cache     Cache
	publisher Publisher
	listTTL   time.Duration
}

// NewService создаёт сервис планов.
func NewService(log *slog.Logger, repo Repository, c Cache, p Publisher, listTTL time.Duration) *Service {
	return &Service{log: log, repo: repo, cache: c, publisher: p, listTTL: listTTL}
}

// YearlyPrice рассчитывает годовую цену по цене и периоду оплаты.
// Для бессрочного плана годовой цены нет.
func YearlyPrice(price float64, billingCycle string) (*float64, error) {
	var yearly float64
	switch billingCycle {
	case models.BillingMonthly, models.BillingYearly:
		yearly = price * 12
	case models.BillingQuarterly:
		yearly = price * 4
	case models.BillingLifetime:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidBillingCycle, billingCycle)
	}
	return &yearly, nil
}

func listKey(posType string) string {
	return cache.Key(cache.PrefixPlans, "list", posType)
}

// List возвращает активные планы, при необходимости только одного сегмента.
func (s *Service) List(ctx context.Context, posType string) ([]models.Plan, error) {
	const op = "plan.List"

	key := listKey(posType)
	var cached []models.Plan
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("plans cache read failed", slog.String("op", op), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	plans, err := s.repo.ListPlans(ctx, posType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.cache.Set(ctx, key, plans, s.listTTL); err != nil {
		s.log.Warn("plans cache write failed", slog.String("op", op), sl.Err(err))
	}
	return plans, nil
}

// Get возвращает план с возможностями.
func (s *Service) Get(ctx context.Context, id string) (*models.Plan, error) {
	const op = "plan.Get"
	p, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Create создаёт план; slug строится из сегмента и названия.
func (s *Service) Create(ctx context.Context, req models.CreatePlanRequest) (*models.Plan, error) {
	const op = "plan.Create"

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !models.IsPosType(req.PosType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPosType, req.PosType)
	}
	if req.Price == nil {
		return nil, ErrPriceRequired
	}
	if *req.Price < 0 {
		return nil, ErrNegativePrice
	}
	cycle := req.BillingCycle
	if cycle == "" {
		cycle = models.BillingMonthly
	}
	yearly, err := YearlyPrice(*req.Price, cycle)
	if err != nil {
		return nil, err
	}

	p := models.Plan{
		Slug:             slug.Plan(req.PosType, name),
		Name:             name,
		Description:      req.Description,
		Currency:         req.Currency,
		MonthlyPrice:     *req.Price,
		YearlyPrice:      yearly,
		PosType:          req.PosType,
		BillingCycle:     cycle,
		Active:           true,
		TransactionLimit: req.TransactionLimit,
		UserLimit:        req.UserLimit,
		StorageLimit:     req.StorageLimit,
		SupportLevel:     req.SupportLevel,
	}
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	created, err := s.repo.CreatePlan(ctx, p, cleanFeatures(req.Features))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.afterChange(ctx, events.PlanCreated, created)
	return created, nil
}

// Update применяет только переданные поля. Смена цены или периода пересчитывает
// годовую цену, смена названия пересчитывает slug. Сегмент POS менять нельзя.
func (s *Service) Update(ctx context.Context, id string, req models.UpdatePlanRequest) (*models.Plan, error) {
	const op = "plan.Update"

	current, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if req.PosType != nil && *req.PosType != current.PosType {
		return nil, ErrPosTypeImmutable
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		fields["name"] = name
		fields["slug"] = slug.Plan(current.PosType, name)
	}
	if req.Price != nil && *req.Price < 0 {
		return nil, ErrNegativePrice
	}
	if req.Price != nil || req.BillingCycle != nil {
		price, cycle := current.MonthlyPrice, current.BillingCycle
		if req.Price != nil {
			price = *req.Price
			fields["monthly_price"] = price
		}
		if req.BillingCycle != nil {
			cycle = *req.BillingCycle
			fields["billing_cycle"] = cycle
		}
		yearly, err := YearlyPrice(price, cycle)
		if err != nil {
			return nil, err
		}
		fields["yearly_price"] = yearly
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Currency != nil {
		fields["currency"] = *req.Currency
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}
	if req.TransactionLimit != nil {
		fields["transaction_limit"] = *req.TransactionLimit
	}
	if req.UserLimit != nil {
		fields["user_limit"] = *req.UserLimit
	}
	if req.StorageLimit != nil {
		fields["storage_limit"] = *req.StorageLimit
	}
	if req.SupportLevel != nil {
		fields["support_level"] = *req.SupportLevel
	}

	changes := models.PlanChanges{Fields: fields}
	if req.Features != nil {
		features := cleanFeatures(*req.Features)
		changes.Features = &features
	}

	updated, err := s.repo.UpdatePlan(ctx, id, changes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.afterChange(ctx, events.PlanUpdated, updated)
	return updated, nil
}

// Clone копирует план со всеми возможностями в сегмент targetPosType.
func (s *Service) Clone(ctx context.Context, id, targetPosType string) (*models.Plan, error) {
	const op = "plan.Clone"

	if !models.IsPosType(targetPosType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPosType, targetPosType)
	}
	src, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	clone := *src
	clone.ID = ""
	clone.PosType = targetPosType
	clone.Slug = slug.Plan(targetPosType, src.Name)
	clone.Features = nil

	features := make([]models.FeatureInput, 0, len(src.Features))
	for _, f := range src.Features {
		features = append(features, models.FeatureInput{Name: f.Name, Description: f.Description})
	}

	created, err := s.repo.CreatePlan(ctx, clone, features)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.afterChange(ctx, events.PlanCreated, created)
	return created, nil
}

// Delete удаляет план.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "plan.Delete"
	if err := s.repo.DeletePlan(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.afterChange(ctx, events.PlanDeleted, map[string]string{"id": id})
	return nil
}

// afterChange сбрасывает кэш списков и публикует событие. Ошибки только логируются.
func (s *Service) afterChange(ctx context.Context, routingKey string, payload any) {
	if err := s.cache.InvalidatePrefix(ctx, cache.PrefixPlans+":"); err != nil {
		s.log.Warn("plans cache invalidation failed", sl.Err(err))
	}
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		s.log.Warn("failed to publish plan event", slog.String("routing_key", routingKey), sl.Err(err))
	}
}

// cleanFeatures отбрасывает возможности с пустым названием.
func cleanFeatures(in []models.FeatureInput) []models.FeatureInput {
	out := make([]models.FeatureInput, 0, len(in))
	for _, f := range in {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		out = append(out, models.FeatureInput{Name: name, Description: strings.TrimSpace(f.Description)})
	}
	return out
}
