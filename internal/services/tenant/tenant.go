// Package tenant содержит бизнес-логику работы с тенантами: админский список
// с фильтрами и пагинацией, изменение и удаление, а также регистрацию
// и поиск тенантов для клиентских продуктов.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easytomanagexyz/admin-backend/internal/events"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
	"github.com/easytomanagexyz/admin-backend/internal/models"
	"github.com/easytomanagexyz/admin-backend/internal/monitoring"
)

// Параметры пагинации.
const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// Ошибки валидации.
var (
	ErrInvalidStatus = errors.New("invalid subscriptionStatus")
	ErrInvalidExpiry = errors.New("invalid expiryDate")
	ErrMissingFields = errors.New("missing required fields")
	ErrEmptyField    = errors.New("field must not be empty")
)

// Repository описывает контракт хранилища тенантов.
type Repository interface {
	CreateTenant(ctx context.Context, t models.Tenant) (*models.Tenant, error)
	GetTenantByID(ctx context.Context, id string) (*models.Tenant, error)
	GetTenantByEmail(ctx context.Context, email string) (*models.Tenant, error)
	GetTenantByRestaurantID(ctx context.Context, restaurantID string) (*models.Tenant, error)
	ListTenants(ctx context.Context, f models.TenantFilter) ([]models.Tenant, int, error)
	UpdateTenant(ctx context.Context, id string, changes models.TenantChanges) (*models.Tenant, error)
	DeleteTenant(ctx context.Context, id string) error
}

// Publisher публикует доменные события.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Service реализует операции над тенантами.
type Service struct {
	log       *slog.Logger
	repo      Repository
	publisher Publisher
}

// NewService создаёт сервис тенантов.
func NewService(log *slog.Logger, repo Repository, p Publisher) *Service {
	return &Service{log: log, repo: repo, publisher: p}
}

// NormalizeFilter приводит параметры пагинации к допустимым значениям.
func NormalizeFilter(f models.TenantFilter) models.TenantFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	f.Query = strings.TrimSpace(f.Query)
	return f
}

// List возвращает страницу тенантов с подписками.
func (s *Service) List(ctx context.Context, f models.TenantFilter) (*models.TenantPage, error) {
	const op = "tenant.List"
	f = NormalizeFilter(f)

	tenants, total, err := s.repo.ListTenants(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.TenantPage{
		Data: tenants,
		Meta: models.PageMeta{Total: total, Page: f.Page, Limit: f.Limit},
	}, nil
}

// Get возвращает тенанта с подписками.
func (s *Service) Get(ctx context.Context, id string) (*models.Tenant, error) {
	const op = "tenant.Get"
	t, err := s.repo.GetTenantByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// ParseExpiry разбирает дату окончания подписки в формате RFC 3339 или YYYY-MM-DD.
func ParseExpiry(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidExpiry, v)
}

// Update применяет переданные поля тенанта и, если указаны статус или дата
// окончания, изменения подписки.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateTenantRequest) (*models.Tenant, error) {
	const op = "tenant.Update"

	fields := map[string]any{}
	setString := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	setString("name", req.Name)
	setString("email", req.Email)
	setString("plan", req.Plan)
	setString("country", req.Country)
	setString("city", req.City)
	setString("state", req.State)
	setString("phone", req.Phone)
	for _, col := range []string{"name", "email"} {
		if v, ok := fields[col]; ok && v == "" {
			return nil, fmt.Errorf("%w: %s", ErrEmptyField, col)
		}
	}
	if req.UseRedis != nil {
		fields["use_redis"] = *req.UseRedis
	}

	changes := models.TenantChanges{Fields: fields}
	if req.SubscriptionStatus != nil || req.ExpiryDate != nil {
		patch := &models.SubscriptionPatch{}
		if req.SubscriptionStatus != nil {
			if !models.IsSubscriptionStatus(*req.SubscriptionStatus) {
				return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.SubscriptionStatus)
			}
			patch.Status = req.SubscriptionStatus
		}
		if req.ExpiryDate != nil {
			expires, err := ParseExpiry(*req.ExpiryDate)
			if err != nil {
				return nil, err
			}
			patch.ExpiresAt = &expires
		}
		changes.Subscription = patch
		if req.SubscriptionID != nil {
			changes.SubscriptionID = strings.TrimSpace(*req.SubscriptionID)
		}
	}

	updated, err := s.repo.UpdateTenant(ctx, id, changes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, events.TenantUpdated, eventPayload(updated))
	return updated, nil
}

// Delete удаляет тенанта вместе с подписками.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "tenant.Delete"
	if err := s.repo.DeleteTenant(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, events.TenantDeleted, map[string]string{"id": id})
	return nil
}

// Create регистрирует тенанта при подписке клиента.
func (s *Service) Create(ctx context.Context, req models.TenantSignupRequest) (*models.Tenant, error) {
	const op = "tenant.Create"

	t := models.Tenant{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		RestaurantID: strings.TrimSpace(req.RestaurantID),
		DBName:       strings.TrimSpace(req.DBName),
		DBUser:       strings.TrimSpace(req.DBUser),
		DBPassword:   req.DBPassword,
		UseRedis:     req.UseRedis,
		Plan:         strings.TrimSpace(req.Plan),
		Country:      strings.TrimSpace(req.Country),
		City:         strings.TrimSpace(req.City),
		State:        strings.TrimSpace(req.State),
		Phone:        strings.TrimSpace(req.Phone),
	}
	if t.Name == "" || t.Email == "" || t.RestaurantID == "" || t.DBName == "" || t.DBUser == "" || t.DBPassword == "" {
		return nil, ErrMissingFields
	}

	created, err := s.repo.CreateTenant(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	monitoring.TenantsRegistered.Inc()
	s.publish(ctx, events.TenantCreated, eventPayload(created))
	return created, nil
}

// FindByEmail ищет тенанта по email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.Tenant, error) {
	const op = "tenant.FindByEmail"
	t, err := s.repo.GetTenantByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// FindByRestaurantID возвращает данные подключения к базе тенанта.
func (s *Service) FindByRestaurantID(ctx context.Context, restaurantID string) (*models.TenantConnection, error) {
	const op = "tenant.FindByRestaurantID"
	t, err := s.repo.GetTenantByRestaurantID(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	conn := t.Connection()
	return &conn, nil
}

func (s *Service) publish(ctx context.Context, routingKey string, payload any) {
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		s.log.Warn("failed to publish tenant event", slog.String("routing_key", routingKey), sl.Err(err))
	}
}

// eventPayload — данные тенанта для события, без учётных данных базы.
func eventPayload(t *models.Tenant) map[string]string {
	return map[string]string{
		"id":           t.ID,
		"restaurantId": t.RestaurantID,
		"email":        t.Email,
		"plan":         t.Plan,
	}
}
