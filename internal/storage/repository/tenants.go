package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/easytomanagexyz/admin-backend/internal/models"
)

var tenantColumns = []string{
	"id", "name", "email", "restaurant_id", "db_name", "db_user", "db_password",
	"use_redis", "plan",
	"COALESCE(country, '')", "COALESCE(city, '')", "COALESCE(state, '')", "COALESCE(phone, '')",
	"created_at",
}

// tenantUpdatable — колонки, которые администратор может менять.
var tenantUpdatable = map[string]bool{
	"name":      true,
	"email":     true,
	"plan":      true,
	"country":   true,
	"city":      true,
	"state":     true,
	"phone":     true,
	"use_redis": true,
}

func scanTenant(row interface{ Scan(dest ...any) error }) (*models.Tenant, error) {
	var t models.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Email, &t.RestaurantID, &t.DBName, &t.DBUser, &t.DBPassword,
		&t.UseRedis, &t.Plan, &t.Country, &t.City, &t.State, &t.Phone, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Subscriptions = []models.Subscription{}
	return &t, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// escapeLike экранирует спецсимволы шаблона LIKE.
func escapeLike(v string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
}

func applyTenantFilter(sb *sqlbuilder.SelectBuilder, f models.TenantFilter) {
	if f.PosType != "" {
		sb.Where(sb.Equal("plan", f.PosType))
	}
	if f.Query != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Query)) + "%"
		sb.Where(sb.Or(
			sb.Like("LOWER(name)", pattern),
			sb.Like("LOWER(email)", pattern),
		))
	}
}

// CreateTenant регистрирует тенанта.
func (s *Storage) CreateTenant(ctx context.Context, t models.Tenant) (*models.Tenant, error) {
	const op = "storage.CreateTenant"
	if err := ctxDone(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	t.ID = uuid.NewString()
	query := `INSERT INTO tenants (id, name, email, restaurant_id, db_name, db_user, db_password,
			      use_redis, plan, country, city, state, phone)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			  RETURNING created_at`
	if err := s.DB.QueryRowContext(ctx, query,
		t.ID, t.Name, t.Email, t.RestaurantID, t.DBName, t.DBUser, t.DBPassword,
		t.UseRedis, t.Plan, nullIfEmpty(t.Country), nullIfEmpty(t.City), nullIfEmpty(t.State),
		nullIfEmpty(t.Phone)).Scan(&t.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	t.Subscriptions = []models.Subscription{}
	return &t, nil
}

// GetTenantByID возвращает тенанта вместе с подписками.
func (s *Storage) GetTenantByID(ctx context.Context, id string) (*models.Tenant, error) {
	const op = "storage.GetTenantByID"
	t, err := getTenantBy(ctx, s.DB, "id", id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// GetTenantByEmail возвращает тенанта по email.
func (s *Storage) GetTenantByEmail(ctx context.Context, email string) (*models.Tenant, error) {
	const op = "storage.GetTenantByEmail"
	t, err := getTenantBy(ctx, s.DB, "email", email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// GetTenantByRestaurantID возвращает тенанта по идентификатору ресторана.
func (s *Storage) GetTenantByRestaurantID(ctx context.Context, restaurantID string) (*models.Tenant, error) {
	const op = "storage.GetTenantByRestaurantID"
	t, err := getTenantBy(ctx, s.DB, "restaurant_id", restaurantID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func getTenantBy(ctx context.Context, q queryer, column, value string) (*models.Tenant, error) {
	if err := ctxDone(ctx); err != nil {
		return nil, err
	}
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(tenantColumns...).From("tenants").Where(sb.Equal(column, value))
	query, args := sb.Build()

	t, err := scanTenant(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	tenants := []models.Tenant{*t}
	if err = attachSubscriptions(ctx, q, tenants); err != nil {
		return nil, err
	}
	return &tenants[0], nil
}

// ListTenants возвращает страницу тенантов (новые первыми) и общее число совпадений.
func (s *Storage) ListTenants(ctx context.Context, f models.TenantFilter) ([]models.Tenant, int, error) {
	const op = "storage.ListTenants"
	if err := ctxDone(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	cb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	cb.Select("COUNT(*)").From("tenants")
	applyTenantFilter(cb, f)
	countQuery, countArgs := cb.Build()

	var total int
	if err := s.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(tenantColumns...).From("tenants")
	applyTenantFilter(sb, f)
	sb.OrderBy("created_at").Desc().Limit(f.Limit).Offset((f.Page - 1) * f.Limit)
	query, args := sb.Build()

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	tenants := []models.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		tenants = append(tenants, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = attachSubscriptions(ctx, s.DB, tenants); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return tenants, total, nil
}

// UpdateTenant применяет изменения тенанта и, если передано, его подписки в одной транзакции.
// Без SubscriptionID меняется самая ранняя подписка; если подписок нет, меняется только тенант.
func (s *Storage) UpdateTenant(ctx context.Context, id string, changes models.TenantChanges) (*models.Tenant, error) {
	const op = "storage.UpdateTenant"
	if err := ctxDone(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cols := make([]string, 0, len(changes.Fields))
	for col := range changes.Fields {
		if !tenantUpdatable[col] {
			return nil, fmt.Errorf("%s: column %q is not updatable", op, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var updated *models.Tenant
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if len(cols) > 0 {
			ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
			ub.Update("tenants")
			assignments := make([]string, 0, len(cols))
			for _, col := range cols {
				assignments = append(assignments, ub.Assign(col, changes.Fields[col]))
			}
			ub.Set(assignments...).Where(ub.Equal("id", id))
			query, args := ub.Build()

			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return mapError(err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrNotFound
			}
		} else {
			var one int
			if err := tx.QueryRowContext(ctx, `SELECT 1 FROM tenants WHERE id = $1`, id).Scan(&one); err != nil {
				return mapError(err)
			}
		}

		if patch := changes.Subscription; patch != nil && (patch.Status != nil || patch.ExpiresAt != nil) {
			if err := patchSubscription(ctx, tx, id, changes.SubscriptionID, *patch); err != nil {
				return err
			}
		}

		t, err := getTenantBy(ctx, tx, "id", id)
		if err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func patchSubscription(ctx context.Context, tx *sql.Tx, tenantID, subscriptionID string, patch models.SubscriptionPatch) error {
	if subscriptionID == "" {
		err := tx.QueryRowContext(ctx, `SELECT id FROM subscriptions
			  WHERE tenant_id = $1
			  ORDER BY created_at ASC, id ASC
			  LIMIT 1`, tenantID).Scan(&subscriptionID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("subscriptions")
	var assignments []string
	if patch.Status != nil {
		assignments = append(assignments, ub.Assign("status", *patch.Status))
	}
	if patch.ExpiresAt != nil {
		assignments = append(assignments, ub.Assign("expires_at", *patch.ExpiresAt))
	}
	ub.Set(assignments...).Where(ub.Equal("id", subscriptionID), ub.Equal("tenant_id", tenantID))
	query, args := ub.Build()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("subscription %s: %w", subscriptionID, ErrNotFound)
	}
	return nil
}

// DeleteTenant удаляет подписки тенанта и самого тенанта в одной транзакции.
func (s *Storage) DeleteTenant(ctx context.Context, id string) error {
	const op = "storage.DeleteTenant"
	if err := ctxDone(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id = $1`, id); err != nil {
			return mapError(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
		if err != nil {
			return mapError(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// attachSubscriptions загружает подписки для всех тенантов одним запросом.
func attachSubscriptions(ctx context.Context, q queryer, tenants []models.Tenant) error {
	if len(tenants) == 0 {
		return nil
	}
	ids := make([]any, len(tenants))
	index := make(map[string]int, len(tenants))
	for i := range tenants {
		ids[i] = tenants[i].ID
		index[tenants[i].ID] = i
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "status", "expires_at", "created_at").
		From("subscriptions").
		Where(sb.In("tenant_id", ids...)).
		OrderBy("tenant_id", "created_at").Asc()
	query, args := sb.Build()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var (
			sub       models.Subscription
			expiresAt sql.NullTime
		)
		if err = rows.Scan(&sub.ID, &sub.TenantID, &sub.Status, &expiresAt, &sub.CreatedAt); err != nil {
			return err
		}
		sub.ExpiresAt = nullTime(expiresAt)
		if i, ok := index[sub.TenantID]; ok {
			tenants[i].Subscriptions = append(tenants[i].Subscriptions, sub)
		}
	}
	return rows.Err()
}
