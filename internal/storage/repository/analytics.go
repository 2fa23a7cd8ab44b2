package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/easytomanagexyz/admin-backend/internal/models"
)

// CountTenants возвращает общее число тенантов.
func (s *Storage) CountTenants(ctx context.Context) (int, error) {
	const op = "storage.CountTenants"
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// CountTenantsByPlan возвращает число тенантов с указанной категорией POS.
func (s *Storage) CountTenantsByPlan(ctx context.Context, plan string) (int, error) {
	const op = "storage.CountTenantsByPlan"
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants WHERE plan = $1`, plan).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// CountSubscriptionsByStatus возвращает число подписок в статусе status.
func (s *Storage) CountSubscriptionsByStatus(ctx context.Context, status string) (int, error) {
	const op = "storage.CountSubscriptionsByStatus"
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions WHERE status = $1`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// SumTransactions возвращает сумму всех транзакций в центах.
func (s *Storage) SumTransactions(ctx context.Context) (int64, error) {
	const op = "storage.SumTransactions"
	var cents int64
	if err := s.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM transactions`).Scan(&cents); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return cents, nil
}

// SumTransactionsSince возвращает сумму транзакций с момента from (включительно) в центах.
func (s *Storage) SumTransactionsSince(ctx context.Context, from time.Time) (int64, error) {
	const op = "storage.SumTransactionsSince"
	var cents int64
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE created_at >= $1`, from).Scan(&cents); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return cents, nil
}

// SumTransactionsBetween возвращает сумму транзакций в полуинтервале [from, to) в центах.
func (s *Storage) SumTransactionsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	const op = "storage.SumTransactionsBetween"
	var cents int64
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE created_at >= $1 AND created_at < $2`,
		from, to).Scan(&cents); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return cents, nil
}

// GroupTenantsByCountry считает тенантов по странам. Тенанты без страны
// попадают в группу с пустым названием.
func (s *Storage) GroupTenantsByCountry(ctx context.Context) ([]models.CountryCount, error) {
	const op = "storage.GroupTenantsByCountry"

	rows, err := s.DB.QueryContext(ctx, `SELECT COALESCE(country, '') AS country, COUNT(*)
			  FROM tenants
			  GROUP BY COALESCE(country, '')
			  ORDER BY COUNT(*) DESC, country ASC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.CountryCount{}
	for rows.Next() {
		var c models.CountryCount
		if err = rows.Scan(&c.Country, &c.Users); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SumTransactionsByCountry возвращает сумму транзакций тенантов страны в центах.
func (s *Storage) SumTransactionsByCountry(ctx context.Context, country string) (int64, error) {
	const op = "storage.SumTransactionsByCountry"
	var cents int64
	if err := s.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(tr.amount_cents), 0)
			  FROM transactions tr
			  JOIN tenants t ON t.id = tr.tenant_id
			  WHERE COALESCE(t.country, '') = $1`, country).Scan(&cents); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return cents, nil
}
