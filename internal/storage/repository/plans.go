package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/easytomanagexyz/admin-backend/internal/models"
)

var planColumns = []string{
	"id", "slug", "name", "description", "currency",
	"monthly_price::float8", "yearly_price::float8",
	"pos_type", "billing_cycle", "active",
	"transaction_limit", "user_limit", "storage_limit",
	"support_level", "created_at", "updated_at",
}

// planUpdatable — колонки, которые разрешено менять частичным обновлением.
var planUpdatable = map[string]bool{
	"slug":              true,
	"name":              true,
	"description":       true,
	"currency":          true,
	"monthly_price":     true,
	"yearly_price":      true,
	"billing_cycle":     true,
	"active":            true,
	"transaction_limit": true,
	"user_limit":        true,
	"storage_limit":     true,
	"support_level":     true,
}

func scanPlan(row interface{ Scan(dest ...any) error }) (*models.Plan, error) {
	var (
		p                        models.Plan
		yearly                   sql.NullFloat64
		txLimit, uLimit, stLimit sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Currency,
		&p.MonthlyPrice, &yearly, &p.PosType, &p.BillingCycle, &p.Active,
		&txLimit, &uLimit, &stLimit, &p.SupportLevel, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.YearlyPrice = nullFloat(yearly)
	p.TransactionLimit = nullInt(txLimit)
	p.UserLimit = nullInt(uLimit)
	p.StorageLimit = nullInt(stLimit)
	p.Features = []models.Feature{}
	return &p, nil
}

// ListPlans возвращает активные планы (опционально одного сегмента POS)
// вместе с возможностями, по возрастанию цены.
func (s *Storage) ListPlans(ctx context.Context, posType string) ([]models.Plan, error) {
	const op = "storage.ListPlans"
	if err := ctxDone(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(planColumns...).From("plans").Where(sb.Equal("active", true))
	if posType != "" {
		sb.Where(sb.Equal("pos_type", posType))
	}
	sb.OrderBy("monthly_price", "name").Asc()
	query, args := sb.Build()

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	plans := []models.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		plans = append(plans, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = attachFeatures(ctx, s.DB, plans); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plans, nil
}

// GetPlan возвращает план с возможностями.
func (s *Storage) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	const op = "storage.GetPlan"
	p, err := getPlan(ctx, s.DB, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func getPlan(ctx context.Context, q queryer, id string) (*models.Plan, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(planColumns...).From("plans").Where(sb.Equal("id", id))
	query, args := sb.Build()

	p, err := scanPlan(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	plans := []models.Plan{*p}
	if err = attachFeatures(ctx, q, plans); err != nil {
		return nil, err
	}
	return &plans[0], nil
}

// CreatePlan сохраняет план и его возможности в одной транзакции.
func (s *Storage) CreatePlan(ctx context.Context, plan models.Plan, features []models.FeatureInput) (*models.Plan, error) {
	const op = "storage.CreatePlan"
	if err := ctxDone(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	plan.ID = uuid.NewString()
	var created *models.Plan
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("plans").
			Cols("id", "slug", "name", "description", "currency", "monthly_price", "yearly_price",
				"pos_type", "billing_cycle", "active", "transaction_limit", "user_limit",
				"storage_limit", "support_level").
			Values(plan.ID, plan.Slug, plan.Name, plan.Description, plan.Currency, plan.MonthlyPrice,
				plan.YearlyPrice, plan.PosType, plan.BillingCycle, plan.Active, plan.TransactionLimit,
				plan.UserLimit, plan.StorageLimit, plan.SupportLevel)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return mapError(err)
		}
		if err := insertFeatures(ctx, tx, plan.ID, features); err != nil {
			return mapError(err)
		}
		p, err := getPlan(ctx, tx, plan.ID)
		if err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// UpdatePlan применяет частичное обновление; если передан список возможностей,
// он полностью заменяет текущий. Всё выполняется в одной транзакции.
func (s *Storage) UpdatePlan(ctx context.Context, id string, changes models.PlanChanges) (*models.Plan, error) {
	const op = "storage.UpdatePlan"
	if err := ctxDone(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cols := make([]string, 0, len(changes.Fields))
	for col := range changes.Fields {
		if !planUpdatable[col] {
			return nil, fmt.Errorf("%s: column %q is not updatable", op, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var updated *models.Plan
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		ub.Update("plans")
		assignments := make([]string, 0, len(cols)+1)
		for _, col := range cols {
			assignments = append(assignments, ub.Assign(col, changes.Fields[col]))
		}
		assignments = append(assignments, ub.Assign("updated_at", time.Now().UTC()))
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

		if changes.Features != nil {
			if _, err = tx.ExecContext(ctx, `DELETE FROM plan_features WHERE plan_id = $1`, id); err != nil {
				return err
			}
			if err = insertFeatures(ctx, tx, id, *changes.Features); err != nil {
				return mapError(err)
			}
		}

		p, err := getPlan(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// DeletePlan удаляет план; возможности удаляются каскадно.
func (s *Storage) DeletePlan(ctx context.Context, id string) error {
	const op = "storage.DeletePlan"
	res, err := s.DB.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func insertFeatures(ctx context.Context, tx *sql.Tx, planID string, features []models.FeatureInput) error {
	if len(features) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("plan_features").Cols("id", "plan_id", "name", "description", "position")
	for i, f := range features {
		ib.Values(uuid.NewString(), planID, f.Name, f.Description, i)
	}
	query, args := ib.Build()
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// attachFeatures загружает возможности для всех планов одним запросом.
func attachFeatures(ctx context.Context, q queryer, plans []models.Plan) error {
	if len(plans) == 0 {
		return nil
	}
	ids := make([]any, len(plans))
	index := make(map[string]int, len(plans))
	for i := range plans {
		ids[i] = plans[i].ID
		index[plans[i].ID] = i
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "plan_id", "name", "description").
		From("plan_features").
		Where(sb.In("plan_id", ids...)).
		OrderBy("plan_id", "position").Asc()
	query, args := sb.Build()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var f models.Feature
		if err = rows.Scan(&f.ID, &f.PlanID, &f.Name, &f.Description); err != nil {
			return err
		}
		if i, ok := index[f.PlanID]; ok {
			plans[i].Features = append(plans[i].Features, f)
		}
	}
	return rows.Err()
}
