package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easytomanagexyz/admin-backend/internal/models"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return &Storage{DB: db}, mock
}

var (
	adminRowCols  = []string{"id", "email", "password", "name", "role", "last_login", "created_at"}
	planRowCols   = []string{"id", "slug", "name", "description", "currency", "monthly_price", "yearly_price", "pos_type", "billing_cycle", "active", "transaction_limit", "user_limit", "storage_limit", "support_level", "created_at", "updated_at"}
	featureCols   = []string{"id", "plan_id", "name", "description"}
	tenantRowCols = []string{"id", "name", "email", "restaurant_id", "db_name", "db_user", "db_password", "use_redis", "plan", "country", "city", "state", "phone", "created_at"}
	subRowCols    = []string{"id", "tenant_id", "status", "expires_at", "created_at"}
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "tenants_email_key"}, ErrAlreadyExists},
		{"foreign key", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, ErrReferenced},
		{"malformed uuid", &pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation, Message: `invalid input syntax for type uuid: "abc"`}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.in), tt.want)
		})
	}

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
	assert.NoError(t, mapError(nil))
}

func TestStorage_GetAdminByEmail(t *testing.T) {
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM admin_users WHERE email = $1`)).
			WithArgs("admin@easytomanage.xyz").
			WillReturnRows(sqlmock.NewRows(adminRowCols).
				AddRow("a1", "admin@easytomanage.xyz", "$2a$10$hash", "Super Admin", "superadmin", nil, now))

		got, err := s.GetAdminByEmail(context.Background(), "admin@easytomanage.xyz")
		require.NoError(t, err)
		assert.Equal(t, "a1", got.ID)
		assert.Equal(t, "$2a$10$hash", got.PasswordHash)
		assert.Nil(t, got.LastLogin)
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM admin_users WHERE email = $1`)).
			WithArgs("nobody@x.io").
			WillReturnError(sql.ErrNoRows)

		_, err := s.GetAdminByEmail(context.Background(), "nobody@x.io")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStorage_UpdateAdminPassword_NotFound(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE admin_users SET password = $1 WHERE id = $2`)).
		WithArgs("newhash", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateAdminPassword(context.Background(), "missing", "newhash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_CreateAdminIfMissing_Existing(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectQuery(`INSERT INTO admin_users .* ON CONFLICT \(email\) DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	created, err := s.CreateAdminIfMissing(context.Background(), models.AdminUser{Email: "admin@easytomanage.xyz"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestStorage_CreatePlan(t *testing.T) {
	now := time.Now()
	yearly := 1200.0

	t.Run("plan and features in one transaction", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO plans`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO plan_features`).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectQuery(`FROM plans WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows(planRowCols).
				AddRow("p1", "restaurant-pro", "Pro", "", "INR", 100.0, yearly, "restaurant", "yearly", true, nil, 5, nil, "email", now, now))
		mock.ExpectQuery(`FROM plan_features WHERE plan_id IN`).
			WillReturnRows(sqlmock.NewRows(featureCols).
				AddRow("f1", "p1", "Unlimited orders", "").
				AddRow("f2", "p1", "KDS", "Kitchen display"))
		mock.ExpectCommit()

		got, err := s.CreatePlan(context.Background(), models.Plan{
			Slug: "restaurant-pro", Name: "Pro", Currency: "INR", MonthlyPrice: 100,
			YearlyPrice: &yearly, PosType: "restaurant", BillingCycle: "yearly", Active: true,
		}, []models.FeatureInput{{Name: "Unlimited orders"}, {Name: "KDS", Description: "Kitchen display"}})
		require.NoError(t, err)

		assert.Equal(t, "restaurant-pro", got.Slug)
		require.NotNil(t, got.YearlyPrice)
		assert.InDelta(t, 1200.0, *got.YearlyPrice, 0.001)
		require.NotNil(t, got.UserLimit)
		assert.Equal(t, 5, *got.UserLimit)
		assert.Nil(t, got.TransactionLimit)
		require.Len(t, got.Features, 2)
		assert.Equal(t, "KDS", got.Features[1].Name)
	})

	t.Run("duplicate slug rolls back", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO plans`).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "plans_slug_key"})
		mock.ExpectRollback()

		_, err := s.CreatePlan(context.Background(), models.Plan{Slug: "restaurant-pro"}, nil)
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestStorage_UpdatePlan(t *testing.T) {
	now := time.Now()

	t.Run("replaces features", func(t *testing.T) {
		s, mock := newMockStorage(t)
		features := []models.FeatureInput{{Name: "Reports"}}

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE plans SET name = $1, slug = $2, updated_at = $3 WHERE id = $4`)).
			WithArgs("Growth", "restaurant-growth", sqlmock.AnyArg(), "p1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM plan_features WHERE plan_id = $1`)).
			WithArgs("p1").
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`INSERT INTO plan_features`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM plans WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows(planRowCols).
				AddRow("p1", "restaurant-growth", "Growth", "", "INR", 10.0, 120.0, "restaurant", "monthly", true, nil, nil, nil, "", now, now))
		mock.ExpectQuery(`FROM plan_features`).
			WillReturnRows(sqlmock.NewRows(featureCols).AddRow("f9", "p1", "Reports", ""))
		mock.ExpectCommit()

		got, err := s.UpdatePlan(context.Background(), "p1", models.PlanChanges{
			Fields:   map[string]any{"name": "Growth", "slug": "restaurant-growth"},
			Features: &features,
		})
		require.NoError(t, err)
		assert.Equal(t, "Growth", got.Name)
		require.Len(t, got.Features, 1)
	})

	t.Run("missing plan", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE plans SET`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := s.UpdatePlan(context.Background(), "nope", models.PlanChanges{Fields: map[string]any{"active": false}})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown column", func(t *testing.T) {
		s, _ := newMockStorage(t)
		_, err := s.UpdatePlan(context.Background(), "p1", models.PlanChanges{Fields: map[string]any{"pos_type": "artist"}})
		assert.Error(t, err)
	})
}

func TestStorage_DeletePlan(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "deleted",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM plans`).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "missing",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM plans`).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: ErrNotFound,
		},
		{
			name: "referenced",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM plans`).WithArgs("p1").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})
			},
			wantErr: ErrReferenced,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			tt.setup(mock)

			err := s.DeletePlan(context.Background(), "p1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStorage_ListTenants(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tenants WHERE plan = \$1 AND .*LOWER\(name\) LIKE .*LOWER\(email\) LIKE`).
		WithArgs("restaurant", "%joe\\_s%", "%joe\\_s%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))
	mock.ExpectQuery(`FROM tenants WHERE plan = .* ORDER BY created_at DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows(tenantRowCols).
			AddRow("t1", "Joe_s Diner", "joe@diner.in", "r1", "db1", "u1", "secret", false, "restaurant", "IN", "Pune", "MH", "", now))
	mock.ExpectQuery(`FROM subscriptions WHERE tenant_id IN`).
		WillReturnRows(sqlmock.NewRows(subRowCols).AddRow("s1", "t1", "active", nil, now))

	got, total, err := s.ListTenants(context.Background(), models.TenantFilter{
		PosType: "restaurant", Query: "JOE_S", Page: 3, Limit: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 41, total)
	require.Len(t, got, 1)
	assert.Equal(t, "IN", got[0].Country)
	require.Len(t, got[0].Subscriptions, 1)
	assert.Equal(t, "active", got[0].Subscriptions[0].Status)
}

func TestStorage_UpdateTenant_FirstSubscription(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Now()
	status := models.StatusPastDue

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tenants SET name = $1 WHERE id = $2`)).
		WithArgs("New Name", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id FROM subscriptions`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s-oldest"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE subscriptions SET status = $1 WHERE id = $2 AND tenant_id = $3`)).
		WithArgs(models.StatusPastDue, "s-oldest", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM tenants WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(tenantRowCols).
			AddRow("t1", "New Name", "a@b.io", "r1", "db1", "u1", "secret", false, "restaurant", "", "", "", "", now))
	mock.ExpectQuery(`FROM subscriptions WHERE tenant_id IN`).
		WillReturnRows(sqlmock.NewRows(subRowCols).AddRow("s-oldest", "t1", "past_due", nil, now))
	mock.ExpectCommit()

	got, err := s.UpdateTenant(context.Background(), "t1", models.TenantChanges{
		Fields:       map[string]any{"name": "New Name"},
		Subscription: &models.SubscriptionPatch{Status: &status},
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, "past_due", got.Subscriptions[0].Status)
}

func TestStorage_UpdateTenant_NoSubscriptions(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Now()
	status := models.StatusActive

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM tenants WHERE id = $1`)).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectQuery(`SELECT id FROM subscriptions`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`FROM tenants WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(tenantRowCols).
			AddRow("t1", "Name", "a@b.io", "r1", "db1", "u1", "secret", false, "", "", "", "", "", now))
	mock.ExpectQuery(`FROM subscriptions WHERE tenant_id IN`).
		WillReturnRows(sqlmock.NewRows(subRowCols))
	mock.ExpectCommit()

	got, err := s.UpdateTenant(context.Background(), "t1", models.TenantChanges{
		Subscription: &models.SubscriptionPatch{Status: &status},
	})
	require.NoError(t, err)
	assert.Empty(t, got.Subscriptions)
}

func TestStorage_DeleteTenant(t *testing.T) {
	t.Run("removes subscriptions then tenant", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM subscriptions WHERE tenant_id = $1`)).
			WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tenants WHERE id = $1`)).
			WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, s.DeleteTenant(context.Background(), "t1"))
	})

	t.Run("missing tenant rolls back", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM subscriptions`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM tenants`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, s.DeleteTenant(context.Background(), "t1"), ErrNotFound)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM subscriptions`).WithArgs("abc").
			WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})
		mock.ExpectRollback()

		assert.ErrorIs(t, s.DeleteTenant(context.Background(), "abc"), ErrNotFound)
	})
}

func TestStorage_MalformedIDIsNotFound(t *testing.T) {
	badUUID := &pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation, Message: `invalid input syntax for type uuid: "abc"`}

	t.Run("plan", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`FROM plans WHERE id = \$1`).WithArgs("abc").WillReturnError(badUUID)

		_, err := s.GetPlan(context.Background(), "abc")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("tenant", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`FROM tenants`).WithArgs("abc").WillReturnError(badUUID)

		_, err := s.GetTenantByID(context.Background(), "abc")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("plan delete", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectExec(`DELETE FROM plans`).WithArgs("abc").WillReturnError(badUUID)

		assert.ErrorIs(t, s.DeletePlan(context.Background(), "abc"), ErrNotFound)
	})
}

func TestStorage_CreateTenant_Duplicate(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectQuery(`INSERT INTO tenants`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "tenants_email_key"})

	_, err := s.CreateTenant(context.Background(), models.Tenant{Email: "dup@x.io"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestStorage_Analytics(t *testing.T) {
	s, mock := newMockStorage(t)
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	mock.ExpectQuery(`FROM transactions WHERE created_at >= \$1 AND created_at < \$2`).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(15000)))
	mock.ExpectQuery(`GROUP BY COALESCE\(country, ''\)`).
		WillReturnRows(sqlmock.NewRows([]string{"country", "count"}).AddRow("IN", 3).AddRow("", 1))
	mock.ExpectQuery(`JOIN tenants t ON t.id = tr.tenant_id`).
		WithArgs("IN").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(0)))

	cents, err := s.SumTransactionsBetween(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), cents)

	groups, err := s.GroupTenantsByCountry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.CountryCount{{Country: "IN", Users: 3}, {Country: "", Users: 1}}, groups)

	cents, err = s.SumTransactionsByCountry(context.Background(), "IN")
	require.NoError(t, err)
	assert.Zero(t, cents)
}

func TestProvider_OpensOnce(t *testing.T) {
	var opened int32
	shared := &Storage{}
	p := &Provider{dsn: "postgres://x", open: func(_ context.Context, _ string, _ int) (*Storage, error) {
		atomic.AddInt32(&opened, 1)
		return shared, nil
	}}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.Get(context.Background())
			assert.NoError(t, err)
			assert.Same(t, shared, got)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&opened))
}

func TestProvider_RemembersError(t *testing.T) {
	calls := 0
	p := &Provider{open: func(_ context.Context, _ string, _ int) (*Storage, error) {
		calls++
		return nil, errors.New("connection refused")
	}}

	_, err := p.Get(context.Background())
	require.Error(t, err)
	_, err = p.Get(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, p.Close())
}
