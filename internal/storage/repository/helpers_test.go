package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/easytomanagexyz/admin-backend/internal/migrations"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateTenant создает тестового тенанта и возвращает его ID
func (f *TestDataFactory) CreateTenant(t *testing.T, name, email, plan, country string) string {
	id := uuid.NewString()
	_, err := f.storage.DB.Exec(`INSERT INTO tenants
		(id, name, email, restaurant_id, db_name, db_user, db_password, plan, country)
		VALUES ($1, $2, $3, $4, 'db', 'user', 'pass', $5, NULLIF($6, ''))`,
		id, name, email, "r-"+id[:8], plan, country)
	require.NoError(t, err)
	return id
}

// CreateSubscription создает тестовую подписку
func (f *TestDataFactory) CreateSubscription(t *testing.T, tenantID, status string, createdAt time.Time) string {
	id := uuid.NewString()
	_, err := f.storage.DB.Exec(`INSERT INTO subscriptions (id, tenant_id, status, created_at)
		VALUES ($1, $2, $3, $4)`, id, tenantID, status, createdAt)
	require.NoError(t, err)
	return id
}

// CreateTransaction создает тестовую транзакцию
func (f *TestDataFactory) CreateTransaction(t *testing.T, tenantID string, cents int64, createdAt time.Time) {
	_, err := f.storage.DB.Exec(`INSERT INTO transactions (id, tenant_id, amount_cents, created_at)
		VALUES ($1, $2, $3, $4)`, uuid.NewString(), tenantID, cents, createdAt)
	require.NoError(t, err)
}

// countRows возвращает число строк таблицы, удовлетворяющих условию по tenant_id
func countRows(t *testing.T, s *Storage, query, arg string) int {
	var n int
	require.NoError(t, s.DB.QueryRow(query, arg).Scan(&n))
	return n
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("master"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn, 5)
	require.NoError(t, err)

	path, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(slog.New(slog.NewTextHandler(io.Discard, nil)), storage.DB, path))
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	t.Cleanup(func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return storage
}
