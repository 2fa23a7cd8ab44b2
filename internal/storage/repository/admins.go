package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/easytomanagexyz/admin-backend/internal/models"
)

const adminColumns = `id, email, password, name, role, last_login, created_at`

func scanAdmin(row interface{ Scan(dest ...any) error }) (*models.AdminUser, error) {
	var (
		a         models.AdminUser
		lastLogin sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Role, &lastLogin, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.LastLogin = nullTime(lastLogin)
	return &a, nil
}

// GetAdminByEmail возвращает администратора по email.
func (s *Storage) GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	const op = "storage.GetAdminByEmail"
	if err := ctxDone(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE email = $1`, email)
	a, err := scanAdmin(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return a, nil
}

// GetAdminByID возвращает администратора по ID.
func (s *Storage) GetAdminByID(ctx context.Context, id string) (*models.AdminUser, error) {
	const op = "storage.GetAdminByID"
	if err := ctxDone(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE id = $1`, id)
	a, err := scanAdmin(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return a, nil
}

// UpdateAdminLastLogin фиксирует время последнего входа.
func (s *Storage) UpdateAdminLastLogin(ctx context.Context, id string, at time.Time) error {
	const op = "storage.UpdateAdminLastLogin"
	if _, err := s.DB.ExecContext(ctx, `UPDATE admin_users SET last_login = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateAdminPassword сохраняет новый bcrypt-хэш пароля.
func (s *Storage) UpdateAdminPassword(ctx context.Context, id, passwordHash string) error {
	const op = "storage.UpdateAdminPassword"
	res, err := s.DB.ExecContext(ctx, `UPDATE admin_users SET password = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
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

// CreateAdminIfMissing создаёт администратора, если email ещё не занят.
// Возвращает true, если запись была создана.
func (s *Storage) CreateAdminIfMissing(ctx context.Context, admin models.AdminUser) (bool, error) {
	const op = "storage.CreateAdminIfMissing"

	var id string
	err := s.DB.QueryRowContext(ctx, `INSERT INTO admin_users (id, email, password, name, role)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (email) DO NOTHING
			  RETURNING id`,
		uuid.NewString(), admin.Email, admin.PasswordHash, admin.Name, admin.Role).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}
