// Package auth содержит бизнес-логику аутентификации администраторов:
// вход по email и паролю, выпуск JWT и смену пароля.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easytomanagexyz/admin-backend/internal/lib/jwt"
	"github.com/easytomanagexyz/admin-backend/internal/lib/password"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
	"github.com/easytomanagexyz/admin-backend/internal/models"
	"github.com/easytomanagexyz/admin-backend/internal/storage/repository"
)

// Ошибки аутентификации.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrWeakPassword       = errors.New("new password must be at least 8 characters")
)

// MinPasswordLength — минимальная длина нового пароля.
const MinPasswordLength = 8

// AdminRepository описывает контракт для работы с администраторами в базе данных.
type AdminRepository interface {
	GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	GetAdminByID(ctx context.Context, id string) (*models.AdminUser, error)
	UpdateAdminLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateAdminPassword(ctx context.Context, id, passwordHash string) error
}

// LoginResult — результат успешного входа.
type LoginResult struct {
	Token string
	Admin models.AdminUser
}

// Service отвечает за вход администраторов и валидацию JWT.
type Service struct {
	log      *slog.Logger
	admins   AdminRepository
	jwtMaker jwt.Maker
	now      func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(log *slog.Logger, admins AdminRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		log:      log,
		admins:   admins,
		jwtMaker: jwtMaker,
		now:      time.Now,
	}
}

// Login проверяет пароль администратора, выпускает токен и фиксирует время входа.
// Отсутствующий администратор и неверный пароль неразличимы для вызывающего.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*LoginResult, error) {
	const op = "auth.Login"
	log := s.log.With(slog.String("op", op))

	email = strings.TrimSpace(email)
	admin, err := s.admins.GetAdminByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		log.Info("admin not found", slog.String("email", email))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = password.Compare(admin.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			log.Info("wrong password", slog.String("admin_id", admin.ID))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.jwtMaker.GenerateToken(admin.ID, admin.Email, admin.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	if err = s.admins.UpdateAdminLastLogin(ctx, admin.ID, now); err != nil {
		log.Warn("failed to record last login", sl.Err(err))
	} else {
		admin.LastLogin = &now
	}

	admin.PasswordHash = ""
	return &LoginResult{Token: token, Admin: *admin}, nil
}

// ChangePassword меняет пароль администратора после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, adminID, current, next string) error {
	const op = "auth.ChangePassword"

	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}

	admin, err := s.admins.GetAdminByID(ctx, adminID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = password.Compare(admin.PasswordHash, current); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return ErrWrongPassword
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.Hash(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = s.admins.UpdateAdminPassword(ctx, adminID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("admin password changed", slog.String("op", op), slog.String("admin_id", adminID))
	return nil
}

// ParseToken проверяет подпись и срок действия токена.
func (s *Service) ParseToken(token string) (*jwt.Claims, error) {
	return s.jwtMaker.ParseToken(token)
}
