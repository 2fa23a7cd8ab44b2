// Package models содержит доменные структуры мастер-базы: администраторов,
// тарифные планы, тенантов и их подписки, а также DTO для приёма данных
// из JSON-запросов и агрегаты для аналитики.
package models

import "time"

// AdminUser представляет администратора панели управления.
type AdminUser struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // bcrypt-хэш, наружу не отдаётся
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	LastLogin    *time.Time `json:"lastLogin"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// LoginRequest используется для приёма учётных данных администратора.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest используется для смены пароля текущего администратора.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}
