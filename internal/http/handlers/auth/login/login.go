// Package login реализует HTTP-обработчик входа администратора.
//
// Обработчик разбирает и валидирует {email, password}, делегирует проверку
// сервису аутентификации и возвращает JWT вместе с данными администратора.
// Неизвестный email и неверный пароль дают одинаковый ответ 401.
package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/easytomanagexyz/admin-backend/internal/http/response"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
	"github.com/easytomanagexyz/admin-backend/internal/models"
	"github.com/easytomanagexyz/admin-backend/internal/monitoring"
	"github.com/easytomanagexyz/admin-backend/internal/services/auth"
)

// Handler обрабатывает HTTP-запросы для авторизации.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход администратора
// @Description Проверяет email и пароль администратора и возвращает JWT со сроком жизни 7 дней.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.LoginRequest true "Учетные данные администратора"
// @Success 200 {object} map[string]any "Успешная авторизация"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 429 {object} response.ErrorResponse "Слишком много попыток"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/admin/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.LoginRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Info("invalid login request", sl.Err(err))
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		monitoring.LoginAttempts.WithLabelValues(monitoring.LoginInvalid).Inc()
		response.WriteError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		log.Error("login failed", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "Login failed")
		return
	}

	monitoring.LoginAttempts.WithLabelValues(monitoring.LoginSuccess).Inc()
	log.Info("admin logged in", slog.String("admin_id", res.Admin.ID))
	render.JSON(w, r, response.OK(response.Payload{
		"token": res.Token,
		"admin": res.Admin,
	}))
}
