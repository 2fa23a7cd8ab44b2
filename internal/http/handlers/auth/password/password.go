// Package password реализует смену пароля текущего администратора.
package password

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/easytomanagexyz/admin-backend/internal/http/middlewarectx"
	"github.com/easytomanagexyz/admin-backend/internal/http/response"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
	"github.com/easytomanagexyz/admin-backend/internal/models"
	"github.com/easytomanagexyz/admin-backend/internal/services/auth"
)

// Handler обрабатывает смену пароля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает смену пароля администратора.
type Service interface {
	ChangePassword(ctx context.Context, adminID, current, next string) error
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Смена пароля
// @Description Меняет пароль администратора из токена после проверки текущего пароля.
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChangePasswordRequest true "Текущий и новый пароль"
// @Success 200 {object} map[string]any
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/admin/password [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.password"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	adminID, ok := middlewarectx.AdminIDFrom(r.Context())
	if !ok {
		log.Error("admin id missing in context")
		response.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.ChangePasswordRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Info("invalid change password request", sl.Err(err))
		return
	}

	err := h.service.ChangePassword(r.Context(), adminID, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, auth.ErrWrongPassword), errors.Is(err, auth.ErrWeakPassword):
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		status, msg := response.RepositoryError(err)
		log.Error("failed to change password", sl.Err(err))
		response.WriteError(w, r, status, msg)
		return
	}

	render.JSON(w, r, response.OK(response.Payload{"message": "Password updated"}))
}
