// Package bootstrap реализует совместимый с дашбордом обработчик
// bootstrap-create. Автоматическое создание планов отключено, обработчик
// только подтверждает запрос.
package bootstrap

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/easytomanagexyz/admin-backend/internal/http/response"
)

// Message — текст подтверждения.
const Message = "Plan auto-creation disabled. Manage plans manually."

// Handler подтверждает запрос bootstrap-create.
type Handler struct {
	log *slog.Logger
}

// New создает Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Bootstrap
// @Description Ничего не создаёт, возвращает подтверждение.
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/admin/bootstrap-create [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.log.Info("bootstrap-create acknowledged",
		slog.String("op", "handlers.auth.bootstrap"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	render.JSON(w, r, response.OK(response.Payload{"message": Message}))
}
