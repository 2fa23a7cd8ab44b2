// Package users реализует админские HTTP-обработчики тенантов:
// список с фильтрами и пагинацией, просмотр, частичное обновление и удаление.
//
// Пароль от базы тенанта в ответах этих маршрутов не возвращается.
package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/easytomanagexyz/admin-backend/internal/http/response"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
	"github.com/easytomanagexyz/admin-backend/internal/models"
	"github.com/easytomanagexyz/admin-backend/internal/services/tenant"
)

// Service описывает бизнес-логику тенантов для админки.
type Service interface {
	List(ctx context.Context, f models.TenantFilter) (*models.TenantPage, error)
	Get(ctx context.Context, id string) (*models.Tenant, error)
	Update(ctx context.Context, id string, req models.UpdateTenantRequest) (*models.Tenant, error)
	Delete(ctx context.Context, id string) error
}

// Handler обрабатывает запросы к тенантам.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if errors.Is(err, tenant.ErrInvalidStatus) ||
		errors.Is(err, tenant.ErrInvalidExpiry) ||
		errors.Is(err, tenant.ErrEmptyField) {
		log.Info("tenant request rejected", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status, msg := response.RepositoryError(err)
	if status == http.StatusInternalServerError {
		log.Error("tenant operation failed", sl.Err(err))
	} else {
		log.Info("tenant operation failed", sl.Err(err))
	}
	response.WriteError(w, r, status, msg)
}

// queryInt возвращает целое из query-параметра; нечисловое значение считается отсутствующим.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

// List godoc
// @Summary Список тенантов
// @Description Фильтр по сегменту POS и подстроке имени или email, новые первыми. limit не больше 200.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param posType query string false "Сегмент POS (tenant.plan)"
// @Param q query string false "Подстрока имени или email"
// @Param page query int false "Страница, с 1"
// @Param limit query int false "Размер страницы"
// @Success 200 {object} map[string]any
// @Router /api/admin/users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.List")

	q := r.URL.Query()
	page, err := h.service.List(r.Context(), models.TenantFilter{
		PosType: q.Get("posType"),
		Query:   q.Get("q"),
		Page:    queryInt(r, "page"),
		Limit:   queryInt(r, "limit"),
	})
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{
		"data": page.Data,
		"meta": page.Meta,
	}))
}

// Get godoc
// @Summary Тенант по id
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID тенанта"
// @Success 200 {object} map[string]any
// @Failure 404 {object} response.ErrorResponse
// @Router /api/admin/users/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Get")

	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{"user": t}))
}

// Update godoc
// @Summary Обновление тенанта
// @Description subscriptionStatus и expiryDate применяются к subscriptionId или к первой подписке тенанта.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID тенанта"
// @Param request body models.UpdateTenantRequest true "Изменения"
// @Success 200 {object} map[string]any
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/admin/users/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Update")

	var req models.UpdateTenantRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Info("invalid tenant update", sl.Err(err))
		return
	}

	t, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	log.Info("tenant updated", slog.String("tenant_id", t.ID))
	render.JSON(w, r, response.OK(response.Payload{"user": t}))
}

// Delete godoc
// @Summary Удаление тенанта
// @Description Удаляет тенанта и его подписки в одной транзакции.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID тенанта"
// @Success 200 {object} map[string]any
// @Failure 404 {object} response.ErrorResponse
// @Router /api/admin/users/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Delete")

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, log, err)
		return
	}
	log.Info("tenant deleted", slog.String("tenant_id", id))
	render.JSON(w, r, response.OK(response.Payload{"message": "Deleted"}))
}
