// Package plans реализует HTTP-обработчики тарифных планов: список, чтение,
// создание, частичное обновление, клонирование в другой сегмент и удаление.
package plans

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/easytomanagexyz/admin-backend/internal/http/response"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
	"github.com/easytomanagexyz/admin-backend/internal/models"
	"github.com/easytomanagexyz/admin-backend/internal/services/plan"
)

// Service описывает бизнес-логику тарифных планов.
type Service interface {
	List(ctx context.Context, posType string) ([]models.Plan, error)
	Get(ctx context.Context, id string) (*models.Plan, error)
	Create(ctx context.Context, req models.CreatePlanRequest) (*models.Plan, error)
	Update(ctx context.Context, id string, req models.UpdatePlanRequest) (*models.Plan, error)
	Clone(ctx context.Context, id, targetPosType string) (*models.Plan, error)
	Delete(ctx context.Context, id string) error
}

// Handler обрабатывает запросы к тарифным планам.
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

// writeError отвечает 400 на ошибки валидации сервиса, остальные ошибки сопоставляет по хранилищу.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, plan.ErrInvalidPosType),
		errors.Is(err, plan.ErrInvalidBillingCycle),
		errors.Is(err, plan.ErrPosTypeImmutable),
		errors.Is(err, plan.ErrNameRequired),
		errors.Is(err, plan.ErrPriceRequired),
		errors.Is(err, plan.ErrNegativePrice):
		log.Info("plan request rejected", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status, msg := response.RepositoryError(err)
	if status == http.StatusInternalServerError {
		log.Error("plan operation failed", sl.Err(err))
	} else {
		log.Info("plan operation failed", sl.Err(err))
	}
	response.WriteError(w, r, status, msg)
}

// List godoc
// @Summary Список планов
// @Description Активные планы с возможностями по возрастанию месячной цены.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param posType query string false "Сегмент POS"
// @Success 200 {object} map[string]any
// @Failure 401 {object} response.ErrorResponse
// @Router /api/admin/plans [get]
// @Router /api/admin/pricing-plans [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.plans.List")

	res, err := h.service.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("posType")))
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{
		"count": len(res),
		"plans": res,
	}))
}

// Get godoc
// @Summary План по id
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID плана"
// @Success 200 {object} map[string]any
// @Failure 404 {object} response.ErrorResponse
// @Router /api/admin/plans/{id} [get]
// @Router /api/admin/pricing-plans/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.plans.Get")

	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{"plan": p}))
}

// Create godoc
// @Summary Создание плана
// @Description Годовая цена считается по периоду оплаты, slug строится из сегмента и названия.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreatePlanRequest true "План"
// @Success 201 {object} map[string]any
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/admin/plans [post]
// @Router /api/admin/pricing-plans [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.plans.Create")

	var req models.CreatePlanRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Info("invalid plan request", sl.Err(err))
		return
	}

	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	log.Info("plan created", slog.String("plan_id", p.ID), slog.String("slug", p.Slug))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK(response.Payload{"plan": p}))
}

// Update godoc
// @Summary Обновление плана
// @Description Применяются только переданные поля; features заменяют весь список.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID плана"
// @Param request body models.UpdatePlanRequest true "Изменения"
// @Success 200 {object} map[string]any
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/admin/plans/{id} [put]
// @Router /api/admin/pricing-plans/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.plans.Update")

	var req models.UpdatePlanRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Info("invalid plan update", sl.Err(err))
		return
	}

	p, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{"plan": p}))
}

// Clone godoc
// @Summary Клонирование плана
// @Description Копирует план и его возможности в другой сегмент POS.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID исходного плана"
// @Param request body models.ClonePlanRequest true "Целевой сегмент"
// @Success 201 {object} map[string]any
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/admin/plans/{id}/clone [post]
// @Router /api/admin/pricing-plans/{id}/clone [post]
func (h *Handler) Clone(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.plans.Clone")

	var req models.ClonePlanRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Info("invalid clone request", sl.Err(err))
		return
	}

	p, err := h.service.Clone(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.TargetPosType))
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	log.Info("plan cloned", slog.String("plan_id", p.ID), slog.String("pos_type", p.PosType))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK(response.Payload{"plan": p}))
}

// Delete godoc
// @Summary Удаление плана
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID плана"
// @Success 200 {object} map[string]any
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/admin/plans/{id} [delete]
// @Router /api/admin/pricing-plans/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.plans.Delete")

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{"message": "Deleted"}))
}
