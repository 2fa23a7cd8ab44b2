// Package analytics реализует HTTP-обработчики аналитики дашборда.
package analytics

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/easytomanagexyz/admin-backend/internal/http/response"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
	"github.com/easytomanagexyz/admin-backend/internal/models"
)

// Service описывает расчёт аналитики.
type Service interface {
	Stats(ctx context.Context) (models.Stats, error)
	RevenueTrend(ctx context.Context, months int) ([]models.RevenuePoint, error)
	PosDistribution(ctx context.Context) ([]models.DistributionSlice, error)
	LocationBreakdown(ctx context.Context) ([]models.LocationStat, error)
	Overview(ctx context.Context, months int) (*models.Overview, error)
}

// Handler обрабатывает запросы аналитики.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.Error("failed to load analytics",
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		sl.Err(err),
	)
	response.WriteError(w, r, http.StatusInternalServerError, "Failed to load analytics")
}

// months читает query-параметр months; отсутствующее или нечисловое значение даёт 0.
func months(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("months"))
	if err != nil {
		return 0
	}
	return n
}

// Stats godoc
// @Summary Сводные показатели
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/admin/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, r, "handlers.analytics.Stats", err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{"stats": stats}))
}

// Overview godoc
// @Summary Полная аналитика дашборда
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param months query int false "Количество месяцев графика выручки (1..24, по умолчанию 8)"
// @Success 200 {object} map[string]any
// @Router /api/admin/analytics [get]
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.service.Overview(r.Context(), months(r))
	if err != nil {
		h.fail(w, r, "handlers.analytics.Overview", err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{
		"stats":  ov.Stats,
		"charts": ov.Charts,
	}))
}

// Locations godoc
// @Summary Тенанты и выручка по странам
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/admin/locations [get]
func (h *Handler) Locations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.service.LocationBreakdown(r.Context())
	if err != nil {
		h.fail(w, r, "handlers.analytics.Locations", err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{
		"count":     len(locs),
		"locations": locs,
	}))
}

// Revenue godoc
// @Summary Помесячная выручка
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param months query int false "Количество месяцев (1..24, по умолчанию 8)"
// @Success 200 {object} map[string]any
// @Router /api/admin/analytics/revenue [get]
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.RevenueTrend(r.Context(), months(r))
	if err != nil {
		h.fail(w, r, "handlers.analytics.Revenue", err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{"revenueTrends": points}))
}

// Distribution godoc
// @Summary Распределение тенантов по сегментам POS
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/admin/analytics/distribution [get]
func (h *Handler) Distribution(w http.ResponseWriter, r *http.Request) {
	dist, err := h.service.PosDistribution(r.Context())
	if err != nil {
		h.fail(w, r, "handlers.analytics.Distribution", err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{"userDistribution": dist}))
}
