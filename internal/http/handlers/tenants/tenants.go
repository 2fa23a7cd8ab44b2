// Package tenants реализует HTTP-обработчики для клиентских продуктов:
// регистрацию тенанта и его поиск по email или restaurantId.
//
// Маршруты защищены ключом сервиса; ответ поиска по restaurantId содержит
// учётные данные базы тенанта.
package tenants

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
	"github.com/easytomanagexyz/admin-backend/internal/services/tenant"
	"github.com/easytomanagexyz/admin-backend/internal/storage/repository"
)

// Service описывает регистрацию и поиск тенантов.
type Service interface {
	Create(ctx context.Context, req models.TenantSignupRequest) (*models.Tenant, error)
	FindByEmail(ctx context.Context, email string) (*models.Tenant, error)
	FindByRestaurantID(ctx context.Context, restaurantID string) (*models.TenantConnection, error)
}

// Handler обрабатывает запросы клиентских продуктов.
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

// Create godoc
// @Summary Регистрация тенанта
// @Tags Tenants
// @Accept json
// @Produce json
// @Security ServiceKey
// @Param request body models.TenantSignupRequest true "Данные тенанта"
// @Success 201 {object} map[string]any
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/tenants [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.tenants.Create")

	var req models.TenantSignupRequest
	if err := response.Decode(w, r, h.validate, &req); err != nil {
		log.Info("invalid signup request", sl.Err(err))
		return
	}

	t, err := h.service.Create(r.Context(), req)
	switch {
	case errors.Is(err, tenant.ErrMissingFields):
		response.WriteError(w, r, http.StatusBadRequest, "Missing required fields")
		return
	case errors.Is(err, repository.ErrAlreadyExists):
		log.Info("tenant already exists", slog.String("restaurant_id", req.RestaurantID))
		response.WriteError(w, r, http.StatusConflict, "Tenant with this email or restaurantId already exists")
		return
	case err != nil:
		log.Error("failed to create tenant", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "Failed to create tenant")
		return
	}

	log.Info("tenant registered", slog.String("tenant_id", t.ID), slog.String("restaurant_id", t.RestaurantID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK(response.Payload{"restaurantId": t.RestaurantID}))
}

// FindByEmail godoc
// @Summary Поиск тенанта по email
// @Tags Tenants
// @Produce json
// @Security ServiceKey
// @Param email query string true "Email тенанта"
// @Success 200 {object} map[string]any
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/tenants [get]
func (h *Handler) FindByEmail(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.tenants.FindByEmail")

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		response.WriteError(w, r, http.StatusBadRequest, "email query param required")
		return
	}

	t, err := h.service.FindByEmail(r.Context(), email)
	if err != nil {
		h.writeLookupError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{
		"id":           t.ID,
		"restaurantId": t.RestaurantID,
		"email":        t.Email,
	}))
}

// FindByRestaurantID godoc
// @Summary Данные подключения к базе тенанта
// @Tags Tenants
// @Produce json
// @Security ServiceKey
// @Param restaurantId path string true "restaurantId тенанта"
// @Success 200 {object} map[string]any
// @Failure 404 {object} response.ErrorResponse
// @Router /api/tenants/{restaurantId} [get]
func (h *Handler) FindByRestaurantID(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.tenants.FindByRestaurantID")

	restaurantID := strings.TrimSpace(chi.URLParam(r, "restaurantId"))
	if restaurantID == "" {
		response.WriteError(w, r, http.StatusBadRequest, "restaurantId param required")
		return
	}

	c, err := h.service.FindByRestaurantID(r.Context(), restaurantID)
	if err != nil {
		h.writeLookupError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(response.Payload{
		"id":           c.ID,
		"restaurantId": c.RestaurantID,
		"email":        c.Email,
		"dbName":       c.DBName,
		"dbUser":       c.DBUser,
		"dbPassword":   c.DBPassword,
		"useRedis":     c.UseRedis,
		"country":      c.Country,
		"city":         c.City,
		"phone":        c.Phone,
	}))
}

func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		response.WriteError(w, r, http.StatusNotFound, "Tenant not found")
		return
	}
	log.Error("failed to lookup tenant", sl.Err(err))
	response.WriteError(w, r, http.StatusInternalServerError, "Failed to lookup tenant")
}
