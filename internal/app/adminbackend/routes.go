// Package adminbackend собирает HTTP- и gRPC-серверы админского бэкенда.
package adminbackend

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/easytomanagexyz/admin-backend/docs"
	"github.com/easytomanagexyz/admin-backend/internal/config"
	"github.com/easytomanagexyz/admin-backend/internal/http/handlers/analytics"
	"github.com/easytomanagexyz/admin-backend/internal/http/handlers/auth/bootstrap"
	"github.com/easytomanagexyz/admin-backend/internal/http/handlers/auth/login"
	"github.com/easytomanagexyz/admin-backend/internal/http/handlers/auth/password"
	"github.com/easytomanagexyz/admin-backend/internal/http/handlers/health"
	"github.com/easytomanagexyz/admin-backend/internal/http/handlers/plans"
	"github.com/easytomanagexyz/admin-backend/internal/http/handlers/tenants"
	"github.com/easytomanagexyz/admin-backend/internal/http/handlers/users"
	"github.com/easytomanagexyz/admin-backend/internal/http/middlewarectx"
	"github.com/easytomanagexyz/admin-backend/internal/monitoring"
	analyticsservice "github.com/easytomanagexyz/admin-backend/internal/services/analytics"
	authservice "github.com/easytomanagexyz/admin-backend/internal/services/auth"
	planservice "github.com/easytomanagexyz/admin-backend/internal/services/plan"
	tenantservice "github.com/easytomanagexyz/admin-backend/internal/services/tenant"
)

// Services — зависимости обработчиков.
type Services struct {
	Auth      *authservice.Service
	Plans     *planservice.Service
	Tenants   *tenantservice.Service
	Analytics *analyticsservice.Service
	DB        health.Pinger
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.HTTP.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middlewarectx.ServiceKeyHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		monitoring.Middleware,
	)

	r.Get("/", health.Root)
	r.Get("/health", health.New(logger, s.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	loginLimiter := middlewarectx.NewIPLimiter(cfg.Security.LoginRateLimit, cfg.Security.LoginBurst)
	onLimited := func() {
		monitoring.LoginAttempts.WithLabelValues(monitoring.LoginRateLimited).Inc()
	}

	planHandler := plans.New(logger, s.Plans)
	planRoutes := func(r chi.Router) {
		r.Get("/", planHandler.List)
		r.Post("/", planHandler.Create)
		r.Get("/{id}", planHandler.Get)
		r.Put("/{id}", planHandler.Update)
		r.Delete("/{id}", planHandler.Delete)
		r.Post("/{id}/clone", planHandler.Clone)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/admin", func(r chi.Router) {
			// Открытые конечные точки
			r.With(middlewarectx.RateLimitMiddleware(logger, loginLimiter, onLimited)).
				Post("/login", login.New(logger, s.Auth).ServeHTTP)
			r.Post("/bootstrap-create", bootstrap.New(logger).ServeHTTP)

			// Группа с JWT аутентификацией
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))

				analyticsHandler := analytics.New(logger, s.Analytics)
				r.Get("/stats", analyticsHandler.Stats)
				r.Get("/analytics", analyticsHandler.Overview)
				r.Get("/analytics/revenue", analyticsHandler.Revenue)
				r.Get("/analytics/distribution", analyticsHandler.Distribution)
				r.Get("/locations", analyticsHandler.Locations)

				r.Route("/plans", planRoutes)
				r.Route("/pricing-plans", planRoutes)

				usersHandler := users.New(logger, s.Tenants)
				r.Route("/users", func(r chi.Router) {
					r.Get("/", usersHandler.List)
					r.Get("/{id}", usersHandler.Get)
					r.Put("/{id}", usersHandler.Update)
					r.Delete("/{id}", usersHandler.Delete)
				})

				r.Put("/password", password.New(logger, s.Auth).ServeHTTP)
			})
		})

		// Маршруты клиентских продуктов, защищённые ключом сервиса
		r.Route("/tenants", func(r chi.Router) {
			r.Use(middlewarectx.ServiceKeyMiddleware(cfg.Security.ServiceKey, logger))
			tenantsHandler := tenants.New(logger, s.Tenants)
			r.Post("/", tenantsHandler.Create)
			r.Get("/", tenantsHandler.FindByEmail)
			r.Get("/{restaurantId}", tenantsHandler.FindByRestaurantID)
		})
	})
}
