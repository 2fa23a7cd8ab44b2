// Package monitoring содержит метрики Prometheus и HTTP-middleware для их сбора.
package monitoring

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
)

// Результаты попыток входа.
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid"
	LoginRateLimited = "rate_limited"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admin_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_login_attempts_total",
			Help: "Total number of admin login attempts by result",
		},
		[]string{"result"},
	)
	TenantsRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_tenants_registered_total",
			Help: "Total number of tenants registered through the signup endpoint",
		},
	)
)

// InitMetrics регистрирует метрики в реестре по умолчанию. Повторная регистрация не ошибка.
func InitMetrics(log *slog.Logger) {
	for _, c := range []prometheus.Collector{HTTPRequests, HTTPDuration, LoginAttempts, TenantsRegistered} {
		if err := prometheus.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			log.Error("failed to register metric", sl.Err(err))
		}
	}
}

// Middleware считает запросы и их длительность по шаблону маршрута chi.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
