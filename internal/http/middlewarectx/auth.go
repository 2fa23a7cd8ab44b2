// Package middlewarectx содержит HTTP middleware админского API.
//
// JWTMiddleware проверяет Bearer-токен администратора и кладёт его claims в контекст,
// ServiceKeyMiddleware защищает маршруты клиентских продуктов общим ключом,
// RateLimitMiddleware ограничивает частоту запросов с одного IP.
package middlewarectx

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/easytomanagexyz/admin-backend/internal/http/response"
	"github.com/easytomanagexyz/admin-backend/internal/lib/jwt"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// AdminID — ключ идентификатора администратора в контексте
	AdminID Key = "admin_id"
	// Email — ключ email администратора в контексте
	Email Key = "email"
	// Role — ключ роли администратора в контексте
	Role Key = "role"
)

// ServiceKeyHeader — заголовок с ключом сервиса для клиентских маршрутов.
const ServiceKeyHeader = "X-Service-Key"

// TokenParser проверяет токен и возвращает его claims.
type TokenParser interface {
	ParseToken(token string) (*jwt.Claims, error)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет токен в заголовке Authorization.
//
// Если токен валиден, добавляет id, email и роль администратора в контекст запроса,
// иначе возвращает 401 Unauthorized.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Info("missing authorization header")
				response.WriteError(w, r, http.StatusUnauthorized, "missing authorization header")
				return
			}
			tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(tokenStr) == "" {
				log.Info("invalid authorization header")
				response.WriteError(w, r, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := parser.ParseToken(strings.TrimSpace(tokenStr))
			if err != nil {
				log.Info("invalid or expired token", sl.Err(err))
				response.WriteError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), AdminID, claims.AdminID)
			ctx = context.WithValue(ctx, Email, claims.Email)
			ctx = context.WithValue(ctx, Role, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminIDFrom возвращает id администратора, положенный JWTMiddleware.
func AdminIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AdminID).(string)
	return id, ok && id != ""
}

// ServiceKeyMiddleware пропускает запрос, только если заголовок X-Service-Key совпадает с key.
// Пустой key отклоняет все запросы.
func ServiceKeyMiddleware(key string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(ServiceKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				log.Info("invalid service key",
					slog.String("op", "middlewarectx.ServiceKeyMiddleware"),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				response.WriteError(w, r, http.StatusUnauthorized, "invalid service key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
