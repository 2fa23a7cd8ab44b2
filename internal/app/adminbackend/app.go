package adminbackend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"google.golang.org/grpc"

	"github.com/easytomanagexyz/admin-backend/internal/cache"
	"github.com/easytomanagexyz/admin-backend/internal/config"
	"github.com/easytomanagexyz/admin-backend/internal/events"
	grpcserver "github.com/easytomanagexyz/admin-backend/internal/grpc/server"
	"github.com/easytomanagexyz/admin-backend/internal/lib/jwt"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
	"github.com/easytomanagexyz/admin-backend/internal/migrations"
	"github.com/easytomanagexyz/admin-backend/internal/monitoring"
	"github.com/easytomanagexyz/admin-backend/internal/secrets"
	analyticsservice "github.com/easytomanagexyz/admin-backend/internal/services/analytics"
	authservice "github.com/easytomanagexyz/admin-backend/internal/services/auth"
	planservice "github.com/easytomanagexyz/admin-backend/internal/services/plan"
	tenantservice "github.com/easytomanagexyz/admin-backend/internal/services/tenant"
	"github.com/easytomanagexyz/admin-backend/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

type appCache interface {
	planservice.Cache
	analyticsservice.Cache
	io.Closer
}

type appPublisher interface {
	planservice.Publisher
	io.Closer
}

// App держит HTTP- и gRPC-серверы и их общие ресурсы.
type App struct {
	server     *http.Server
	grpcServer *grpc.Server
	grpcAddr   string
	logger     *slog.Logger
	provider   *repository.Provider
	cache      appCache
	publisher  appPublisher
}

// New подключается к мастер-базе, применяет миграции и собирает серверы.
// Redis и RabbitMQ необязательны: без адреса используются заглушки.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	dsn, err := secrets.ResolveDatabaseURL(ctx, logger, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	provider := repository.NewProvider(dsn, cfg.Database.MaxOpenConns)
	storage, err := provider.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(logger, storage.DB, cfg.Database.MigrationsPath); err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var c appCache = cache.Noop{}
	if cfg.Redis.Address != "" {
		redisCache, err := cache.InitServer(ctx, cfg.Redis)
		if err != nil {
			_ = provider.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		c = redisCache
	} else {
		logger.Warn("redis address is empty, caching disabled")
	}

	var pub appPublisher = events.Noop{}
	if cfg.RabbitMQ.URL != "" {
		amqpPub, err := events.NewAMQPPublisher(logger, cfg.RabbitMQ)
		if err != nil {
			// без брокера сервис продолжает работу
			logger.Warn("rabbitmq unavailable, events disabled", sl.Err(err))
		} else {
			pub = amqpPub
		}
	}

	monitoring.InitMetrics(logger)
	jwtMaker := jwt.NewJWTMaker(cfg.JWT.SecretKey, cfg.JWT.TokenTTL)

	authService := authservice.NewService(logger, storage, jwtMaker)
	planService := planservice.NewService(logger, storage, c, pub, cfg.Cache.PlansTTL)
	tenantService := tenantservice.NewService(logger, storage, pub)
	analyticsService := analyticsservice.NewService(logger, storage, c, cfg.Cache.AnalyticsTTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, Services{
		Auth:      authService,
		Plans:     planService,
		Tenants:   tenantService,
		Analytics: analyticsService,
		DB:        storage.DB,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.Timeout,
		WriteTimeout: cfg.HTTP.Timeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		server:     srv,
		grpcServer: grpcserver.New(logger, tenantService, cfg.Security.ServiceKey),
		grpcAddr:   cfg.GRPC.Address,
		logger:     logger,
		provider:   provider,
		cache:      c,
		publisher:  pub,
	}, nil
}

// Run запускает серверы и блокируется до отмены ctx или ошибки одного из них.
func (a *App) Run(ctx context.Context) error {
	const op = "app.Run"

	lis, err := net.Listen("tcp", a.grpcAddr)
	if err != nil {
		a.close()
		return fmt.Errorf("%s: %w", op, err)
	}

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()
	go func() {
		a.logger.Info("gRPC server starting on", slog.String("address", a.grpcAddr))
		if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down servers gracefully")
	if err := a.server.Shutdown(timeoutCtx); err != nil && runErr == nil {
		runErr = err
	}
	a.grpcServer.GracefulStop()
	a.close()
	return runErr
}

func (a *App) close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("failed to close publisher", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close cache", sl.Err(err))
	}
	if err := a.provider.Close(); err != nil {
		a.logger.Warn("failed to close storage", sl.Err(err))
	}
}
