// Package server реализует внутренний gRPC-сервер каталога тенантов.
//
// TenantDirectory отдаёт POS-бэкенду данные подключения к базе тенанта по restaurantId.
// Protobuf-описание сервиса задано вручную через grpc.ServiceDesc на well-known типах:
// запрос google.protobuf.StringValue, ответ google.protobuf.Struct.
// Каждый вызов каталога требует metadata x-service-key.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
	"github.com/easytomanagexyz/admin-backend/internal/models"
	"github.com/easytomanagexyz/admin-backend/internal/storage/repository"
)

// Имена сервиса и метаданных.
const (
	ServiceName        = "tenantdirectory.v1.TenantDirectory"
	ResolveMethod      = "/" + ServiceName + "/Resolve"
	ServiceKeyMetadata = "x-service-key"
)

// TenantResolver ищет данные подключения тенанта.
type TenantResolver interface {
	FindByRestaurantID(ctx context.Context, restaurantID string) (*models.TenantConnection, error)
}

// TenantDirectoryServer — серверная часть сервиса каталога.
type TenantDirectoryServer interface {
	Resolve(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// TenantDirectory реализует TenantDirectoryServer.
type TenantDirectory struct {
	log      *slog.Logger
	resolver TenantResolver
}

// NewTenantDirectory создает TenantDirectory.
func NewTenantDirectory(log *slog.Logger, resolver TenantResolver) *TenantDirectory {
	return &TenantDirectory{log: log, resolver: resolver}
}

// Resolve возвращает данные подключения тенанта с указанным restaurantId.
func (s *TenantDirectory) Resolve(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	restaurantID := strings.TrimSpace(req.GetValue())
	if restaurantID == "" {
		return nil, status.Error(codes.InvalidArgument, "restaurantId is required")
	}

	c, err := s.resolver.FindByRestaurantID(ctx, restaurantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "tenant not found")
	}
	if err != nil {
		s.log.Error("Resolve failed", slog.String("restaurant_id", restaurantID), sl.Err(err))
		return nil, status.Error(codes.Internal, "failed to lookup tenant")
	}

	return structpb.NewStruct(map[string]any{
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
	})
}

func resolveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TenantDirectoryServer).Resolve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ResolveMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TenantDirectoryServer).Resolve(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc описывает сервис tenantdirectory.v1.TenantDirectory.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TenantDirectoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Resolve", Handler: resolveHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tenantdirectory/v1/tenant_directory.proto",
}

// ServiceKeyInterceptor отклоняет вызовы каталога без верного x-service-key.
// Остальные сервисы (health) пропускаются.
func ServiceKeyInterceptor(key string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get(ServiceKeyMetadata)
		if key == "" || len(values) == 0 || subtle.ConstantTimeCompare([]byte(values[0]), []byte(key)) != 1 {
			return nil, status.Error(codes.Unauthenticated, "invalid service key")
		}
		return handler(ctx, req)
	}
}

// LoggingInterceptor пишет в лог метод, код ответа и длительность вызова.
func LoggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Info("grpc request",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}

// New создает gRPC-сервер с каталогом тенантов и стандартным health-сервисом.
func New(log *slog.Logger, resolver TenantResolver, serviceKey string) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		LoggingInterceptor(log),
		ServiceKeyInterceptor(serviceKey),
	))
	srv.RegisterService(&ServiceDesc, NewTenantDirectory(log, resolver))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}
