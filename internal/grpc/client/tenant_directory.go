// Package client содержит gRPC-клиент каталога тенантов для POS-бэкенда.
package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/easytomanagexyz/admin-backend/internal/grpc/server"
)

// TenantDirectoryClient вызывает tenantdirectory.v1.TenantDirectory.
type TenantDirectoryClient struct {
	conn       *grpc.ClientConn
	serviceKey string
}

// NewTenantDirectoryClient создаёт клиента. Без дополнительных опций соединение без TLS.
func NewTenantDirectoryClient(addr, serviceKey string, opts ...grpc.DialOption) (*TenantDirectoryClient, error) {
	const op = "client.NewTenantDirectoryClient"

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &TenantDirectoryClient{conn: conn, serviceKey: serviceKey}, nil
}

// Close закрывает соединение.
func (c *TenantDirectoryClient) Close() error {
	return c.conn.Close()
}

// Resolve возвращает данные подключения тенанта по restaurantId.
func (c *TenantDirectoryClient) Resolve(ctx context.Context, restaurantID string) (*structpb.Struct, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, server.ServiceKeyMetadata, c.serviceKey)
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, server.ResolveMethod, wrapperspb.String(restaurantID), out); err != nil {
		return nil, err
	}
	return out, nil
}
