package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/easytomanagexyz/admin-backend/internal/config"
)

func rabbitURL(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("TEST_RABBITMQ_URL"); url != "" {
		return url
	}
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-management",
		ExposedPorts: []string{"5672/tcp"},
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": "guest",
			"RABBITMQ_DEFAULT_PASS": "guest",
		},
		WaitingFor: wait.ForListeningPort("5672/tcp").WithStartupTimeout(2 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestIntegration_PublishToTopicExchange(t *testing.T) {
	url := rabbitURL(t)

	p, err := NewAMQPPublisher(discard(), config.RabbitMQ{
		URL: url, Exchange: "admin.events", Retries: 5, RetryDelay: 2 * time.Second,
	})
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	conn, err := Connect(url, 3, time.Second)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	ch, err := conn.Channel()
	require.NoError(t, err)

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "tenant.*", "admin.events", false, nil))

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), TenantDeleted, map[string]string{"id": "t1"}))

	select {
	case d := <-deliveries:
		var evt Event
		require.NoError(t, json.Unmarshal(d.Body, &evt))
		assert.Equal(t, TenantDeleted, evt.Type)
		assert.Equal(t, TenantDeleted, d.RoutingKey)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}
