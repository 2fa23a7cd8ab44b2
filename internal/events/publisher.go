// Package events публикует доменные события админки в RabbitMQ.
//
// События уходят в topic-обменник (по умолчанию admin.events) с ключами
// маршрутизации вида <сущность>.<действие>.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/easytomanagexyz/admin-backend/internal/config"
)

// Ключи маршрутизации.
const (
	TenantCreated = "tenant.created"
	TenantUpdated = "tenant.updated"
	TenantDeleted = "tenant.deleted"
	PlanCreated   = "plan.created"
	PlanUpdated   = "plan.updated"
	PlanDeleted   = "plan.deleted"
)

// Event — конверт события.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Channel — подмножество *amqp.Channel, нужное для публикации.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher публикует события в обменник RabbitMQ.
type AMQPPublisher struct {
	log      *slog.Logger
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex
	ch Channel
}

// Connect подключается к RabbitMQ, повторяя попытку retries раз.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "events.Connect"
	var conn *amqp.Connection
	var err error

	for i := 0; i < max(retries, 1); i++ {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// NewAMQPPublisher подключается к брокеру и объявляет topic-обменник.
func NewAMQPPublisher(log *slog.Logger, cfg config.RabbitMQ) (*AMQPPublisher, error) {
	const op = "events.NewAMQPPublisher"

	conn, err := Connect(cfg.URL, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p := NewPublisher(log, ch, cfg.Exchange)
	p.conn = conn
	return p, nil
}

// NewPublisher создаёт издателя поверх готового канала.
func NewPublisher(log *slog.Logger, ch Channel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{log: log, ch: ch, exchange: exchange}
}

// Publish отправляет событие routingKey с полезной нагрузкой payload.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	const op = "events.Publish"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	evt := Event{
		ID:         uuid.NewString(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    evt.ID,
			Timestamp:    evt.OccurredAt,
			Type:         routingKey,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.log.Debug("event published", slog.String("routing_key", routingKey), slog.String("event_id", evt.ID))
	return nil
}

// Close закрывает канал и соединение.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Noop — издатель для запуска без брокера.
type Noop struct{}

// Publish ничего не делает.
func (Noop) Publish(context.Context, string, any) error { return nil }

// Close ничего не делает.
func (Noop) Close() error { return nil }
