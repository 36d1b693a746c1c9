// Package broker publishes lead notifications to a RabbitMQ exchange so
// downstream consumers (chat bridges, CRM syncs) can react to them.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"lead_pipeline_backend/internal/notification/dispatch"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const routingKeyPrefix = "leads.notification."

// Publisher is a dispatch.Sink backed by a durable topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex
	ch *amqp.Channel
}

var _ dispatch.Sink = (*Publisher)(nil)

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Send publishes n as a persistent JSON message routed by its kind.
func (p *Publisher) Send(ctx context.Context, n dispatch.Notification) error {
	msg, err := buildPublishing(n, time.Now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(n.Kind), false, false, msg)
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// RoutingKey is the topic a notification of kind is published under.
func RoutingKey(kind dispatch.Kind) string {
	return routingKeyPrefix + string(kind)
}

func buildPublishing(n dispatch.Notification, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode notification: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now.UTC(),
		Type:         string(n.Kind),
		Body:         body,
	}, nil
}
