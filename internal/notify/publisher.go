// Package notify publishes confirmed lifecycle transitions to RabbitMQ.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"backoffice/internal/lifecycle"
)

const (
	ExchangeName = "backoffice.lifecycle"
	ExchangeKind = "topic"
)

// Publisher sends each event to ExchangeName with routing key "<kind>.<status>".
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, channel: ch, logger: logger.With("component", "notify")}, nil
}

func (p *Publisher) Notify(ctx context.Context, e lifecycle.Event) error {
	msg, err := message(e)
	if err != nil {
		return err
	}
	if err := p.channel.PublishWithContext(ctx, ExchangeName, e.RoutingKey(), false, false, msg); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	p.logger.DebugContext(ctx, "event published", "routing_key", e.RoutingKey(), "record_id", e.RecordID)
	return nil
}

func message(e lifecycle.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.OccurredAt,
		Type:         e.RoutingKey(),
		Body:         body,
	}, nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
