// Package service holds outbound integrations used by the domain services.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AhmedTUD/invoice/internal/logging"
	"github.com/AhmedTUD/invoice/internal/queue"
)

// AuditPublisher delivers audit events. Failures never affect the request
// that produced the event.
type AuditPublisher interface {
	Publish(ctx context.Context, ev queue.AuditEvent) error
}

// NopPublisher drops every event. Used when auditing is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.AuditEvent) error { return nil }

// RabbitPublisher publishes persistent JSON messages to the audit queue. It
// dials per publish, which suits the low event rate of admin actions.
type RabbitPublisher struct {
	url string
}

func NewRabbitPublisher(url string) *RabbitPublisher { return &RabbitPublisher{url: url} }

func (p *RabbitPublisher) Publish(ctx context.Context, ev queue.AuditEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.AuditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	return ch.PublishWithContext(ctx, "", queue.AuditQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	})
}

// Background wraps p so Publish returns immediately and delivery happens on
// its own goroutine with a bounded timeout. Errors are logged.
func Background(p AuditPublisher, log logging.Logger, timeout time.Duration) AuditPublisher {
	return &background{next: p, log: log, timeout: timeout}
}

type background struct {
	next    AuditPublisher
	log     logging.Logger
	timeout time.Duration
}

func (b *background) Publish(_ context.Context, ev queue.AuditEvent) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		if err := b.next.Publish(ctx, ev); err != nil {
			b.log.Warn(ctx, "audit publish failed", "type", ev.Type, "error", err)
		}
	}()
	return nil
}
