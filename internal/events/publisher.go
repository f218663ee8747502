package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-system/internal/connections/rabbitmq"
	"restaurant-system/internal/domain"
)

const publishTimeout = 5 * time.Second

type Publisher interface {
	Publish(ctx context.Context, ev domain.OrderEvent) error
}

type AMQPPublisher struct {
	client *rabbitmq.Client
	source string
}

func NewAMQPPublisher(client *rabbitmq.Client, source string) *AMQPPublisher {
	return &AMQPPublisher{client: client, source: source}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev domain.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	headers := amqp.Table{
		"x-source":     p.source,
		"x-event-type": string(ev.Type),
	}
	if err := p.client.Publish(ctx, rabbitmq.NotificationsExchange, "", body, headers, "application/json", true); err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Type, err)
	}
	return nil
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, domain.OrderEvent) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	Err    error
}

func (r *Recorder) Publish(_ context.Context, ev domain.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []domain.OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.OrderEvent(nil), r.events...)
}
