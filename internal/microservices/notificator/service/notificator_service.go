package service

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/domain"
)

// Consumer is the part of the broker client the notificator needs.
type Consumer interface {
	Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error)
}

type NotificatorService struct {
	consumer Consumer
	queue    string
	log      *logger.Logger
}

func NewNotificatorService(c Consumer, queue string, lg *logger.Logger) *NotificatorService {
	return &NotificatorService{consumer: c, queue: queue, log: lg}
}

// Notify consumes order events until ctx is done or the channel closes.
// Malformed messages are rejected without requeue and land in the dead
// letter queue.
func (ns *NotificatorService) Notify(ctx context.Context) error {
	msgs, err := ns.consumer.Consume(ns.queue, "notificator", 10)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return errors.New("notifications channel closed")
			}
			ns.Handle(m)
		}
	}
}

func (ns *NotificatorService) Handle(m amqp.Delivery) {
	var ev domain.OrderEvent
	if err := json.Unmarshal(m.Body, &ev); err != nil {
		ns.log.Error("notification_decode_failed", err, map[string]any{"message_id": m.MessageId})
		_ = m.Nack(false, false)
		return
	}
	fields := map[string]any{
		"event":    string(ev.Type),
		"table_id": ev.TableID,
	}
	if ev.OrderID != "" {
		fields["order_id"] = ev.OrderID
	}
	if ev.NewStatus != "" {
		fields["old_status"] = string(ev.OldStatus)
		fields["new_status"] = string(ev.NewStatus)
	}
	if len(ev.OrderIDs) > 0 {
		fields["order_ids"] = ev.OrderIDs
	}
	if ev.Total > 0 {
		fields["total"] = ev.Total
	}
	ns.log.Info("notification_received", fields)
	_ = m.Ack(false)
}
