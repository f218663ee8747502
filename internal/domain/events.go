package domain

import "time"

type EventType string

const (
	EventOrderCreated  EventType = "order.created"
	EventItemsAdded    EventType = "order.items_added"
	EventStatusChanged EventType = "order.status_changed"
	EventTableClosed   EventType = "table.closed"
)

// OrderEvent is published to the notifications fanout after every mutation.
type OrderEvent struct {
	Type      EventType   `json:"type"`
	OrderID   string      `json:"order_id,omitempty"`
	TableID   int         `json:"table_id"`
	OldStatus OrderStatus `json:"old_status,omitempty"`
	NewStatus OrderStatus `json:"new_status,omitempty"`
	Total     float64     `json:"total,omitempty"`
	OrderIDs  []string    `json:"order_ids,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
