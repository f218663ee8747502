package domain

import (
	"errors"
	"fmt"
	"time"
)

// ParcelTableID is the table id reserved for takeaway orders.
const ParcelTableID = 99

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusPaid      OrderStatus = "paid"
	StatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) String() string { return string(s) }

// Terminal reports whether no further transition is expected.
func (s OrderStatus) Terminal() bool { return s == StatusPaid || s == StatusCancelled }

// InKitchen reports whether the kitchen still has work on the order.
func (s OrderStatus) InKitchen() bool { return s == StatusPending || s == StatusPreparing }

func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func ParseStatus(v string) (OrderStatus, error) {
	s := OrderStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status %q", v)
	}
	return s, nil
}

var ErrIllegalTransition = errors.New("illegal status transition")

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPreparing, StatusReady, StatusCancelled, StatusPaid},
	StatusPreparing: {StatusReady, StatusCancelled, StatusPaid},
	StatusReady:     {StatusServed, StatusPaid},
	StatusServed:    {StatusPaid},
	StatusPaid:      nil,
	StatusCancelled: nil,
}

func CanTransition(from, to OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrIllegalTransition wrapped with both states.
func CheckTransition(from, to OrderStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

type Order struct {
	ID           string      `json:"id"`
	TableID      int         `json:"tableId"`
	Items        []OrderItem `json:"items"`
	Status       OrderStatus `json:"status"`
	SpecialNotes string      `json:"specialNotes,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	Total        float64     `json:"total"`
	IsParcel     bool        `json:"isParcel"`
}

type OrderItem struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Quantity       int      `json:"quantity"`
	Price          float64  `json:"price"`
	Image          string   `json:"image"`
	Customizations []string `json:"customizations,omitempty"`

	// menu-only metadata, never persisted
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Dietary     []string `json:"dietary,omitempty"`
}

func (i OrderItem) Subtotal() float64 { return i.Price * float64(i.Quantity) }

// ItemsTotal is the sum of price*quantity over items.
func ItemsTotal(items []OrderItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// ItemsCount is the sum of quantities.
func ItemsCount(items []OrderItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// NewOrder is the header plus items of an order that has not been stored yet.
type NewOrder struct {
	TableID      int
	Items        []OrderItem
	SpecialNotes string
	Total        float64
}

func (n NewOrder) Validate() error {
	if n.TableID <= 0 {
		return fmt.Errorf("invalid table id %d", n.TableID)
	}
	if len(n.Items) == 0 {
		return errors.New("at least one item is required")
	}
	for _, it := range n.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("invalid quantity for item %s", it.Name)
		}
		if it.Price < 0 {
			return fmt.Errorf("invalid price for item %s", it.Name)
		}
	}
	return nil
}

type TableStatus string

const (
	TableFree            TableStatus = "free"
	TableOccupied        TableStatus = "occupied"
	TableOrderInProgress TableStatus = "order-in-progress"
)

type Table struct {
	ID     int         `json:"id"`
	Status TableStatus `json:"status"`
}
