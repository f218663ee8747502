package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-system/internal/domain"
)

var ErrUnknownAction = errors.New("unknown kitchen action")

type Action string

const (
	ActionStart  Action = "start"
	ActionReady  Action = "ready"
	ActionCancel Action = "cancel"
	ActionServe  Action = "serve"
)

var actionTargets = map[Action]domain.OrderStatus{
	ActionStart:  domain.StatusPreparing,
	ActionReady:  domain.StatusReady,
	ActionCancel: domain.StatusCancelled,
	ActionServe:  domain.StatusServed,
}

func ParseAction(v string) (Action, error) {
	a := Action(v)
	if _, ok := actionTargets[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, v)
	}
	return a, nil
}

// Ticket is one card on the kitchen display.
type Ticket struct {
	Order    domain.Order `json:"order"`
	Label    string       `json:"label"`
	PlacedAt string       `json:"placedAt"`
	Waiting  string       `json:"waiting"`
}

// StatusUpdater applies a checked status transition.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, orderID string, to domain.OrderStatus) (domain.Order, error)
}

type KitchenServiceInterface interface {
	Queue(orders []domain.Order) []Ticket
	Apply(ctx context.Context, orderID string, action Action) (domain.Order, error)
}

type KitchenService struct {
	orders StatusUpdater
	loc    *time.Location
	now    func() time.Time
}

func NewKitchenService(orders StatusUpdater, loc *time.Location) *KitchenService {
	if loc == nil {
		loc = time.UTC
	}
	return &KitchenService{orders: orders, loc: loc, now: time.Now}
}

// Queue lists pending and preparing orders in the order given.
func (ks *KitchenService) Queue(orders []domain.Order) []Ticket {
	now := ks.now()
	out := []Ticket{}
	for _, o := range orders {
		if !o.Status.InKitchen() {
			continue
		}
		label := fmt.Sprintf("Table %d", o.TableID)
		if o.IsParcel {
			label = "Parcel Order"
		}
		out = append(out, Ticket{
			Order:    o,
			Label:    label,
			PlacedAt: o.CreatedAt.In(ks.loc).Format("15:04"),
			Waiting:  now.Sub(o.CreatedAt).Truncate(time.Minute).String(),
		})
	}
	return out
}

func (ks *KitchenService) Apply(ctx context.Context, orderID string, action Action) (domain.Order, error) {
	to, ok := actionTargets[action]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return ks.orders.UpdateStatus(ctx, orderID, to)
}

func (ks *KitchenService) StartPreparing(ctx context.Context, id string) (domain.Order, error) {
	return ks.Apply(ctx, id, ActionStart)
}

func (ks *KitchenService) MarkReady(ctx context.Context, id string) (domain.Order, error) {
	return ks.Apply(ctx, id, ActionReady)
}

func (ks *KitchenService) Cancel(ctx context.Context, id string) (domain.Order, error) {
	return ks.Apply(ctx, id, ActionCancel)
}

func (ks *KitchenService) MarkServed(ctx context.Context, id string) (domain.Order, error) {
	return ks.Apply(ctx, id, ActionServe)
}
