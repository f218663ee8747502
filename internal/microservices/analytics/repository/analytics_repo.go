package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"restaurant-system/internal/common/retry"
	"restaurant-system/internal/domain"
	"restaurant-system/internal/store"
)

const analyticsTable = "analytics"

type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "paid"
	PaymentUnpaid PaymentStatus = "unpaid"
)

// Entry is one row of the analytics table.
type Entry struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"order_id"`
	TotalAmount   float64       `json:"total_amount"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
}

type AnalyticsRepositoryInterface interface {
	// RecordPaid writes one paid entry per order through st, which is
	// usually the transaction that marks the orders paid.
	RecordPaid(ctx context.Context, st store.Store, orders []domain.Order) error
	List(ctx context.Context) ([]Entry, error)
}

type AnalyticsRepository struct {
	store  store.Store
	policy retry.Policy
}

func NewAnalyticsRepository(st store.Store, policy retry.Policy) AnalyticsRepositoryInterface {
	return &AnalyticsRepository{store: st, policy: policy}
}

func (ar *AnalyticsRepository) RecordPaid(ctx context.Context, st store.Store, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	recs := make([]store.Record, 0, len(orders))
	for _, o := range orders {
		recs = append(recs, store.Record{
			"id":             uuid.NewString(),
			"order_id":       o.ID,
			"total_amount":   o.Total,
			"payment_status": string(PaymentPaid),
		})
	}
	if err := st.InsertMany(ctx, analyticsTable, recs); err != nil {
		return fmt.Errorf("failed to record analytics: %w", err)
	}
	return nil
}

func (ar *AnalyticsRepository) List(ctx context.Context) ([]Entry, error) {
	rows, err := retry.Value(ctx, ar.policy, func(ctx context.Context) ([]store.Record, error) {
		return ar.store.Select(ctx, store.Query{Table: analyticsTable, OrderBy: "created_at", Desc: true})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e := Entry{
			PaymentStatus: PaymentStatus(fmt.Sprint(r["payment_status"])),
		}
		e.ID, _ = r["id"].(string)
		e.OrderID, _ = r["order_id"].(string)
		e.TotalAmount, _ = r["total_amount"].(float64)
		e.CreatedAt, _ = r["created_at"].(time.Time)
		out = append(out, e)
	}
	return out, nil
}
