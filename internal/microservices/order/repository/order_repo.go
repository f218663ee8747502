package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"restaurant-system/internal/common/retry"
	"restaurant-system/internal/domain"
	"restaurant-system/internal/store"
)

const (
	ordersTable = "orders"
	itemsTable  = "order_items"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepositoryInterface interface {
	Create(ctx context.Context, draft domain.NewOrder) (domain.Order, error)
	AppendItems(ctx context.Context, orderID string, items []domain.OrderItem, newTotal float64) error
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	List(ctx context.Context) ([]domain.Order, error)
	ListActiveByTable(ctx context.Context, tableID int) ([]domain.Order, error)
	// MarkPaid sets every given order to paid inside tx.
	MarkPaid(ctx context.Context, tx store.Store, orderIDs []string) error
}

type OrderRepository struct {
	store  store.Store
	policy retry.Policy
}

func NewOrderRepository(st store.Store, policy retry.Policy) OrderRepositoryInterface {
	return &OrderRepository{store: st, policy: policy}
}

// Create writes the header and its items in one transaction. Ids are
// generated here, so a retry after a lost commit reply hits the primary key
// and is treated as done. Items are not assembled from the insert; callers
// re-list.
func (or *OrderRepository) Create(ctx context.Context, draft domain.NewOrder) (domain.Order, error) {
	if err := draft.Validate(); err != nil {
		return domain.Order{}, err
	}
	orderID := uuid.NewString()
	header := store.Record{
		"id":       orderID,
		"table_id": draft.TableID,
		"status":   string(domain.StatusPending),
		"total":    draft.Total,
	}
	if draft.SpecialNotes != "" {
		header["special_notes"] = draft.SpecialNotes
	}
	items := itemRecords(orderID, draft.Items)

	var (
		row     store.Record
		attempt int
	)
	err := retry.Do(ctx, or.policy, func(ctx context.Context) error {
		attempt++
		err := or.store.WithinTx(ctx, func(tx store.Store) error {
			// 1. Insert order
			r, err := tx.Insert(ctx, ordersTable, header)
			if err != nil {
				return fmt.Errorf("failed to insert order: %w", err)
			}
			// 2. Insert order items
			if err := tx.InsertMany(ctx, itemsTable, items); err != nil {
				return fmt.Errorf("failed to insert order items: %w", err)
			}
			row = r
			return nil
		})
		if attempt > 1 && isDuplicateKey(err, ordersTable) {
			// an earlier attempt committed but its reply was lost
			return or.loadHeader(ctx, orderID, &row)
		}
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return orderFromRow(row), nil
}

func (or *OrderRepository) loadHeader(ctx context.Context, orderID string, row *store.Record) error {
	rows, err := or.store.Select(ctx, store.Query{
		Table: ordersTable,
		Where: []store.Cond{store.Eq("id", orderID)},
	})
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	*row = rows[0]
	return nil
}

// isDuplicateKey reports whether err is a primary key violation on table.
func isDuplicateKey(err error, table string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == table+"_pkey"
}

// AppendItems adds items to an existing order and sets its total to
// newTotal, which the caller has already computed.
func (or *OrderRepository) AppendItems(ctx context.Context, orderID string, items []domain.OrderItem, newTotal float64) error {
	if len(items) == 0 {
		return errors.New("at least one item is required")
	}
	recs := itemRecords(orderID, items)
	attempt := 0
	return retry.Do(ctx, or.policy, func(ctx context.Context) error {
		attempt++
		err := or.store.WithinTx(ctx, func(tx store.Store) error {
			if err := tx.InsertMany(ctx, itemsTable, recs); err != nil {
				return fmt.Errorf("failed to insert order items: %w", err)
			}
			n, err := tx.Update(ctx, ordersTable, orderID, store.Record{"total": newTotal})
			if err != nil {
				return fmt.Errorf("failed to update order total: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
			}
			return nil
		})
		if attempt > 1 && isDuplicateKey(err, itemsTable) {
			// the items and the total went in together on an earlier attempt
			return nil
		}
		return err
	})
}

// UpdateStatus writes status unconditionally. Transition rules are the
// caller's concern.
func (or *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	return retry.Do(ctx, or.policy, func(ctx context.Context) error {
		n, err := or.store.Update(ctx, ordersTable, orderID, store.Record{"status": string(status)})
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil
	})
}

func (or *OrderRepository) MarkPaid(ctx context.Context, tx store.Store, orderIDs []string) error {
	for _, id := range orderIDs {
		n, err := tx.Update(ctx, ordersTable, id, store.Record{"status": string(domain.StatusPaid)})
		if err != nil {
			return fmt.Errorf("failed to mark order %s paid: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
	}
	return nil
}

// List returns every order with its items, newest first.
func (or *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return or.list(ctx, nil)
}

func (or *OrderRepository) ListActiveByTable(ctx context.Context, tableID int) ([]domain.Order, error) {
	return or.list(ctx, []store.Cond{
		store.Eq("table_id", tableID),
		store.NotIn("status", string(domain.StatusPaid), string(domain.StatusCancelled)),
	})
}

func (or *OrderRepository) list(ctx context.Context, where []store.Cond) ([]domain.Order, error) {
	rows, err := retry.Value(ctx, or.policy, func(ctx context.Context) ([]store.Record, error) {
		return or.store.Select(ctx, store.Query{
			Table:   ordersTable,
			Where:   where,
			OrderBy: "created_at",
			Desc:    true,
			Embed: &store.Embed{
				Table:      itemsTable,
				ForeignKey: "order_id",
				OrderBy:    []string{"created_at", "position"},
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, orderFromRow(row))
	}
	return orders, nil
}

// itemRecords numbers items from 0 in the order given. Items of one batch
// share created_at, so position keeps them in insertion order.
func itemRecords(orderID string, items []domain.OrderItem) []store.Record {
	recs := make([]store.Record, 0, len(items))
	for i, it := range items {
		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		customizations := it.Customizations
		if customizations == nil {
			customizations = []string{}
		}
		recs = append(recs, store.Record{
			"id":             id,
			"order_id":       orderID,
			"name":           it.Name,
			"quantity":       it.Quantity,
			"price":          it.Price,
			"image_url":      it.Image,
			"customizations": customizations,
			"position":       i,
		})
	}
	return recs
}
