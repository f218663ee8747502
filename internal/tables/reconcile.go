// Package tables derives table occupancy from the live order set. Table
// status is never stored; it is recomputed in full on every refresh.
package tables

import "restaurant-system/internal/domain"

func rank(s domain.TableStatus) int {
	switch s {
	case domain.TableOrderInProgress:
		return 2
	case domain.TableOccupied:
		return 1
	default:
		return 0
	}
}

// statusFor maps a non-terminal order status to the table status it forces.
func statusFor(s domain.OrderStatus) domain.TableStatus {
	if s.InKitchen() {
		return domain.TableOrderInProgress
	}
	return domain.TableOccupied
}

// Reconcile returns the status of every id in ids. A table with any pending
// or preparing order is order-in-progress, otherwise any ready or served
// order makes it occupied, otherwise it is free. Order of the input does not
// matter.
func Reconcile(orders []domain.Order, ids []int) map[int]domain.TableStatus {
	out := make(map[int]domain.TableStatus, len(ids))
	for _, id := range ids {
		out[id] = domain.TableFree
	}
	for _, o := range orders {
		if o.Status.Terminal() {
			continue
		}
		cur, tracked := out[o.TableID]
		if !tracked {
			continue
		}
		if s := statusFor(o.Status); rank(s) > rank(cur) {
			out[o.TableID] = s
		}
	}
	return out
}

// IDs returns 1..n.
func IDs(n int) []int {
	ids := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, i)
	}
	return ids
}

// Grid is the dining-room view: tables 1..n in id order.
func Grid(orders []domain.Order, n int) []domain.Table {
	ids := IDs(n)
	statuses := Reconcile(orders, ids)
	grid := make([]domain.Table, 0, n)
	for _, id := range ids {
		grid = append(grid, domain.Table{ID: id, Status: statuses[id]})
	}
	return grid
}

// Active returns the non-terminal orders at tableID, in input order.
func Active(orders []domain.Order, tableID int) []domain.Order {
	var out []domain.Order
	for _, o := range orders {
		if o.TableID == tableID && !o.Status.Terminal() {
			out = append(out, o)
		}
	}
	return out
}
