package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-system/internal/common/retry"
	"restaurant-system/internal/domain"
	"restaurant-system/internal/microservices/analytics/repository"
	"restaurant-system/internal/store/storetest"
)

func order(id string, status domain.OrderStatus, at time.Time, total float64, qty int) domain.Order {
	return domain.Order{
		ID: id, TableID: 1, Status: status, CreatedAt: at, Total: total,
		Items: []domain.OrderItem{{Name: "x", Quantity: qty, Price: total / float64(qty)}},
	}
}

func TestDaily_GroupsByLocalDate(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 20:00 UTC on the 17th is already the 18th in India.
	orders := []domain.Order{
		order("a", domain.StatusPaid, time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC), 250, 3),
		order("b", domain.StatusReady, time.Date(2026, 10, 18, 5, 0, 0, 0, time.UTC), 100, 1),
		order("c", domain.StatusPaid, time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC), 80, 2),
		order("d", domain.StatusCancelled, time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC), 999, 1),
	}

	r := Daily(orders, TabAll, ist)
	require.Len(t, r.Days, 2)
	assert.Equal(t, "2026-10-18", r.Days[0].Date)
	assert.Equal(t, 2, r.Days[0].TotalOrders)
	assert.InDelta(t, 350, r.Days[0].TotalRevenue, 0.001)
	assert.Equal(t, 4, r.Days[0].ItemsSold)
	assert.Equal(t, "2026-10-17", r.Days[1].Date)

	assert.Equal(t, 3, r.Summary.TotalOrders)
	assert.InDelta(t, 430, r.Summary.TotalRevenue, 0.001)
	assert.Equal(t, "₹430", r.Summary.Revenue)
}

func TestDaily_CancelledTab(t *testing.T) {
	orders := []domain.Order{
		order("a", domain.StatusPaid, time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC), 250, 1),
		order("d", domain.StatusCancelled, time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC), 120, 1),
	}
	r := Daily(orders, TabCancelled, time.UTC)
	require.Len(t, r.Days, 1)
	assert.Equal(t, "d", r.Days[0].Orders[0].ID)
	assert.Equal(t, 1, r.Summary.TotalOrders)
}

func TestDaily_Empty(t *testing.T) {
	r := Daily(nil, TabAll, nil)
	assert.Empty(t, r.Days)
	assert.Equal(t, "₹0", r.Summary.Revenue)
}

func TestParseTab(t *testing.T) {
	tab, err := ParseTab("")
	require.NoError(t, err)
	assert.Equal(t, TabAll, tab)
	_, err = ParseTab("refunds")
	assert.Error(t, err)
}

func TestRecorded(t *testing.T) {
	st := storetest.New()
	repo := repository.NewAnalyticsRepository(st, retry.Once())
	require.NoError(t, repo.RecordPaid(context.Background(), st, []domain.Order{
		{ID: "o1", Total: 250},
		{ID: "o2", Total: 100},
	}))

	s, err := NewAnalyticsService(repo, time.UTC).Recorded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalOrders)
	assert.InDelta(t, 350, s.TotalRevenue, 0.001)
}
