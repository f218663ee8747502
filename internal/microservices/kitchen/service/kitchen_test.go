package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-system/internal/domain"
)

type updaterFunc func(ctx context.Context, id string, to domain.OrderStatus) (domain.Order, error)

func (f updaterFunc) UpdateStatus(ctx context.Context, id string, to domain.OrderStatus) (domain.Order, error) {
	return f(ctx, id, to)
}

func TestQueue(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	ks := NewKitchenService(nil, ist)
	placed := time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)
	ks.now = func() time.Time { return placed.Add(12*time.Minute + 30*time.Second) }

	orders := []domain.Order{
		{ID: "a", TableID: 2, Status: domain.StatusPreparing, CreatedAt: placed},
		{ID: "b", TableID: 3, Status: domain.StatusReady, CreatedAt: placed},
		{ID: "c", TableID: 99, IsParcel: true, Status: domain.StatusPending, CreatedAt: placed},
		{ID: "d", TableID: 4, Status: domain.StatusPaid, CreatedAt: placed},
	}
	q := ks.Queue(orders)
	require.Len(t, q, 2)
	assert.Equal(t, "a", q[0].Order.ID)
	assert.Equal(t, "Table 2", q[0].Label)
	assert.Equal(t, "11:30", q[0].PlacedAt)
	assert.Equal(t, "12m0s", q[0].Waiting)
	assert.Equal(t, "Parcel Order", q[1].Label)
}

func TestApply_MapsActionsToStatuses(t *testing.T) {
	var got []domain.OrderStatus
	ks := NewKitchenService(updaterFunc(func(_ context.Context, id string, to domain.OrderStatus) (domain.Order, error) {
		got = append(got, to)
		return domain.Order{ID: id, Status: to}, nil
	}), nil)
	ctx := context.Background()

	_, err := ks.StartPreparing(ctx, "x")
	require.NoError(t, err)
	_, err = ks.MarkReady(ctx, "x")
	require.NoError(t, err)
	_, err = ks.MarkServed(ctx, "x")
	require.NoError(t, err)
	_, err = ks.Cancel(ctx, "y")
	require.NoError(t, err)

	assert.Equal(t, []domain.OrderStatus{
		domain.StatusPreparing, domain.StatusReady, domain.StatusServed, domain.StatusCancelled,
	}, got)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("ready")
	require.NoError(t, err)
	assert.Equal(t, ActionReady, a)

	_, err = ParseAction("burn")
	assert.ErrorIs(t, err, ErrUnknownAction)
}
