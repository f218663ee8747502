package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-system/internal/common/retry"
	"restaurant-system/internal/domain"
	"restaurant-system/internal/store"
	"restaurant-system/internal/store/storetest"
)

func noWait() retry.Policy {
	return retry.Policy{
		Attempts: 3,
		Base:     time.Second,
		Sleep:    func(context.Context, time.Duration) error { return nil },
	}
}

func draft(tableID int) domain.NewOrder {
	items := []domain.OrderItem{
		{Name: "Paneer Tikka", Price: 100, Quantity: 2, Customizations: []string{"extra spicy"}},
		{Name: "Lassi", Price: 50, Quantity: 1},
	}
	return domain.NewOrder{TableID: tableID, Items: items, Total: domain.ItemsTotal(items)}
}

func TestCreate_StoresHeaderAndItems(t *testing.T) {
	st := storetest.New()
	repo := NewOrderRepository(st, noWait())
	ctx := context.Background()

	created, err := repo.Create(ctx, draft(3))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, 3, created.TableID)
	assert.InDelta(t, 250, created.Total, 0.001)

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, created.ID, o.ID)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Paneer Tikka", o.Items[0].Name)
	assert.Equal(t, []string{"extra spicy"}, o.Items[0].Customizations)
	assert.False(t, o.IsParcel)
}

func TestCreate_FailedItemsLeaveNoHeader(t *testing.T) {
	st := storetest.New()
	st.Fail = func(op, table string) error {
		if op == "insert" && table == itemsTable {
			return errors.New("items rejected")
		}
		return nil
	}
	repo := NewOrderRepository(st, noWait())

	_, err := repo.Create(context.Background(), draft(3))
	require.Error(t, err)
	assert.Empty(t, st.Rows(ordersTable))
	assert.Empty(t, st.Rows(itemsTable))
	assert.Equal(t, 3, st.Calls["tx:"])
}

func TestCreate_RetryDoesNotDuplicate(t *testing.T) {
	st := storetest.New()
	fails := 1
	st.Fail = func(op, table string) error {
		if op == "insert" && table == itemsTable && fails > 0 {
			fails--
			return errors.New("timeout")
		}
		return nil
	}
	repo := NewOrderRepository(st, noWait())

	_, err := repo.Create(context.Background(), draft(5))
	require.NoError(t, err)
	assert.Len(t, st.Rows(ordersTable), 1)
	assert.Len(t, st.Rows(itemsTable), 2)
}

// lostReply commits the transaction but reports a dropped connection the
// first lost times, as when the commit acknowledgement never arrives.
type lostReply struct {
	*storetest.Store
	lost int
}

func (l *lostReply) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	if err := l.Store.WithinTx(ctx, fn); err != nil {
		return err
	}
	if l.lost > 0 {
		l.lost--
		return errors.New("read: connection reset by peer")
	}
	return nil
}

func TestCreate_LostCommitReplyIsNotAnError(t *testing.T) {
	st := &lostReply{Store: storetest.New(), lost: 1}
	repo := NewOrderRepository(st, noWait())

	created, err := repo.Create(context.Background(), draft(6))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Calls["tx:"])

	rows := st.Rows(ordersTable)
	require.Len(t, rows, 1)
	assert.Equal(t, rows[0]["id"], created.ID)
	assert.Equal(t, 6, created.TableID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Len(t, st.Rows(itemsTable), 2)
}

func TestAppendItems_LostCommitReplyIsNotAnError(t *testing.T) {
	st := &lostReply{Store: storetest.New()}
	repo := NewOrderRepository(st, noWait())
	ctx := context.Background()
	created, err := repo.Create(ctx, draft(2))
	require.NoError(t, err)

	st.lost = 1
	extra := []domain.OrderItem{{Name: "Naan", Price: 40, Quantity: 2}}
	require.NoError(t, repo.AppendItems(ctx, created.ID, extra, 330))
	assert.Len(t, st.Rows(itemsTable), 3)
}

func TestCreate_DuplicateOnFirstAttemptIsAnError(t *testing.T) {
	st := storetest.New()
	repo := NewOrderRepository(st, noWait())
	d := draft(1)
	d.Items[0].ID = "item-1"
	st.Seed(itemsTable, store.Record{"id": "item-1", "order_id": "other"})

	_, err := repo.Create(context.Background(), d)
	require.Error(t, err)
	assert.False(t, isDuplicateKey(err, ordersTable))
	assert.True(t, isDuplicateKey(err, itemsTable))
	assert.Empty(t, st.Rows(ordersTable))
}

func TestCreate_RejectsEmptyDraft(t *testing.T) {
	repo := NewOrderRepository(storetest.New(), noWait())
	_, err := repo.Create(context.Background(), domain.NewOrder{TableID: 1})
	assert.Error(t, err)
}

func TestAppendItems_SetsAbsoluteTotal(t *testing.T) {
	st := storetest.New()
	repo := NewOrderRepository(st, noWait())
	ctx := context.Background()
	created, err := repo.Create(ctx, draft(2))
	require.NoError(t, err)

	extra := []domain.OrderItem{{Name: "Naan", Price: 40, Quantity: 2}}
	require.NoError(t, repo.AppendItems(ctx, created.ID, extra, created.Total+domain.ItemsTotal(extra)))

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.InDelta(t, 330, orders[0].Total, 0.001)
	assert.Len(t, orders[0].Items, 3)
}

func TestAppendItems_UnknownOrderRollsBack(t *testing.T) {
	st := storetest.New()
	repo := NewOrderRepository(st, noWait())

	err := repo.AppendItems(context.Background(), "missing", []domain.OrderItem{{Name: "Naan", Price: 40, Quantity: 1}}, 40)
	require.ErrorIs(t, err, ErrOrderNotFound)
	assert.Empty(t, st.Rows(itemsTable))
}

func TestUpdateStatus(t *testing.T) {
	st := storetest.New()
	repo := NewOrderRepository(st, noWait())
	ctx := context.Background()
	created, err := repo.Create(ctx, draft(4))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, created.ID, domain.StatusReady))
	orders, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, orders[0].Status)

	err = repo.UpdateStatus(ctx, "nope", domain.StatusReady)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatus_ReturnsLastErrorAfterRetries(t *testing.T) {
	st := storetest.New()
	boom := errors.New("network down")
	st.Fail = func(op, _ string) error {
		if op == "update" {
			return boom
		}
		return nil
	}
	repo := NewOrderRepository(st, noWait())

	err := repo.UpdateStatus(context.Background(), "id", domain.StatusPaid)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, st.Calls["update:"+ordersTable])
}

func TestList_NewestFirstAndParcelFlag(t *testing.T) {
	st := storetest.New()
	st.Seed(ordersTable,
		store.Record{"id": "old", "table_id": int32(1), "status": "paid", "total": 10.0, "created_at": time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		store.Record{"id": "new", "table_id": int32(99), "status": "pending", "total": 20.0, "created_at": time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)},
	)
	repo := NewOrderRepository(st, noWait())

	orders, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "new", orders[0].ID)
	assert.True(t, orders[0].IsParcel)
	assert.Empty(t, orders[0].Items)
	assert.False(t, orders[1].IsParcel)
}

func TestListActiveByTable(t *testing.T) {
	st := storetest.New()
	st.Seed(ordersTable,
		store.Record{"id": "a", "table_id": 5, "status": "paid", "total": 10.0},
		store.Record{"id": "b", "table_id": 5, "status": "ready", "total": 20.0},
		store.Record{"id": "c", "table_id": 6, "status": "pending", "total": 30.0},
		store.Record{"id": "d", "table_id": 5, "status": "cancelled", "total": 40.0},
	)
	repo := NewOrderRepository(st, noWait())

	orders, err := repo.ListActiveByTable(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "b", orders[0].ID)
}

func TestMarkPaid(t *testing.T) {
	st := storetest.New()
	st.Seed(ordersTable,
		store.Record{"id": "a", "table_id": 5, "status": "ready"},
		store.Record{"id": "b", "table_id": 5, "status": "pending"},
	)
	repo := NewOrderRepository(st, noWait())

	err := st.WithinTx(context.Background(), func(tx store.Store) error {
		return repo.MarkPaid(context.Background(), tx, []string{"a", "b"})
	})
	require.NoError(t, err)
	for _, r := range st.Rows(ordersTable) {
		assert.Equal(t, "paid", r["status"])
	}
}

func TestMapping(t *testing.T) {
	assert.Equal(t, 7, asInt(int64(7)))
	assert.Equal(t, 7, asInt("7"))
	assert.InDelta(t, 2.5, asFloat("2.5"), 0.0001)
	assert.Equal(t, []string{"a", "b"}, asStrings([]any{"a", "b"}))
	assert.Nil(t, asStrings(nil))
	assert.Equal(t, "", asString(nil))
}

func TestItemRecords_NumberPositions(t *testing.T) {
	recs := itemRecords("o1", draft(1).Items)
	require.Len(t, recs, 2)
	assert.Equal(t, 0, recs[0]["position"])
	assert.Equal(t, 1, recs[1]["position"])
}

func TestList_ItemsKeepInsertionOrderWhenTimestampsTie(t *testing.T) {
	st := storetest.New()
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	st.Seed(ordersTable, store.Record{"id": "o1", "table_id": 1, "status": "pending", "total": 150.0, "created_at": at})
	st.Seed(itemsTable,
		store.Record{"id": "i2", "order_id": "o1", "name": "Lassi", "quantity": 1, "price": 50.0, "position": 1, "created_at": at},
		store.Record{"id": "i1", "order_id": "o1", "name": "Paneer Tikka", "quantity": 1, "price": 100.0, "position": 0, "created_at": at},
	)

	orders, err := NewOrderRepository(st, noWait()).List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 2)
	assert.Equal(t, "Paneer Tikka", orders[0].Items[0].Name)
	assert.Equal(t, "Lassi", orders[0].Items[1].Name)
}
