package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/common/retry"
)

// Channel is the LISTEN channel the row-change trigger notifies for table.
func Channel(table string) string { return table + "_changes" }

// reconnectPolicy waits 1s, 2s, 4s, 8s, 16s between attempts to restore a
// dropped change feed.
var reconnectPolicy = retry.Policy{Attempts: 6, Base: time.Second}

type listener interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close()
}

// pgListener is a pooled connection that LISTENs on one channel. It is
// closed rather than released, since a LISTENing session must not be reused.
type pgListener struct{ conn *pgxpool.Conn }

func (l pgListener) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return l.conn.Conn().WaitForNotification(ctx)
}

func (l pgListener) Close() {
	_ = l.conn.Conn().Close(context.Background())
	l.conn.Release()
}

type pgSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *pgSubscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

// Subscribe holds one pooled connection for the lifetime of the
// subscription and dispatches notifications in arrival order. A dropped
// connection is re-established under the reconnect policy and followed by
// an OpResync change; when that fails, OpLost is delivered and the feed ends.
func (c *Client) Subscribe(ctx context.Context, table string, match func(Change) bool, onChange func(Change)) (Subscription, error) {
	if c.tx != nil {
		return nil, errors.New("subscribe inside a transaction")
	}
	open := func(ctx context.Context) (listener, error) {
		conn, err := c.pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire listen connection: %w", err)
		}
		if _, err := conn.Exec(ctx, "LISTEN "+ident(Channel(table))); err != nil {
			conn.Release()
			return nil, fmt.Errorf("listen %s: %w", Channel(table), err)
		}
		return pgListener{conn: conn}, nil
	}
	lg := logger.New("store")
	policy := reconnectPolicy
	policy.Log = lg
	return startFeed(ctx, feed{
		table:    table,
		match:    match,
		onChange: onChange,
		open:     open,
		policy:   policy,
		log:      lg,
	})
}

type feed struct {
	table    string
	match    func(Change) bool
	onChange func(Change)
	open     func(ctx context.Context) (listener, error)
	policy   retry.Policy
	log      *logger.Logger
}

// startFeed opens the first listener with ctx and then runs detached from
// it until the subscription is closed.
func startFeed(ctx context.Context, f feed) (Subscription, error) {
	l, err := f.open(ctx)
	if err != nil {
		return nil, err
	}
	lctx, cancel := context.WithCancel(context.Background())
	sub := &pgSubscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		f.run(lctx, l)
	}()
	return sub, nil
}

func (f feed) run(ctx context.Context, l listener) {
	fields := map[string]any{"table": f.table}
	for {
		err := f.listen(ctx, l)
		l.Close()
		if ctx.Err() != nil {
			return
		}
		f.log.Warn("change_feed_dropped", err, fields)

		l, err = retry.Value(ctx, f.policy, f.open)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.log.Error("change_feed_stopped", err, fields)
			f.onChange(Change{Table: f.table, Op: OpLost})
			return
		}
		f.log.Info("change_feed_restored", fields)
		f.onChange(Change{Table: f.table, Op: OpResync})
	}
}

// listen dispatches notifications until the connection fails or ctx ends.
func (f feed) listen(ctx context.Context, l listener) error {
	for {
		n, err := l.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var ch Change
		if err := json.Unmarshal([]byte(n.Payload), &ch); err != nil {
			f.log.Warn("change_payload_invalid", err, map[string]any{"payload": n.Payload})
			continue
		}
		if f.match == nil || f.match(ch) {
			f.onChange(ch)
		}
	}
}
