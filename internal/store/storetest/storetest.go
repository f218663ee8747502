// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"restaurant-system/internal/store"
)

type subscriber struct {
	table    string
	match    func(store.Change) bool
	onChange func(store.Change)
	closed   bool
}

func (s *subscriber) Close() error { s.closed = true; return nil }

// Store keeps tables in memory. Fail, when set, is consulted before every
// operation and its error is returned instead of running it.
type Store struct {
	mu     sync.Mutex
	tables map[string][]store.Record
	subs   []*subscriber
	clock  func() time.Time

	Fail func(op, table string) error
	// Calls counts operations by "op:table".
	Calls map[string]int
}

func New() *Store {
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	n := 0
	return &Store{
		tables: map[string][]store.Record{},
		Calls:  map[string]int{},
		clock: func() time.Time {
			n++
			return base.Add(time.Duration(n) * time.Second)
		},
	}
}

// Rows returns a copy of every row in table.
func (s *Store) Rows(table string) []store.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Record, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, clone(r))
	}
	return out
}

// Seed inserts rows as given, without notifying subscribers.
func (s *Store) Seed(table string, rows ...store.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], clone(r))
	}
}

func (s *Store) before(op, table string) error {
	s.Calls[op+":"+table]++
	if s.Fail != nil {
		return s.Fail(op, table)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, table string, rec store.Record) (store.Record, error) {
	s.mu.Lock()
	if err := s.before("insert", table); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.checkKeysLocked(table, []store.Record{rec}); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	row := s.insertLocked(table, rec)
	s.mu.Unlock()
	s.notify(table, "INSERT", row["id"])
	return clone(row), nil
}

func (s *Store) InsertMany(ctx context.Context, table string, recs []store.Record) error {
	s.mu.Lock()
	if err := s.before("insert", table); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.checkKeysLocked(table, recs); err != nil {
		s.mu.Unlock()
		return err
	}
	var ids []any
	for _, r := range recs {
		ids = append(ids, s.insertLocked(table, r)["id"])
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.notify(table, "INSERT", id)
	}
	return nil
}

// checkKeysLocked rejects a batch that reuses an id, the way the primary
// key does in Postgres. Nothing of the batch is written on failure.
func (s *Store) checkKeysLocked(table string, recs []store.Record) error {
	seen := map[string]bool{}
	for _, row := range s.tables[table] {
		seen[fmt.Sprint(row["id"])] = true
	}
	for _, r := range recs {
		id, ok := r["id"]
		if !ok {
			continue
		}
		key := fmt.Sprint(id)
		if seen[key] {
			return &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				Message:        fmt.Sprintf("duplicate key value violates unique constraint \"%s_pkey\"", table),
				TableName:      table,
				ConstraintName: table + "_pkey",
			}
		}
		seen[key] = true
	}
	return nil
}

func (s *Store) insertLocked(table string, rec store.Record) store.Record {
	row := clone(rec)
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.NewString()
	}
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = s.clock()
	}
	s.tables[table] = append(s.tables[table], row)
	return row
}

func (s *Store) Update(ctx context.Context, table, id string, partial store.Record) (int64, error) {
	s.mu.Lock()
	if err := s.before("update", table); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	n := s.updateLocked(table, id, partial)
	s.mu.Unlock()
	if n > 0 {
		s.notify(table, "UPDATE", id)
	}
	return n, nil
}

func (s *Store) updateLocked(table, id string, partial store.Record) int64 {
	var n int64
	for _, row := range s.tables[table] {
		if row["id"] == id {
			for k, v := range partial {
				row[k] = v
			}
			n++
		}
	}
	return n
}

func (s *Store) Select(ctx context.Context, q store.Query) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.before("select", q.Table); err != nil {
		return nil, err
	}
	var out []store.Record
	for _, row := range s.tables[q.Table] {
		ok, err := matches(row, q.Where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, clone(row))
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			if q.Desc {
				return lessValue(out[j][q.OrderBy], out[i][q.OrderBy])
			}
			return lessValue(out[i][q.OrderBy], out[j][q.OrderBy])
		})
	}
	if q.Embed != nil {
		e := *q.Embed
		for _, p := range out {
			children := []store.Record{}
			for _, ch := range s.tables[e.Table] {
				if ch[e.ForeignKey] == p["id"] {
					children = append(children, clone(ch))
				}
			}
			order := e.Order()
			sort.SliceStable(children, func(i, j int) bool {
				for _, col := range order {
					a, b := children[i][col], children[j][col]
					if lessValue(a, b) {
						return true
					}
					if lessValue(b, a) {
						return false
					}
				}
				return false
			})
			p[e.Key()] = children
		}
	}
	return out, nil
}

// WithinTx snapshots every table and restores it when fn fails.
// Notifications are delivered only after a successful commit.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	s.mu.Lock()
	if err := s.before("tx", ""); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := make(map[string][]store.Record, len(s.tables))
	for t, rows := range s.tables {
		cp := make([]store.Record, 0, len(rows))
		for _, r := range rows {
			cp = append(cp, clone(r))
		}
		snapshot[t] = cp
	}
	s.mu.Unlock()

	tx := &txStore{parent: s}
	if err := fn(tx); err != nil {
		s.mu.Lock()
		s.tables = snapshot
		s.mu.Unlock()
		return err
	}
	for _, c := range tx.changes {
		s.notify(c.Table, c.Op, c.ID)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, table string, match func(store.Change) bool, onChange func(store.Change)) (store.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.before("subscribe", table); err != nil {
		return nil, err
	}
	sub := &subscriber{table: table, match: match, onChange: onChange}
	s.subs = append(s.subs, sub)
	return sub, nil
}

// OpenSubscriptions counts subscriptions not yet closed.
func (s *Store) OpenSubscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sub := range s.subs {
		if !sub.closed {
			n++
		}
	}
	return n
}

// DropFeed simulates the change feed of table losing its connection. When
// restored is true subscribers get OpResync and stay open; otherwise they
// get OpLost and are closed.
func (s *Store) DropFeed(table string, restored bool) {
	s.mu.Lock()
	var targets []*subscriber
	for _, sub := range s.subs {
		if !sub.closed && sub.table == table {
			targets = append(targets, sub)
			if !restored {
				sub.closed = true
			}
		}
	}
	s.mu.Unlock()
	op := store.OpLost
	if restored {
		op = store.OpResync
	}
	for _, sub := range targets {
		sub.onChange(store.Change{Table: table, Op: op})
	}
}

func (s *Store) notify(table, op string, id any) {
	s.mu.Lock()
	ch := store.Change{Table: table, Op: op, ID: fmt.Sprint(id)}
	var targets []*subscriber
	for _, sub := range s.subs {
		if !sub.closed && sub.table == table && (sub.match == nil || sub.match(ch)) {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()
	for _, sub := range targets {
		sub.onChange(ch)
	}
}

type txStore struct {
	parent  *Store
	changes []store.Change
}

func (t *txStore) Insert(ctx context.Context, table string, rec store.Record) (store.Record, error) {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	if err := t.parent.before("insert", table); err != nil {
		return nil, err
	}
	if err := t.parent.checkKeysLocked(table, []store.Record{rec}); err != nil {
		return nil, err
	}
	row := t.parent.insertLocked(table, rec)
	t.changes = append(t.changes, store.Change{Table: table, Op: "INSERT", ID: fmt.Sprint(row["id"])})
	return clone(row), nil
}

func (t *txStore) InsertMany(ctx context.Context, table string, recs []store.Record) error {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	if err := t.parent.before("insert", table); err != nil {
		return err
	}
	if err := t.parent.checkKeysLocked(table, recs); err != nil {
		return err
	}
	for _, r := range recs {
		row := t.parent.insertLocked(table, r)
		t.changes = append(t.changes, store.Change{Table: table, Op: "INSERT", ID: fmt.Sprint(row["id"])})
	}
	return nil
}

func (t *txStore) Update(ctx context.Context, table, id string, partial store.Record) (int64, error) {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	if err := t.parent.before("update", table); err != nil {
		return 0, err
	}
	n := t.parent.updateLocked(table, id, partial)
	if n > 0 {
		t.changes = append(t.changes, store.Change{Table: table, Op: "UPDATE", ID: id})
	}
	return n, nil
}

func (t *txStore) Select(ctx context.Context, q store.Query) ([]store.Record, error) {
	return t.parent.Select(ctx, q)
}

func (t *txStore) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

func matches(row store.Record, conds []store.Cond) (bool, error) {
	for _, c := range conds {
		v := row[c.Column]
		switch c.Op {
		case store.OpEq:
			if !equal(v, c.Value) {
				return false, nil
			}
		case store.OpNeq:
			if equal(v, c.Value) {
				return false, nil
			}
		case store.OpIn, store.OpNotIn:
			found := contains(c.Value, v)
			if found != (c.Op == store.OpIn) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("%w: %q", store.ErrUnknownOp, c.Op)
		}
	}
	return true, nil
}

func contains(list, v any) bool {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if equal(rv.Index(i).Interface(), v) {
			return true
		}
	}
	return false
}

func equal(a, b any) bool { return fmt.Sprint(a) == fmt.Sprint(b) }

func lessValue(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, _ := b.(time.Time)
		return x.Before(y)
	case int:
		y, _ := b.(int)
		return x < y
	case float64:
		y, _ := b.(float64)
		return x < y
	default:
		return fmt.Sprint(a) < fmt.Sprint(b)
	}
}

func clone(r store.Record) store.Record {
	out := make(store.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
