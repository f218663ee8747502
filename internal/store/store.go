// Package store is the remote store client: row-level insert, update and
// select against the hosted database, plus a change feed per table.
package store

import (
	"context"
	"errors"
)

// Record is one row keyed by snake_case column name.
type Record map[string]any

type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpIn    Op = "in"
	OpNotIn Op = "not_in"
)

type Cond struct {
	Column string
	Op     Op
	Value  any
}

func Eq(col string, v any) Cond { return Cond{Column: col, Op: OpEq, Value: v} }

func NotIn[T any](col string, vs ...T) Cond { return Cond{Column: col, Op: OpNotIn, Value: vs} }

// Embed attaches child rows of Table whose ForeignKey references the parent
// id, stored under As (defaults to Table) as []Record. Children are sorted
// by OrderBy, created_at when empty; rows written in one statement share a
// created_at, so callers that care about insertion order add a tiebreaker.
type Embed struct {
	Table      string
	ForeignKey string
	As         string
	OrderBy    []string
}

func (e Embed) Order() []string {
	if len(e.OrderBy) == 0 {
		return []string{"created_at"}
	}
	return e.OrderBy
}

func (e Embed) Key() string {
	if e.As != "" {
		return e.As
	}
	return e.Table
}

type Query struct {
	Table   string
	Where   []Cond
	OrderBy string
	Desc    bool
	Embed   *Embed
}

// Feed events delivered alongside row changes, regardless of the match
// predicate. OpResync follows a restored connection: changes made while it
// was down were not seen. OpLost means the feed could not be restored and
// no further changes will arrive.
const (
	OpResync = "RESYNC"
	OpLost   = "LOST"
)

// Change is one row-level notification.
type Change struct {
	Table string `json:"table"`
	Op    string `json:"op"`
	ID    string `json:"id"`
}

type Subscription interface {
	Close() error
}

var ErrUnknownOp = errors.New("unknown condition operator")

// Store is implemented by the pgx Client, by a transaction of it, and by
// storetest.Store.
type Store interface {
	Insert(ctx context.Context, table string, rec Record) (Record, error)
	InsertMany(ctx context.Context, table string, recs []Record) error
	Update(ctx context.Context, table, id string, partial Record) (int64, error)
	Select(ctx context.Context, q Query) ([]Record, error)

	// WithinTx runs fn as one atomic unit. fn must only use tx.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// Subscriber opens a long-lived change feed on a table. onChange runs for
// every insert, update or delete that match accepts (nil accepts all), and
// for the OpResync and OpLost feed events. The caller owns the returned
// Subscription and must Close it.
type Subscriber interface {
	Subscribe(ctx context.Context, table string, match func(Change) bool, onChange func(Change)) (Subscription, error)
}
