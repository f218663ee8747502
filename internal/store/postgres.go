package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Client talks to Postgres through a pgx pool.
type Client struct {
	pool *pgxpool.Pool
	q    querier
	tx   pgx.Tx
}

func NewClient(pool *pgxpool.Pool) *Client { return &Client{pool: pool, q: pool} }

func (c *Client) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	cols, args := columns(rec)
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		ident(table), joinIdents(cols), placeholders(1, len(cols)))
	rows, err := c.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	return normalize(row), nil
}

func (c *Client) InsertMany(ctx context.Context, table string, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	cols, _ := columns(recs[0])
	var (
		values []string
		args   []any
	)
	for _, rec := range recs {
		tuple := make([]any, 0, len(cols))
		for _, col := range cols {
			tuple = append(tuple, rec[col])
		}
		values = append(values, "("+placeholders(len(args)+1, len(cols))+")")
		args = append(args, tuple...)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		ident(table), joinIdents(cols), strings.Join(values, ", "))
	if _, err := c.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %d rows into %s: %w", len(recs), table, err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, table, id string, partial Record) (int64, error) {
	cols, args := columns(partial)
	sets := make([]string, 0, len(cols))
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", ident(col), i+1))
	}
	args = append(args, id)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", ident(table), strings.Join(sets, ", "), len(args))
	tag, err := c.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s %s: %w", table, id, err)
	}
	return tag.RowsAffected(), nil
}

func (c *Client) Select(ctx context.Context, q Query) ([]Record, error) {
	where, args, err := whereClause(q.Where)
	if err != nil {
		return nil, err
	}
	sql := "SELECT * FROM " + ident(q.Table) + where
	if q.OrderBy != "" {
		sql += " ORDER BY " + ident(q.OrderBy)
		if q.Desc {
			sql += " DESC"
		}
	}
	parents, err := c.collect(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	if q.Embed == nil || len(parents) == 0 {
		return parents, nil
	}
	return c.embed(ctx, parents, *q.Embed)
}

func (c *Client) embed(ctx context.Context, parents []Record, e Embed) ([]Record, error) {
	ids := make([]string, 0, len(parents))
	byID := make(map[string]Record, len(parents))
	for _, p := range parents {
		id, _ := p["id"].(string)
		ids = append(ids, id)
		byID[id] = p
		p[e.Key()] = []Record{}
	}
	children, err := c.collect(ctx, embedSQL(e), ids)
	if err != nil {
		return nil, fmt.Errorf("select %s for embed: %w", e.Table, err)
	}
	for _, ch := range children {
		fk, _ := ch[e.ForeignKey].(string)
		if p, ok := byID[fk]; ok {
			p[e.Key()] = append(p[e.Key()].([]Record), ch)
		}
	}
	return parents, nil
}

func embedSQL(e Embed) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE %s::text = ANY($1) ORDER BY %s",
		ident(e.Table), ident(e.ForeignKey), joinIdents(e.Order()))
}

func (c *Client) collect(ctx context.Context, sql string, args ...any) ([]Record, error) {
	rows, err := c.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(maps))
	for _, m := range maps {
		out = append(out, normalize(m))
	}
	return out, nil
}

// WithinTx begins a transaction, or a savepoint when c is already one.
func (c *Client) WithinTx(ctx context.Context, fn func(tx Store) error) (err error) {
	var tx pgx.Tx
	if c.tx != nil {
		tx, err = c.tx.Begin(ctx)
	} else {
		tx, err = c.pool.Begin(ctx)
	}
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = fmt.Errorf("commit transaction: %w", cerr)
		}
	}()
	return fn(&Client{pool: c.pool, q: tx, tx: tx})
}

func whereClause(conds []Cond) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(conds))
	args := make([]any, 0, len(conds))
	for _, cond := range conds {
		args = append(args, cond.Value)
		n := len(args)
		col := ident(cond.Column)
		switch cond.Op {
		case OpEq:
			parts = append(parts, fmt.Sprintf("%s = $%d", col, n))
		case OpNeq:
			parts = append(parts, fmt.Sprintf("%s <> $%d", col, n))
		case OpIn:
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", col, n))
		case OpNotIn:
			parts = append(parts, fmt.Sprintf("NOT (%s = ANY($%d))", col, n))
		default:
			return "", nil, fmt.Errorf("%w: %q", ErrUnknownOp, cond.Op)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

// columns returns rec's keys sorted, so generated SQL is stable.
func columns(rec Record) ([]string, []any) {
	cols := make([]string, 0, len(rec))
	for k := range rec {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	args := make([]any, 0, len(cols))
	for _, col := range cols {
		args = append(args, rec[col])
	}
	return cols, args
}

func ident(name string) string { return pgx.Identifier{name}.Sanitize() }

func joinIdents(cols []string) string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, ident(c))
	}
	return strings.Join(out, ", ")
}

func placeholders(from, n int) string {
	ps := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ps = append(ps, fmt.Sprintf("$%d", from+i))
	}
	return strings.Join(ps, ", ")
}

// normalize converts driver-specific values into plain Go types.
func normalize(m map[string]any) Record {
	rec := make(Record, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case [16]byte:
			rec[k] = uuid.UUID(t).String()
		case pgtype.Numeric:
			f, err := t.Float64Value()
			if err == nil && f.Valid {
				rec[k] = f.Float64
			} else {
				rec[k] = nil
			}
		case []any:
			ss := make([]string, 0, len(t))
			for _, e := range t {
				if s, ok := e.(string); ok {
					ss = append(ss, s)
				}
			}
			rec[k] = ss
		default:
			rec[k] = v
		}
	}
	return rec
}
