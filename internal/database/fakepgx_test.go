package database

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type call struct {
	sql  string
	args []any
}

// fakeTx stands in for both the pool and the transaction it begins. Methods
// the repositories never call are left to the embedded nil pgx.Tx.
type fakeTx struct {
	pgx.Tx

	beginErr  error
	commitErr error
	execErr   error

	// rows answers Query, row answers QueryRow. A nil row with a nil error
	// reads as pgx.ErrNoRows.
	rows func(sql string, args []any) ([][]any, error)
	row  func(sql string, args []any) ([]any, error)
	// affected is the row count reported for each batched statement.
	affected func(sql string, args []any) int64

	began      int
	committed  int
	rolledBack int

	execs   []call
	queries []call
	batches [][]call
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.began++
	return f, nil
}

func (f *fakeTx) Commit(context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed++
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if f.committed > 0 {
		return pgx.ErrTxClosed
	}
	f.rolledBack++
	return nil
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, call{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeTx) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, call{sql: sql, args: args})
	var data [][]any
	if f.rows != nil {
		var err error
		if data, err = f.rows(sql, args); err != nil {
			return nil, err
		}
	}
	return &fakeRows{data: data, i: -1}, nil
}

func (f *fakeTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, call{sql: sql, args: args})
	if f.row == nil {
		return fakeRow{err: pgx.ErrNoRows}
	}
	vals, err := f.row(sql, args)
	if err == nil && vals == nil {
		err = pgx.ErrNoRows
	}
	return fakeRow{vals: vals, err: err}
}

func (f *fakeTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	queued := make([]call, len(b.QueuedQueries))
	for i, q := range b.QueuedQueries {
		queued[i] = call{sql: q.SQL, args: q.Arguments}
	}
	f.batches = append(f.batches, queued)
	return &fakeBatch{tx: f, queued: queued}
}

type fakeBatch struct {
	pgx.BatchResults

	tx     *fakeTx
	queued []call
	next   int
}

func (b *fakeBatch) Exec() (pgconn.CommandTag, error) {
	if b.next >= len(b.queued) {
		return pgconn.CommandTag{}, fmt.Errorf("batch has only %d statements", len(b.queued))
	}
	q := b.queued[b.next]
	b.next++
	n := int64(1)
	if b.tx.affected != nil {
		n = b.tx.affected(q.sql, q.args)
	}
	verb := strings.Fields(q.sql)[0]
	return pgconn.NewCommandTag(fmt.Sprintf("%s %d", verb, n)), nil
}

func (b *fakeBatch) Close() error { return nil }

type fakeRows struct {
	pgx.Rows

	data [][]any
	i    int
}

func (r *fakeRows) Next() bool {
	r.i++
	return r.i < len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error { return assign(dest, r.data[r.i]) }
func (r *fakeRows) Err() error             { return nil }
func (r *fakeRows) Close()                 {}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.vals)
}

func assign(dest []any, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(vals))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d).Elem()
		v := reflect.ValueOf(vals[i])
		if !v.Type().AssignableTo(dv.Type()) {
			return fmt.Errorf("scan column %d: %s into %s", i, v.Type(), dv.Type())
		}
		dv.Set(v)
	}
	return nil
}
