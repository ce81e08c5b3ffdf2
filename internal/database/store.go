package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/TemirB/wb-tech-orders/internal/domain"
)

// querier is the part of pgxpool.Pool and pgx.Tx the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type db interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the PostgreSQL implementation of the order storage. It hands out
// pool-bound repositories for reads and tx-bound ones inside Do.
type Store struct {
	db db
}

func NewStore(db db) *Store {
	return &Store{db: db}
}

func (s *Store) Customers() *Customers { return &Customers{q: s.db} }
func (s *Store) Products() *Products   { return &Products{q: s.db} }
func (s *Store) Orders() *Orders       { return &Orders{q: s.db} }

// Do runs fn in one transaction. Products read inside fn are locked until
// commit or rollback, so concurrent orders on the same product serialize.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	repos := domain.Repositories{
		Customers: &Customers{q: tx},
		Products:  &Products{q: tx, lock: true},
		Orders:    &Orders{q: tx},
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
