package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/TemirB/wb-tech-orders/internal/domain"
)

type Orders struct {
	q querier
}

func (r *Orders) Create(ctx context.Context, customer domain.Customer, lines []domain.OrderLine) (*domain.Order, error) {
	now := time.Now().UTC()
	o := &domain.Order{
		ID:        uuid.NewString(),
		Customer:  customer,
		Lines:     make([]domain.OrderLine, len(lines)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.q.Exec(ctx, `
		INSERT INTO orders (id, customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, o.ID, customer.ID, o.CreatedAt, o.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, l := range lines {
		l.ID = uuid.NewString()
		l.OrderID = o.ID
		l.CreatedAt = now
		o.Lines[i] = l

		batch.Queue(`
			INSERT INTO order_lines (id, order_id, product_id, position, quantity, price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, l.ID, l.OrderID, l.ProductID, i, l.Quantity, l.Price, l.CreatedAt)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("insert order lines: %w", err)
	}
	return o, nil
}

func (r *Orders) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var o domain.Order
	c := &o.Customer
	err = r.q.QueryRow(ctx, `
		SELECT o.id, o.created_at, o.updated_at,
		       c.id, c.name, c.email, c.created_at, c.updated_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1
	`, u.String()).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt,
		&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}

	lines, err := r.loadLines(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return &o, nil
}

func (r *Orders) loadLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price, created_at
		FROM order_lines WHERE order_id = $1
		ORDER BY position
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.Price, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *Orders) RecentOrderIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent orders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
