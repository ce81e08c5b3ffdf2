package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/TemirB/wb-tech-orders/internal/domain"
)

type Customers struct {
	q querier
}

func (r *Customers) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var c domain.Customer
	err = r.q.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM customers WHERE id = $1
	`, u.String()).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select customer: %w", err)
	}
	return &c, nil
}
