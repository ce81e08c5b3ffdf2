package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/TemirB/wb-tech-orders/internal/domain"
)

type Products struct {
	q    querier
	lock bool
}

func (r *Products) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	valid := validUUIDs(ids)
	if len(valid) == 0 {
		return nil, nil
	}

	sql := `
		SELECT id, name, price, quantity, created_at, updated_at
		FROM products WHERE id = ANY($1::uuid[])
		ORDER BY id`
	if r.lock {
		sql += ` FOR UPDATE`
	}

	rows, err := r.q.Query(ctx, sql, valid)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Product, 0, len(valid))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Products) UpdateQuantity(ctx context.Context, updates []domain.StockUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	for _, u := range updates {
		if _, err := uuid.Parse(u.ProductID); err != nil {
			return fmt.Errorf("%w: no product %s", domain.ErrInternalInconsistency, u.ProductID)
		}
	}

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(`UPDATE products SET quantity = $2, updated_at = now() WHERE id = $1`, u.ProductID, u.Quantity)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()

	for _, u := range updates {
		tag, err := br.Exec()
		if err != nil {
			return fmt.Errorf("update product %s: %w", u.ProductID, err)
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("%w: no product %s", domain.ErrInternalInconsistency, u.ProductID)
		}
	}
	return br.Close()
}

// validUUIDs drops ids that cannot name a row and returns the rest in
// canonical form, keeping their order.
func validUUIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			out = append(out, u.String())
		}
	}
	return out
}
