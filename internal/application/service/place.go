package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/TemirB/wb-tech-orders/internal/domain"
)

// placeOrder runs the creation steps against repositories bound to one unit
// of work. items must already be validated and merged.
func placeOrder(ctx context.Context, repos domain.Repositories, customerID string, items []domain.RequestedItem) (*domain.Order, error) {
	customer, err := repos.Customers.FindByID(ctx, customerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	products, err := repos.Products.FindAllByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	if len(products) != len(ids) {
		return nil, &domain.ProductsNotFoundError{IDs: missingIDs(ids, byID)}
	}

	lines := make([]domain.OrderLine, 0, len(items))
	updates := make([]domain.StockUpdate, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s vanished after lookup", domain.ErrInternalInconsistency, it.ProductID)
		}
		if p.Quantity == 0 || it.Quantity > p.Quantity {
			return nil, &domain.InsufficientStockError{
				ProductID: p.ID,
				Requested: it.Quantity,
				Available: p.Quantity,
			}
		}

		lines = append(lines, domain.OrderLine{
			ProductID: p.ID,
			Quantity:  it.Quantity,
			Price:     p.Price,
		})
		updates = append(updates, domain.StockUpdate{
			ProductID: p.ID,
			Quantity:  p.Quantity - it.Quantity,
		})
	}

	order, err := repos.Orders.Create(ctx, *customer, lines)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := repos.Products.UpdateQuantity(ctx, updates); err != nil {
		if errors.Is(err, domain.ErrInternalInconsistency) {
			return nil, err
		}
		return nil, fmt.Errorf("update stock: %w", err)
	}
	return order, nil
}

func missingIDs(ids []string, found map[string]domain.Product) []string {
	var out []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
