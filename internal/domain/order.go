package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is one product of an order. Price is the product price copied at
// creation time and is never recomputed.
type OrderLine struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// Subtotal returns price * quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID        string      `json:"id"`
	Customer  Customer    `json:"customer"`
	Lines     []OrderLine `json:"order_products"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (o *Order) CustomerID() string {
	return o.Customer.ID
}

// Total sums the snapshotted line prices.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// RequestedItem is a product id and the quantity the customer asks for.
type RequestedItem struct {
	ProductID string `json:"id"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	CustomerID string          `json:"customer_id"`
	Items      []RequestedItem `json:"products"`

	// IdempotencyKey is optional. Requests sharing a key create at most one order.
	IdempotencyKey string `json:"-"`
}

// Validate checks the request shape before any store is touched.
func (r CreateOrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return ErrNoItems
	}
	for _, it := range r.Items {
		if it.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

// CanonicalID returns the lowercase hyphenated form of a UUID. Ids that are
// not UUIDs come back unchanged.
func CanonicalID(id string) string {
	u, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return u.String()
}

// Canonical rewrites the customer and product ids with CanonicalID, so that
// spellings of the same UUID merge and match stored rows.
func (r CreateOrderRequest) Canonical() CreateOrderRequest {
	out := r
	out.CustomerID = CanonicalID(r.CustomerID)
	out.Items = make([]RequestedItem, len(r.Items))
	for i, it := range r.Items {
		it.ProductID = CanonicalID(it.ProductID)
		out.Items[i] = it
	}
	return out
}

// MergedItems folds repeated product ids into one item with the summed
// quantity. Order of first appearance is kept.
func (r CreateOrderRequest) MergedItems() []RequestedItem {
	out := make([]RequestedItem, 0, len(r.Items))
	pos := make(map[string]int, len(r.Items))
	for _, it := range r.Items {
		if i, ok := pos[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		pos[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}
