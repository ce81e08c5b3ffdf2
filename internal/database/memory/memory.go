package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TemirB/wb-tech-orders/internal/domain"
)

// Store keeps customers, products and orders in maps. Units of work run one
// at a time and are rolled back from a snapshot when fn fails.
type Store struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
	products  map[string]domain.Product
	orders    map[string]domain.Order
	recent    []string

	now func() time.Time
}

func New() *Store {
	return &Store{
		customers: make(map[string]domain.Customer),
		products:  make(map[string]domain.Product),
		orders:    make(map[string]domain.Order),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) AddCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
		c.UpdatedAt = c.CreatedAt
	}
	s.customers[c.ID] = c
}

func (s *Store) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
		p.UpdatedAt = p.CreatedAt
	}
	s.products[p.ID] = p
}

// Product returns the stored product as is.
func (s *Store) Product(id string) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// OrderCount is the number of committed orders.
func (s *Store) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// Orders returns a reader usable outside a unit of work.
func (s *Store) Orders() *Orders { return &Orders{s: s} }

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make(map[string]domain.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	orders := make(map[string]domain.Order, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v
	}
	recent := append([]string(nil), s.recent...)

	t := &tx{s: s}
	err := fn(ctx, domain.Repositories{
		Customers: (*txCustomers)(t),
		Products:  (*txProducts)(t),
		Orders:    (*txOrders)(t),
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.products = products
		s.orders = orders
		s.recent = recent
		return err
	}
	return nil
}

// tx accesses the maps directly; Do holds the write lock.
type tx struct {
	s *Store
}

type txCustomers tx

func (r *txCustomers) FindByID(_ context.Context, id string) (*domain.Customer, error) {
	c, ok := r.s.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

type txProducts tx

func (r *txProducts) FindAllByID(_ context.Context, ids []string) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *txProducts) UpdateQuantity(_ context.Context, updates []domain.StockUpdate) error {
	for _, u := range updates {
		if _, ok := r.s.products[u.ProductID]; !ok {
			return fmt.Errorf("%w: no product %s", domain.ErrInternalInconsistency, u.ProductID)
		}
	}
	now := r.s.now()
	for _, u := range updates {
		p := r.s.products[u.ProductID]
		p.Quantity = u.Quantity
		p.UpdatedAt = now
		r.s.products[u.ProductID] = p
	}
	return nil
}

type txOrders tx

func (r *txOrders) Create(_ context.Context, customer domain.Customer, lines []domain.OrderLine) (*domain.Order, error) {
	now := r.s.now()
	o := domain.Order{
		ID:        uuid.NewString(),
		Customer:  customer,
		Lines:     make([]domain.OrderLine, len(lines)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, l := range lines {
		l.ID = uuid.NewString()
		l.OrderID = o.ID
		l.CreatedAt = now
		o.Lines[i] = l
	}

	r.s.orders[o.ID] = o
	r.s.recent = append(r.s.recent, o.ID)
	return cloneOrder(o), nil
}

func (r *txOrders) FindByID(_ context.Context, id string) (*domain.Order, error) {
	return findOrder(r.s, id)
}

func (r *txOrders) RecentOrderIDs(_ context.Context, limit int) ([]string, error) {
	return recentIDs(r.s, limit), nil
}

// Orders is the read side used by lookups and cache warm-up.
type Orders struct {
	s *Store
}

func (r *Orders) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return findOrder(r.s, id)
}

func (r *Orders) RecentOrderIDs(_ context.Context, limit int) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return recentIDs(r.s, limit), nil
}

func findOrder(s *Store, id string) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(o), nil
}

// recentIDs lists newest first.
func recentIDs(s *Store, limit int) []string {
	if limit <= 0 || limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]string, 0, limit)
	for i := len(s.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.recent[i])
	}
	return out
}

func cloneOrder(o domain.Order) *domain.Order {
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &o
}
