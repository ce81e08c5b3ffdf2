package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/TemirB/wb-tech-orders/internal/domain"
)

//go:generate mockgen -source internal/cache/cache.go -destination=internal/cache/cache_mock_test.go -package=cache

type repo interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	RecentOrderIDs(ctx context.Context, limit int) ([]string, error)
}

// Cache is a fixed-size LRU of committed orders keyed by order id.
type Cache struct {
	size int
	lru  *lru.Cache[string, domain.Order]
}

func New(size int) (*Cache, error) {
	c, err := lru.New[string, domain.Order](size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		size: size,
		lru:  c,
	}, nil
}

// Warm loads up to size most recent orders and returns how many were cached.
// Repository errors are skipped.
func (c *Cache) Warm(ctx context.Context, repo repo) int {
	ids, err := repo.RecentOrderIDs(ctx, c.size)
	if err != nil {
		return 0
	}
	n := 0
	for _, id := range ids {
		if o, err := repo.FindByID(ctx, id); err == nil {
			c.Set(o)
			n++
		}
	}
	return n
}

func (c *Cache) Get(id string) (*domain.Order, bool) {
	order, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	order.Lines = append([]domain.OrderLine(nil), order.Lines...)
	return &order, true
}

func (c *Cache) Set(order *domain.Order) {
	o := *order
	o.Lines = append([]domain.OrderLine(nil), order.Lines...)
	c.lru.Add(o.ID, o)
}

func (c *Cache) Len() int { return c.lru.Len() }
