package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TemirB/wb-tech-orders/internal/domain"
)

//go:generate mockgen -source internal/idempotency/idempotency.go -destination=internal/idempotency/idempotency_mock_test.go -package=idempotency

const (
	// idem:order:create:{key} -> "pending" | order id
	keyOrderCreate = "idem:order:create:%s"
	pending        = "pending"
)

type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store remembers which order an idempotency key produced. A claim lives
// for pendingTTL until Complete stores the order id for ttl, so a request
// that dies between the two frees its key quickly.
type Store struct {
	rdb        redisClient
	ttl        time.Duration
	pendingTTL time.Duration
}

func New(rdb redisClient, ttl, pendingTTL time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if pendingTTL <= 0 {
		pendingTTL = 30 * time.Second
	}
	if pendingTTL > ttl {
		pendingTTL = ttl
	}
	return &Store{rdb: rdb, ttl: ttl, pendingTTL: pendingTTL}
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Begin claims key. claimed is true when the caller owns the key and must
// later Complete or Release it. Otherwise orderID names the order a previous
// request created, or err is domain.ErrRequestInProgress.
func (s *Store) Begin(ctx context.Context, key string) (orderID string, claimed bool, err error) {
	k := fmt.Sprintf(keyOrderCreate, key)

	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.rdb.SetNX(ctx, k, pending, s.pendingTTL).Result()
		if err != nil {
			return "", false, fmt.Errorf("claim idempotency key: %w", err)
		}
		if ok {
			return "", true, nil
		}

		v, err := s.rdb.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SetNX and Get
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("read idempotency key: %w", err)
		}
		if v == pending {
			return "", false, domain.ErrRequestInProgress
		}
		return v, false, nil
	}
	return "", false, domain.ErrRequestInProgress
}

func (s *Store) Complete(ctx context.Context, key, orderID string) error {
	if err := s.rdb.Set(ctx, fmt.Sprintf(keyOrderCreate, key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release drops a claim so the request can be retried.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, fmt.Sprintf(keyOrderCreate, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
