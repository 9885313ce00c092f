package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/featherlift/featherlift-go/internal/port"
)

const statsKey = "featherlift:stats"

// Cache keeps the aggregated job stats in redis so the dashboard endpoint
// does not hammer the job log with GROUP BY queries.
type Cache struct {
	client *redis.Client
}

// compile-time check: *Cache must satisfy port.Cache
var _ port.Cache = (*Cache)(nil)

func NewCache(addr, password string) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	return &Cache{client: rdb}
}

// GetStats returns nil on a cache miss.
func (c *Cache) GetStats(ctx context.Context) ([]byte, error) {
	val, err := c.client.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

// SetStats is best effort; a failed write only costs the next reader a
// recomputation.
func (c *Cache) SetStats(ctx context.Context, data []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, statsKey, data, ttl).Err(); err != nil {
		log.Printf("could not cache stats: %v", err)
	}
}

func (c *Cache) InvalidateStats(ctx context.Context) error {
	log.Println("invalidating cached stats...")

	if err := c.client.Del(ctx, statsKey).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
