package cache

import (
	"context"
	"time"

	"github.com/featherlift/featherlift-go/internal/port"
)

type NoopCache struct{}

// compile-time check: *NoopCache must satisfy port.Cache
var _ port.Cache = (*NoopCache)(nil)

func NewNoop() *NoopCache {
	return &NoopCache{}
}

func (n *NoopCache) GetStats(ctx context.Context) ([]byte, error) {
	return nil, nil // always cache miss
}

func (n *NoopCache) SetStats(ctx context.Context, data []byte, ttl time.Duration) {}

func (n *NoopCache) InvalidateStats(ctx context.Context) error { return nil }
