package port

import (
	"context"
	"time"
)

// Cache provides caching for the stats overview.
type Cache interface {
	GetStats(ctx context.Context) ([]byte, error)
	SetStats(ctx context.Context, data []byte, ttl time.Duration)
	InvalidateStats(ctx context.Context) error
}
