package port

import "context"

// Distribution describes a provisioned CDN distribution fronting the bucket.
type Distribution struct {
	ID     string
	Domain string
	Status string
}

// CDN provisions and tears down the content-delivery distribution. Deletion
// is two-phase: an enabled distribution must be disabled first, and the
// provider propagates the disable asynchronously.
type CDN interface {
	CreateDistribution(ctx context.Context, bucket string) (*Distribution, error)
	// DeleteDistribution reports deleted=false when the distribution was
	// still enabled; it has then been disabled and the caller should retry
	// later. This is a normal outcome, not an error.
	DeleteDistribution(ctx context.Context, distributionID string) (deleted bool, err error)
}
