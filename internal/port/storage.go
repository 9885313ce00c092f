package port

import "context"

// Storage defines the object-store operations the pipeline needs. Expected
// provider failures come back as errors carrying the provider's status code
// and body; see awsauth.APIError.
type Storage interface {
	// CreateBucket is idempotent. Unless preservePermissions is set it also
	// applies a public-read policy, a CORS rule and a static-hosting config.
	CreateBucket(ctx context.Context, bucket string, preservePermissions bool) error
	DeleteBucket(ctx context.Context, bucket string) error
	// Upload stores body under key and returns the canonical object URL.
	Upload(ctx context.Context, bucket, key, contentType string, body []byte) (string, error)
	// Download writes the object to localPath, creating parent directories
	// as needed, and returns the number of bytes written.
	Download(ctx context.Context, bucket, key, localPath string) (int64, error)
	Delete(ctx context.Context, bucket, key string) error
	// ListObjects returns one page of keys plus the next continuation token
	// ("" when the listing is complete).
	ListObjects(ctx context.Context, bucket, continuationToken string) ([]string, string, error)
}
