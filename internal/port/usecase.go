package port

import (
	"context"

	"github.com/featherlift/featherlift-go/internal/model"
)

// EnqueueInput identifies the subject and carries the caller's context
// metadata (source, initiator, batch, notes).
type EnqueueInput struct {
	AttachmentID int64
	Meta         model.JobMeta
}

// Enqueuer creates job-log rows and sends the matching queue messages.
type Enqueuer interface {
	EnqueueUpload(ctx context.Context, in EnqueueInput) (int64, error)
	EnqueueDownload(ctx context.Context, in EnqueueInput) (int64, error)
}

// Drainer runs one bounded pass of receiving and processing queue messages.
type Drainer interface {
	Drain(ctx context.Context) (int, error)
}

// Retrier re-enqueues the most recent failed jobs as fresh jobs and marks
// the originals retried.
type Retrier interface {
	RetryFailed(ctx context.Context, limit int) (int, error)
}

type AltTextInput struct {
	AttachmentID int64
	Overwrite    bool
	Meta         model.JobMeta
}

type AltTextOutput struct {
	JobID   int64  `json:"job_id"`
	AltText string `json:"alt_text"`
	Skipped bool   `json:"skipped"`
}

// AltTextGenerator runs the alt-generation pipeline for one attachment.
type AltTextGenerator interface {
	GenerateAltText(ctx context.Context, in AltTextInput) (*AltTextOutput, error)
}

// Inspector exposes the job log for display.
type Inspector interface {
	GetJob(ctx context.Context, id int64) (*model.Job, error)
	ListJobs(ctx context.Context, filter model.JobFilter) ([]model.Job, error)
	GetStats(ctx context.Context) (*model.JobStats, error)
}

// StackProvisioner idempotently ensures the bucket, queue and optional CDN
// distribution exist.
type StackProvisioner interface {
	EnsureStack(ctx context.Context) (*model.StackDescriptor, error)
}
