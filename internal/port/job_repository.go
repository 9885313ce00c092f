package port

import (
	"context"
	"time"

	"github.com/featherlift/featherlift-go/internal/model"
)

// JobRepository defines persistence operations for the job log. Every write
// is a single-row statement keyed by job id.
type JobRepository interface {
	Insert(ctx context.Context, job *model.Job) error
	Update(ctx context.Context, id int64, upd model.JobUpdate) error
	GetByID(ctx context.Context, id int64) (*model.Job, error)
	List(ctx context.Context, filter model.JobFilter) ([]model.Job, error)
	ListFailed(ctx context.Context, limit int) ([]model.Job, error)
	Stats(ctx context.Context) (*model.JobStats, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StackRepository persists the provisioned resource descriptor.
type StackRepository interface {
	GetStack(ctx context.Context) (*model.StackDescriptor, error)
	SaveStack(ctx context.Context, stack *model.StackDescriptor) error
}
