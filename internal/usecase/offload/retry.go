package offload

import (
	"context"
	"log"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

type retrierSrv struct {
	repo port.JobRepository
	enq  port.Enqueuer
}

func NewRetrier(repo port.JobRepository, enq port.Enqueuer) port.Retrier {
	return &retrierSrv{repo, enq}
}

// RetryFailed re-enqueues the most recent failed jobs as fresh jobs and marks
// each original retried. A job that cannot be re-enqueued is logged and left
// failed; the batch continues.
func (r *retrierSrv) RetryFailed(ctx context.Context, limit int) (int, error) {
	failed, err := r.repo.ListFailed(ctx, limit)
	if err != nil {
		return 0, err
	}

	retried := 0
	for _, job := range failed {
		in := port.EnqueueInput{
			AttachmentID: job.AttachmentID,
			Meta:         model.JobMeta{Source: "retry", PreviousJob: job.ID},
		}

		switch job.Operation {
		case model.OperationUpload:
			_, err = r.enq.EnqueueUpload(ctx, in)
		case model.OperationDownload:
			_, err = r.enq.EnqueueDownload(ctx, in)
		default:
			log.Printf("skipping retry of job %d: operation %q is not retryable", job.ID, job.Operation)
			continue
		}
		if err != nil {
			log.Printf("failed to retry job %d: %v", job.ID, err)
			continue
		}

		if err := r.repo.Update(ctx, job.ID, model.JobUpdate{Status: model.JobStatusRetried}); err != nil {
			log.Printf("warning: could not mark job %d retried: %v", job.ID, err)
		}
		retried++
	}
	return retried, nil
}
