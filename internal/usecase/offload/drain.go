package offload

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

const (
	receiveBatchSize    = 10
	defaultDrainCeiling = 100
)

// Uploader executes the upload pipeline for one queue message.
type Uploader interface {
	HandleUpload(ctx context.Context, msg model.TransferMessage) error
}

// Downloader executes the download pipeline for one queue message.
type Downloader interface {
	HandleDownload(ctx context.Context, msg model.TransferMessage) error
}

type drainerSrv struct {
	repo      port.JobRepository
	queue     port.Queue
	stacks    port.StackRepository
	cache     port.Cache
	uploads   Uploader
	downloads Downloader
	ceiling   int
}

func NewDrainer(repo port.JobRepository, queue port.Queue, stacks port.StackRepository, cache port.Cache, uploads Uploader, downloads Downloader, ceiling int) port.Drainer {
	if ceiling <= 0 {
		ceiling = defaultDrainCeiling
	}
	return &drainerSrv{repo, queue, stacks, cache, uploads, downloads, ceiling}
}

// Drain receives and processes messages until the queue returns an empty
// batch or the processed-count ceiling is reached. Every received message is
// acknowledged regardless of handler outcome; failed jobs are only re-run
// through an explicit retry.
func (d *drainerSrv) Drain(ctx context.Context) (int, error) {
	stack, err := loadStack(ctx, d.stacks)
	if err != nil {
		return 0, err
	}

	processed := 0
	for processed < d.ceiling {
		msgs, err := d.queue.Receive(ctx, stack.QueueURL, receiveBatchSize)
		if err != nil {
			return processed, fmt.Errorf("failed receiving messages: %w", err)
		}
		if len(msgs) == 0 {
			break
		}

		for _, msg := range msgs {
			d.process(ctx, msg)
			processed++

			if err := d.queue.DeleteMessage(ctx, stack.QueueURL, msg.ReceiptHandle); err != nil {
				log.Printf("warning: could not delete message %q: %v", msg.ID, err)
			}
		}
	}

	if processed > 0 {
		if err := d.cache.InvalidateStats(ctx); err != nil {
			log.Printf("warning: could not invalidate stats cache: %v", err)
		}
	}
	return processed, nil
}

func (d *drainerSrv) process(ctx context.Context, raw port.QueueMessage) {
	var msg model.TransferMessage
	if err := json.Unmarshal([]byte(raw.Body), &msg); err != nil {
		log.Printf("skipping message %q with invalid body: %v", raw.ID, err)
		return
	}

	if err := d.repo.Update(ctx, msg.JobID, model.JobUpdate{Status: model.JobStatusInProgress}); err != nil {
		log.Printf("skipping message %q: could not mark job %d in progress: %v", raw.ID, msg.JobID, err)
		return
	}

	var err error
	switch msg.Operation {
	case model.OperationUpload:
		err = d.uploads.HandleUpload(ctx, msg)
	case model.OperationDownload:
		err = d.downloads.HandleDownload(ctx, msg)
	default:
		err = fmt.Errorf("unknown operation %q", msg.Operation)
	}
	if err != nil {
		log.Printf("job %d failed: %v", msg.JobID, err)
		errMsg := err.Error()
		if updErr := d.repo.Update(ctx, msg.JobID, model.JobUpdate{
			Status:       model.JobStatusFailed,
			ErrorMessage: &errMsg,
		}); updErr != nil {
			log.Printf("warning: could not mark job %d failed: %v", msg.JobID, updErr)
		}
	}
}
