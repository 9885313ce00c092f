package offload

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

type enqueuerSrv struct {
	repo   port.JobRepository
	queue  port.Queue
	lib    port.MediaLibrary
	stacks port.StackRepository
	cache  port.Cache
}

func NewEnqueuer(repo port.JobRepository, queue port.Queue, lib port.MediaLibrary, stacks port.StackRepository, cache port.Cache) port.Enqueuer {
	return &enqueuerSrv{repo, queue, lib, stacks, cache}
}

func (e *enqueuerSrv) EnqueueUpload(ctx context.Context, in port.EnqueueInput) (int64, error) {
	stack, err := loadStack(ctx, e.stacks)
	if err != nil {
		return 0, err
	}

	localPath, err := e.lib.LocalPath(ctx, in.AttachmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAttachmentNotFound
		}
		return 0, err
	}
	info, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrLocalFileMissing
		}
		return 0, fmt.Errorf("failed to stat file %q: %w", localPath, err)
	}
	size := info.Size()

	job := &model.Job{
		AttachmentID: in.AttachmentID,
		Operation:    model.OperationUpload,
		Status:       model.JobStatusRequested,
		FileName:     filepath.Base(localPath),
		FileSize:     &size,
	}
	if in.Meta != (model.JobMeta{}) {
		meta := in.Meta
		job.Meta = &meta
	}
	if err := e.repo.Insert(ctx, job); err != nil {
		return 0, fmt.Errorf("failed inserting upload job: %w", err)
	}

	msg := model.TransferMessage{
		Operation: model.OperationUpload,
		JobID:     job.ID,
		SubjectID: in.AttachmentID,
		FilePath:  localPath,
		Timestamp: time.Now().Unix(),
	}
	if err := e.send(ctx, stack.QueueURL, job.ID, msg); err != nil {
		return 0, err
	}

	e.invalidateStats(ctx)
	return job.ID, nil
}

func (e *enqueuerSrv) EnqueueDownload(ctx context.Context, in port.EnqueueInput) (int64, error) {
	stack, err := loadStack(ctx, e.stacks)
	if err != nil {
		return 0, err
	}

	att, err := e.lib.GetAttachment(ctx, in.AttachmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAttachmentNotFound
		}
		return 0, err
	}
	if att.ObjectKey == "" {
		return 0, ErrNotOffloaded
	}

	key := att.ObjectKey
	job := &model.Job{
		AttachmentID: in.AttachmentID,
		Operation:    model.OperationDownload,
		Status:       model.JobStatusRequested,
		FileName:     path.Base(key),
		ObjectKey:    &key,
	}
	if in.Meta != (model.JobMeta{}) {
		meta := in.Meta
		job.Meta = &meta
	}
	if err := e.repo.Insert(ctx, job); err != nil {
		return 0, fmt.Errorf("failed inserting download job: %w", err)
	}

	msg := model.TransferMessage{
		Operation: model.OperationDownload,
		JobID:     job.ID,
		SubjectID: in.AttachmentID,
		ObjectKey: key,
		Timestamp: time.Now().Unix(),
	}
	if err := e.send(ctx, stack.QueueURL, job.ID, msg); err != nil {
		return 0, err
	}

	e.invalidateStats(ctx)
	return job.ID, nil
}

// send delivers the queue message for a freshly inserted job. A send failure
// marks the row failed so no job is ever left requested with no message.
func (e *enqueuerSrv) send(ctx context.Context, queueURL string, jobID int64, msg model.TransferMessage) error {
	if _, err := e.queue.Send(ctx, queueURL, msg); err != nil {
		errMsg := fmt.Sprintf("Failed to queue: %v", err)
		if updErr := e.repo.Update(ctx, jobID, model.JobUpdate{
			Status:       model.JobStatusFailed,
			ErrorMessage: &errMsg,
		}); updErr != nil {
			log.Printf("warning: could not mark job %d failed after send error: %v", jobID, updErr)
		}
		return fmt.Errorf("failed to queue %s for job %d: %w", msg.Operation, jobID, err)
	}
	return nil
}

func (e *enqueuerSrv) invalidateStats(ctx context.Context) {
	if err := e.cache.InvalidateStats(ctx); err != nil {
		log.Printf("warning: could not invalidate stats cache: %v", err)
	}
}

func loadStack(ctx context.Context, stacks port.StackRepository) (*model.StackDescriptor, error) {
	stack, err := stacks.GetStack(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed loading stack descriptor: %w", err)
	}
	if stack == nil || stack.BucketName == "" || stack.QueueURL == "" {
		return nil, ErrStackNotProvisioned
	}
	return stack, nil
}
