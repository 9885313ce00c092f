package offload

import (
	"context"
	"errors"
	"testing"

	"github.com/featherlift/featherlift-go/internal/model"
)

func TestRetryFailedReenqueues(t *testing.T) {
	repo := &mockJobRepo{failed: []model.Job{
		{ID: 11, AttachmentID: 7, Operation: model.OperationUpload, Status: model.JobStatusFailed},
		{ID: 12, AttachmentID: 8, Operation: model.OperationDownload, Status: model.JobStatusFailed},
		{ID: 13, AttachmentID: 9, Operation: model.OperationAlt, Status: model.JobStatusFailed},
	}}
	enq := &mockEnqueuer{}
	r := NewRetrier(repo, enq)

	retried, err := r.RetryFailed(context.Background(), 10)
	if err != nil {
		t.Fatalf("RetryFailed returned error: %v", err)
	}

	// alt jobs are not transfer jobs and cannot be re-queued
	if retried != 2 {
		t.Errorf("expected 2 retried jobs, got %d", retried)
	}
	if len(enq.uploads) != 1 || enq.uploads[0].AttachmentID != 7 {
		t.Errorf("unexpected upload enqueues %+v", enq.uploads)
	}
	if enq.uploads[0].Meta.Source != "retry" || enq.uploads[0].Meta.PreviousJob != 11 {
		t.Errorf("unexpected retry meta %+v", enq.uploads[0].Meta)
	}
	if len(enq.downloads) != 1 || enq.downloads[0].Meta.PreviousJob != 12 {
		t.Errorf("unexpected download enqueues %+v", enq.downloads)
	}

	if len(repo.updates) != 2 {
		t.Fatalf("expected 2 retried updates, got %d", len(repo.updates))
	}
	for _, upd := range repo.updates {
		if upd.upd.Status != model.JobStatusRetried {
			t.Errorf("expected retried status, got %q", upd.upd.Status)
		}
	}
}

func TestRetryFailedContinuesPastFailures(t *testing.T) {
	repo := &mockJobRepo{failed: []model.Job{
		{ID: 11, AttachmentID: 7, Operation: model.OperationUpload, Status: model.JobStatusFailed},
		{ID: 12, AttachmentID: 8, Operation: model.OperationDownload, Status: model.JobStatusFailed},
	}}
	enq := &mockEnqueuer{uploadErr: errors.New("file gone")}
	r := NewRetrier(repo, enq)

	retried, err := r.RetryFailed(context.Background(), 10)
	if err != nil {
		t.Fatalf("RetryFailed returned error: %v", err)
	}

	if retried != 1 {
		t.Errorf("expected 1 retried job, got %d", retried)
	}
	if len(repo.updates) != 1 || repo.updates[0].id != 12 {
		t.Errorf("only the download should be marked retried, got %+v", repo.updates)
	}
}

func TestRetryFailedRespectsLimit(t *testing.T) {
	repo := &mockJobRepo{failed: []model.Job{
		{ID: 11, AttachmentID: 7, Operation: model.OperationUpload},
		{ID: 12, AttachmentID: 8, Operation: model.OperationUpload},
		{ID: 13, AttachmentID: 9, Operation: model.OperationUpload},
	}}
	enq := &mockEnqueuer{}
	r := NewRetrier(repo, enq)

	retried, err := r.RetryFailed(context.Background(), 2)
	if err != nil {
		t.Fatalf("RetryFailed returned error: %v", err)
	}
	if retried != 2 || len(enq.uploads) != 2 {
		t.Errorf("expected the limit to cap retries, got %d (%d enqueued)", retried, len(enq.uploads))
	}
}

func TestRetryFailedListError(t *testing.T) {
	repo := &mockJobRepo{listErr: errors.New("db down")}
	r := NewRetrier(repo, &mockEnqueuer{})

	if _, err := r.RetryFailed(context.Background(), 10); err == nil {
		t.Error("expected the list error to propagate")
	}
}
