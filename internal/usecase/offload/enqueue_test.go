package offload

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

func testStack() *model.StackDescriptor {
	return &model.StackDescriptor{
		BucketName: "media-bucket",
		QueueURL:   "https://sqs.eu-west-3.amazonaws.com/123456789012/featherlift",
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("could not write fixture file: %v", err)
	}
	return p
}

func TestEnqueueUploadCreatesOneJobAndMessage(t *testing.T) {
	localPath := writeTempFile(t, "photo.jpg", "main-image-bytes")
	repo := &mockJobRepo{}
	queue := &mockQueue{}
	lib := &mockLibrary{localPath: localPath}
	stacks := &mockStacks{stack: testStack()}
	c := &mockCache{}
	enq := NewEnqueuer(repo, queue, lib, stacks, c)

	id, err := enq.EnqueueUpload(context.Background(), port.EnqueueInput{
		AttachmentID: 7,
		Meta:         model.JobMeta{Source: "bulk"},
	})
	if err != nil {
		t.Fatalf("EnqueueUpload returned error: %v", err)
	}

	if id != 1 {
		t.Errorf("expected job id 1, got %d", id)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected exactly 1 inserted job, got %d", len(repo.inserted))
	}
	job := repo.inserted[0]
	if job.Operation != model.OperationUpload || job.Status != model.JobStatusRequested {
		t.Errorf("unexpected job %q/%q", job.Operation, job.Status)
	}
	if job.FileName != "photo.jpg" {
		t.Errorf("unexpected file name %q", job.FileName)
	}
	if job.FileSize == nil || *job.FileSize != int64(len("main-image-bytes")) {
		t.Errorf("unexpected file size %v", job.FileSize)
	}
	if job.Meta == nil || job.Meta.Source != "bulk" {
		t.Errorf("unexpected meta %+v", job.Meta)
	}

	if len(queue.sent) != 1 {
		t.Fatalf("expected exactly 1 sent message, got %d", len(queue.sent))
	}
	sent := queue.sent[0]
	if sent.queueURL != stacks.stack.QueueURL {
		t.Errorf("unexpected queue URL %q", sent.queueURL)
	}
	if sent.msg.Operation != model.OperationUpload || sent.msg.JobID != 1 || sent.msg.SubjectID != 7 {
		t.Errorf("unexpected message %+v", sent.msg)
	}
	if sent.msg.FilePath != localPath {
		t.Errorf("unexpected file path %q", sent.msg.FilePath)
	}
	if sent.msg.Timestamp == 0 {
		t.Error("expected a timestamp on the message")
	}
	if c.invalidated != 1 {
		t.Errorf("expected 1 cache invalidation, got %d", c.invalidated)
	}
}

func TestEnqueueUploadMissingFile(t *testing.T) {
	repo := &mockJobRepo{}
	lib := &mockLibrary{localPath: filepath.Join(t.TempDir(), "missing.jpg")}
	enq := NewEnqueuer(repo, &mockQueue{}, lib, &mockStacks{stack: testStack()}, &mockCache{})

	_, err := enq.EnqueueUpload(context.Background(), port.EnqueueInput{AttachmentID: 7})
	if !errors.Is(err, ErrLocalFileMissing) {
		t.Errorf("expected ErrLocalFileMissing, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Errorf("expected no job row, got %d", len(repo.inserted))
	}
}

func TestEnqueueUploadSendFailureMarksJobFailed(t *testing.T) {
	localPath := writeTempFile(t, "photo.jpg", "main-image-bytes")
	repo := &mockJobRepo{}
	queue := &mockQueue{sendErr: errors.New("queue unreachable")}
	c := &mockCache{}
	enq := NewEnqueuer(repo, queue, &mockLibrary{localPath: localPath}, &mockStacks{stack: testStack()}, c)

	_, err := enq.EnqueueUpload(context.Background(), port.EnqueueInput{AttachmentID: 7})
	if err == nil {
		t.Fatal("expected an error when the send fails")
	}

	if len(repo.updates) != 1 {
		t.Fatalf("expected 1 job update, got %d", len(repo.updates))
	}
	upd := repo.updates[0]
	if upd.id != 1 || upd.upd.Status != model.JobStatusFailed {
		t.Errorf("unexpected update %+v", upd)
	}
	if upd.upd.ErrorMessage == nil || !strings.Contains(*upd.upd.ErrorMessage, "Failed to queue") {
		t.Errorf("unexpected error message %v", upd.upd.ErrorMessage)
	}
	if c.invalidated != 0 {
		t.Errorf("expected no cache invalidation, got %d", c.invalidated)
	}
}

func TestEnqueueDownload(t *testing.T) {
	repo := &mockJobRepo{}
	queue := &mockQueue{}
	lib := &mockLibrary{attachment: &model.Attachment{ID: 7, ObjectKey: "media/2026/08/photo.jpg"}}
	enq := NewEnqueuer(repo, queue, lib, &mockStacks{stack: testStack()}, &mockCache{})

	id, err := enq.EnqueueDownload(context.Background(), port.EnqueueInput{AttachmentID: 7})
	if err != nil {
		t.Fatalf("EnqueueDownload returned error: %v", err)
	}

	if id != 1 {
		t.Errorf("expected job id 1, got %d", id)
	}
	job := repo.inserted[0]
	if job.Operation != model.OperationDownload || job.FileName != "photo.jpg" {
		t.Errorf("unexpected job %+v", job)
	}
	if job.ObjectKey == nil || *job.ObjectKey != "media/2026/08/photo.jpg" {
		t.Errorf("unexpected object key %v", job.ObjectKey)
	}
	if queue.sent[0].msg.ObjectKey != "media/2026/08/photo.jpg" {
		t.Errorf("unexpected message key %q", queue.sent[0].msg.ObjectKey)
	}
}

func TestEnqueueDownloadRequiresObjectKey(t *testing.T) {
	lib := &mockLibrary{attachment: &model.Attachment{ID: 7}}
	enq := NewEnqueuer(&mockJobRepo{}, &mockQueue{}, lib, &mockStacks{stack: testStack()}, &mockCache{})

	_, err := enq.EnqueueDownload(context.Background(), port.EnqueueInput{AttachmentID: 7})
	if !errors.Is(err, ErrNotOffloaded) {
		t.Errorf("expected ErrNotOffloaded, got %v", err)
	}
}

func TestEnqueueUnknownAttachment(t *testing.T) {
	lib := &mockLibrary{getErr: sql.ErrNoRows, localPathErr: sql.ErrNoRows}
	repo := &mockJobRepo{}
	enq := NewEnqueuer(repo, &mockQueue{}, lib, &mockStacks{stack: testStack()}, &mockCache{})

	if _, err := enq.EnqueueUpload(context.Background(), port.EnqueueInput{AttachmentID: 999}); !errors.Is(err, ErrAttachmentNotFound) {
		t.Errorf("upload: expected ErrAttachmentNotFound, got %v", err)
	}
	if _, err := enq.EnqueueDownload(context.Background(), port.EnqueueInput{AttachmentID: 999}); !errors.Is(err, ErrAttachmentNotFound) {
		t.Errorf("download: expected ErrAttachmentNotFound, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Errorf("expected no job rows, got %d", len(repo.inserted))
	}
}

func TestEnqueueStackNotProvisioned(t *testing.T) {
	enq := NewEnqueuer(&mockJobRepo{}, &mockQueue{}, &mockLibrary{}, &mockStacks{}, &mockCache{})

	_, err := enq.EnqueueUpload(context.Background(), port.EnqueueInput{AttachmentID: 7})
	if !errors.Is(err, ErrStackNotProvisioned) {
		t.Errorf("expected ErrStackNotProvisioned, got %v", err)
	}
}
