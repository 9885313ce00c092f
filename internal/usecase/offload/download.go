package offload

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

type downloaderSrv struct {
	repo   port.JobRepository
	lib    port.MediaLibrary
	strg   port.Storage
	stacks port.StackRepository
	opts   Options
}

func NewDownloader(repo port.JobRepository, lib port.MediaLibrary, strg port.Storage, stacks port.StackRepository, opts Options) Downloader {
	return &downloaderSrv{repo, lib, strg, stacks, opts}
}

func (d *downloaderSrv) HandleDownload(ctx context.Context, msg model.TransferMessage) error {
	stack, err := loadStack(ctx, d.stacks)
	if err != nil {
		return err
	}

	att, err := d.lib.GetAttachment(ctx, msg.SubjectID)
	if err != nil {
		return fmt.Errorf("failed resolving attachment %d: %w", msg.SubjectID, err)
	}

	key := msg.ObjectKey
	if key == "" {
		key = att.ObjectKey
	}
	if key == "" {
		return ErrNotOffloaded
	}

	localPath, err := d.lib.LocalPath(ctx, msg.SubjectID)
	if err != nil {
		return err
	}

	size, err := d.strg.Download(ctx, stack.BucketName, key, localPath)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	// Rendition failures are logged, never fatal.
	keyDir := path.Dir(key)
	localDir := filepath.Dir(localPath)
	for _, rendition := range att.Renditions {
		if _, err := d.strg.Download(ctx, stack.BucketName, keyDir+"/"+rendition.FileName, filepath.Join(localDir, rendition.FileName)); err != nil {
			log.Printf("warning: could not download rendition %q: %v", rendition.FileName, err)
		}
	}

	remoteURL := att.ObjectURL
	if remoteURL == "" {
		remoteURL = d.opts.remoteURL(stack.BucketName, key)
	}

	if err := d.lib.ClearObjectLocation(ctx, att.ID); err != nil {
		return fmt.Errorf("failed clearing object location: %w", err)
	}

	if _, err := d.lib.RegenerateRenditions(ctx, att.ID, localPath); err != nil {
		log.Printf("warning: could not regenerate renditions for attachment %d: %v", att.ID, err)
	}

	localURL, err := d.lib.LocalURL(ctx, att.ID)
	if err != nil {
		return fmt.Errorf("failed resolving local URL: %w", err)
	}
	if err := d.lib.SetPrimaryURL(ctx, att.ID, localURL); err != nil {
		return fmt.Errorf("failed restoring primary URL: %w", err)
	}
	if err := d.lib.RewriteReferences(ctx, remoteURL, localURL); err != nil {
		log.Printf("warning: reference rewrite %q -> %q failed: %v", remoteURL, localURL, err)
	}

	if err := d.repo.Update(ctx, msg.JobID, model.JobUpdate{
		Status:   model.JobStatusCompleted,
		FileSize: &size,
	}); err != nil {
		return fmt.Errorf("failed completing job %d: %w", msg.JobID, err)
	}

	log.Printf("downloaded %q to %q (%d bytes)", key, localPath, size)
	return nil
}
