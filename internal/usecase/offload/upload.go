package offload

import (
	"bytes"
	"fmt"
	"log"
	"math"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/context"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

type uploaderSrv struct {
	repo   port.JobRepository
	lib    port.MediaLibrary
	strg   port.Storage
	opt    port.FileOptimiser
	stacks port.StackRepository
	opts   Options
}

// NewUploader builds the upload pipeline. opt may be nil when neither resize
// nor compression is enabled.
func NewUploader(repo port.JobRepository, lib port.MediaLibrary, strg port.Storage, opt port.FileOptimiser, stacks port.StackRepository, opts Options) Uploader {
	return &uploaderSrv{repo, lib, strg, opt, stacks, opts}
}

func (u *uploaderSrv) HandleUpload(ctx context.Context, msg model.TransferMessage) error {
	stack, err := loadStack(ctx, u.stacks)
	if err != nil {
		return err
	}

	att, err := u.lib.GetAttachment(ctx, msg.SubjectID)
	if err != nil {
		return fmt.Errorf("failed resolving attachment %d: %w", msg.SubjectID, err)
	}

	localPath := msg.FilePath
	if localPath == "" {
		localPath, err = u.lib.LocalPath(ctx, msg.SubjectID)
		if err != nil {
			return err
		}
	}
	working, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed reading file %q: %w", localPath, err)
	}
	originalSize := int64(len(working))

	meta := model.JobMeta{OriginalSize: originalSize}

	if u.shouldResize(att) {
		res, err := u.opt.Resize(att.MimeType, bytes.NewReader(working), u.opts.ResizeMaxWidth, u.opts.ResizeMaxHeight)
		if err != nil {
			log.Printf("warning: resize failed for attachment %d: %v", att.ID, err)
		} else {
			working = res.Data
			if err := u.lib.RecordDimensions(ctx, att.ID, res.Width, res.Height); err != nil {
				log.Printf("warning: could not record dimensions for attachment %d: %v", att.ID, err)
			}
		}
	}

	if u.opts.CompressImages && u.opt != nil && att.IsImage() {
		compressed, service, err := u.opt.Compress(att.MimeType, bytes.NewReader(working))
		if err != nil {
			log.Printf("warning: compression failed for attachment %d: %v", att.ID, err)
		} else {
			savings := savingsPercent(len(working), len(compressed))
			working = compressed
			meta.Compressed = true
			meta.CompressionSavings = savings
			meta.CompressionService = service
		}
	}

	key := u.opts.KeyPrefix + filepath.ToSlash(att.FilePath)
	if _, err := u.strg.Upload(ctx, stack.BucketName, key, att.MimeType, working); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	primaryURL := u.opts.remoteURL(stack.BucketName, key)

	if att.IsImage() && u.opts.UploadRenditions {
		u.uploadRenditions(ctx, stack.BucketName, att, localPath, key)
	}

	if err := u.lib.SetObjectLocation(ctx, att.ID, key, stack.BucketName, primaryURL); err != nil {
		return fmt.Errorf("failed recording object location: %w", err)
	}

	u.rewriteReferences(ctx, stack.BucketName, att, key, primaryURL)

	if u.opts.DeleteLocalAfterUpload {
		u.deleteLocal(att, localPath)
	}

	finalSize := int64(len(working))
	if err := u.repo.Update(ctx, msg.JobID, model.JobUpdate{
		Status:    model.JobStatusCompleted,
		FileSize:  &finalSize,
		ObjectKey: &key,
		Meta:      &meta,
	}); err != nil {
		return fmt.Errorf("failed completing job %d: %w", msg.JobID, err)
	}

	log.Printf("uploaded attachment %d to %q (%d bytes)", att.ID, key, finalSize)
	return nil
}

func (u *uploaderSrv) shouldResize(att *model.Attachment) bool {
	if u.opt == nil || !att.IsImage() {
		return false
	}
	return u.opts.ResizeMaxWidth > 0 || u.opts.ResizeMaxHeight > 0
}

// uploadRenditions pushes every size variant next to the main object. A
// rendition failure never fails the job.
func (u *uploaderSrv) uploadRenditions(ctx context.Context, bucket string, att *model.Attachment, localPath, mainKey string) {
	localDir := filepath.Dir(localPath)
	keyDir := path.Dir(mainKey)

	for _, rendition := range att.Renditions {
		data, err := os.ReadFile(filepath.Join(localDir, rendition.FileName))
		if err != nil {
			log.Printf("warning: could not read rendition %q: %v", rendition.FileName, err)
			continue
		}
		if _, err := u.strg.Upload(ctx, bucket, keyDir+"/"+rendition.FileName, rendition.MimeType, data); err != nil {
			log.Printf("warning: could not upload rendition %q: %v", rendition.FileName, err)
		}
	}
}

// rewriteReferences repoints every stored reference at the offloaded copy,
// covering each rendition plus http/https/protocol-relative spellings.
func (u *uploaderSrv) rewriteReferences(ctx context.Context, bucket string, att *model.Attachment, mainKey, primaryURL string) {
	localURL, err := u.lib.LocalURL(ctx, att.ID)
	if err != nil {
		log.Printf("warning: could not resolve local URL for attachment %d: %v", att.ID, err)
		return
	}

	type pair struct{ oldURL, newURL string }
	pairs := []pair{{localURL, primaryURL}}
	keyDir := path.Dir(mainKey)
	for _, rendition := range att.Renditions {
		pairs = append(pairs, pair{
			siblingURL(localURL, rendition.FileName),
			u.opts.remoteURL(bucket, keyDir+"/"+rendition.FileName),
		})
	}

	for _, p := range pairs {
		for _, variant := range protocolVariants(p.oldURL) {
			if err := u.lib.RewriteReferences(ctx, variant, p.newURL); err != nil {
				log.Printf("warning: reference rewrite %q -> %q failed: %v", variant, p.newURL, err)
			}
		}
	}
}

func (u *uploaderSrv) deleteLocal(att *model.Attachment, localPath string) {
	if err := os.Remove(localPath); err != nil {
		log.Printf("warning: could not delete local file %q: %v", localPath, err)
	}
	localDir := filepath.Dir(localPath)
	for _, rendition := range att.Renditions {
		p := filepath.Join(localDir, rendition.FileName)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("warning: could not delete local rendition %q: %v", p, err)
		}
	}
}

// siblingURL swaps the file name at the end of a URL without touching the
// scheme. path.Dir would collapse the "//" after the scheme.
func siblingURL(fileURL, fileName string) string {
	i := strings.LastIndex(fileURL, "/")
	return fileURL[:i+1] + fileName
}

func protocolVariants(u string) []string {
	switch {
	case strings.HasPrefix(u, "https://"):
		return []string{u, "http://" + u[len("https://"):], "//" + u[len("https://"):]}
	case strings.HasPrefix(u, "http://"):
		return []string{u, "https://" + u[len("http://"):], "//" + u[len("http://"):]}
	}
	return []string{u}
}

func savingsPercent(before, after int) float64 {
	if before <= 0 {
		return 0
	}
	pct := (1 - float64(after)/float64(before)) * 100
	return math.Round(pct*100) / 100
}
