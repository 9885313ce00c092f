package offload

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

const altTextMaxLen = 180

// AltOptions tunes the alt-text pipeline.
type AltOptions struct {
	// SiteBrief is a short description of the site, given to the vision
	// model as context.
	SiteBrief string
	// SkipExisting leaves attachments alone when they already carry alt
	// text, unless the caller asks to overwrite.
	SkipExisting bool
}

type altTextSrv struct {
	repo   port.JobRepository
	lib    port.MediaLibrary
	vision port.VisionCompleter
	cache  port.Cache
	opts   AltOptions
}

func NewAltTextGenerator(repo port.JobRepository, lib port.MediaLibrary, vision port.VisionCompleter, cache port.Cache, opts AltOptions) port.AltTextGenerator {
	return &altTextSrv{repo, lib, vision, cache, opts}
}

func (a *altTextSrv) GenerateAltText(ctx context.Context, in port.AltTextInput) (*port.AltTextOutput, error) {
	att, err := a.lib.GetAttachment(ctx, in.AttachmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	if !att.IsImage() {
		return nil, ErrNotImage
	}

	job := &model.Job{
		AttachmentID: in.AttachmentID,
		Operation:    model.OperationAlt,
		Status:       model.JobStatusRequested,
		FileName:     filepath.Base(att.FilePath),
	}
	if in.Meta != (model.JobMeta{}) {
		meta := in.Meta
		job.Meta = &meta
	}
	if err := a.repo.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("failed inserting alt job: %w", err)
	}
	defer a.invalidateStats(ctx)

	if att.AltText != "" && !in.Overwrite && a.opts.SkipExisting {
		if err := a.repo.Update(ctx, job.ID, model.JobUpdate{
			Status: model.JobStatusSkipped,
			Meta:   &model.JobMeta{Message: "Alt text already existed"},
		}); err != nil {
			return nil, fmt.Errorf("failed marking job %d skipped: %w", job.ID, err)
		}
		return &port.AltTextOutput{JobID: job.ID, AltText: att.AltText, Skipped: true}, nil
	}

	imagePath, imageData, err := a.smallestImage(ctx, att)
	if err != nil {
		return nil, a.fail(ctx, job.ID, "Unable to read an image rendition for analysis.")
	}

	if err := a.repo.Update(ctx, job.ID, model.JobUpdate{Status: model.JobStatusInProgress}); err != nil {
		return nil, fmt.Errorf("failed marking job %d in progress: %w", job.ID, err)
	}

	prompt := buildAltPrompt(att, a.opts.SiteBrief, filepath.Base(imagePath))
	text, err := a.vision.CompleteVision(ctx, port.VisionRequest{
		Prompt:    prompt,
		ImageMIME: att.MimeType,
		ImageData: imageData,
	})
	if err != nil {
		return nil, a.fail(ctx, job.ID, err.Error())
	}

	alt := sanitizeAltText(text)
	if alt == "" {
		return nil, a.fail(ctx, job.ID, "AI response was empty.")
	}

	if err := a.lib.SetAltText(ctx, att.ID, alt); err != nil {
		return nil, a.fail(ctx, job.ID, fmt.Sprintf("failed storing alt text: %v", err))
	}

	size := int64(len(imageData))
	if err := a.repo.Update(ctx, job.ID, model.JobUpdate{
		Status:   model.JobStatusCompleted,
		FileSize: &size,
		Meta:     &model.JobMeta{AltText: alt},
	}); err != nil {
		return nil, fmt.Errorf("failed completing job %d: %w", job.ID, err)
	}

	return &port.AltTextOutput{JobID: job.ID, AltText: alt}, nil
}

func (a *altTextSrv) fail(ctx context.Context, jobID int64, msg string) error {
	if err := a.repo.Update(ctx, jobID, model.JobUpdate{
		Status:       model.JobStatusFailed,
		ErrorMessage: &msg,
	}); err != nil {
		log.Printf("warning: could not mark job %d failed: %v", jobID, err)
	}
	return fmt.Errorf("offload: alt generation failed: %s", msg)
}

func (a *altTextSrv) invalidateStats(ctx context.Context) {
	if err := a.cache.InvalidateStats(ctx); err != nil {
		log.Printf("warning: could not invalidate stats cache: %v", err)
	}
}

// smallestImage picks the cheapest readable candidate among the main file
// and its renditions, to keep the vision payload small.
func (a *altTextSrv) smallestImage(ctx context.Context, att *model.Attachment) (string, []byte, error) {
	mainPath, err := a.lib.LocalPath(ctx, att.ID)
	if err != nil {
		return "", nil, err
	}

	candidates := []string{mainPath}
	dir := filepath.Dir(mainPath)
	for _, rendition := range att.Renditions {
		candidates = append(candidates, filepath.Join(dir, rendition.FileName))
	}

	best := ""
	var bestSize int64
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if best == "" || info.Size() < bestSize {
			best = p
			bestSize = info.Size()
		}
	}
	if best == "" {
		return "", nil, fmt.Errorf("no readable image for attachment %d", att.ID)
	}

	data, err := os.ReadFile(best)
	if err != nil {
		return "", nil, err
	}
	return best, data, nil
}

func buildAltPrompt(att *model.Attachment, siteBrief, fileName string) string {
	lines := []string{
		"Create accessible alt text (max 20 words) describing the literal contents of the image.",
		`Do not guess names, genders, or famous people unless explicitly provided. Avoid phrases like "image of".`,
		"Use neutral tone, describe composition, mood, and key objects.",
	}
	if siteBrief != "" {
		lines = append(lines, "Site brief: "+siteBrief)
	}
	if att.Title != "" {
		lines = append(lines, "Image title: "+att.Title)
	}
	if att.Caption != "" {
		lines = append(lines, "Caption: "+att.Caption)
	}
	if att.Description != "" {
		lines = append(lines, "Description: "+att.Description)
	}
	lines = append(lines, "Filename: "+fileName, "Return only the alt text sentence.")
	return strings.Join(lines, "\n")
}

// sanitizeAltText collapses whitespace and caps the length so the value fits
// a typical alt attribute.
func sanitizeAltText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if runes := []rune(text); len(runes) > altTextMaxLen {
		text = strings.TrimSpace(string(runes[:altTextMaxLen-3])) + "…"
	}
	return text
}
