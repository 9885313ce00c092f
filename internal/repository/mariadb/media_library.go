package mariadb

import (
	"bytes"
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

// MediaLibrary gives the pipeline its narrow view of the host CMS tables:
// attachments, posts and settings. The host owns these rows; the pipeline
// only reads and rewrites the fields involved in offloading.
type MediaLibrary struct {
	db        *sql.DB
	optimiser port.FileOptimiser
	// mediaRoot is the absolute directory attachment file paths are
	// relative to; mediaBaseURL is its public counterpart.
	mediaRoot    string
	mediaBaseURL string
	// renditionWidths are the size variants rebuilt by RegenerateRenditions.
	renditionWidths []int
}

// compile-time check: *MediaLibrary must satisfy port.MediaLibrary
var _ port.MediaLibrary = (*MediaLibrary)(nil)

func NewMediaLibrary(db *sql.DB, optimiser port.FileOptimiser, mediaRoot, mediaBaseURL string, renditionWidths []int) *MediaLibrary {
	return &MediaLibrary{
		db:              db,
		optimiser:       optimiser,
		mediaRoot:       mediaRoot,
		mediaBaseURL:    strings.TrimRight(mediaBaseURL, "/"),
		renditionWidths: renditionWidths,
	}
}

const attachmentColumns = `id, title, caption, description, file_path, mime_type, width, height, alt_text, object_key, object_bucket, object_url, renditions, created_at, updated_at`

func (l *MediaLibrary) GetAttachment(ctx context.Context, id int64) (*model.Attachment, error) {
	log.Printf("fetching attachment #%d from the database...", id)

	row := l.db.QueryRowContext(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE id = ?`, id)
	var a model.Attachment
	if err := row.Scan(
		&a.ID, &a.Title, &a.Caption, &a.Description,
		&a.FilePath, &a.MimeType, &a.Width, &a.Height,
		&a.AltText, &a.ObjectKey, &a.ObjectBucket, &a.ObjectURL,
		&a.Renditions, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (l *MediaLibrary) LocalPath(ctx context.Context, id int64) (string, error) {
	path, err := l.filePath(ctx, id)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.mediaRoot, filepath.FromSlash(path)), nil
}

func (l *MediaLibrary) LocalURL(ctx context.Context, id int64) (string, error) {
	path, err := l.filePath(ctx, id)
	if err != nil {
		return "", err
	}
	return l.mediaBaseURL + "/" + path, nil
}

// FirstAttachmentFilename feeds the first-file bucket naming strategy.
func (l *MediaLibrary) FirstAttachmentFilename(ctx context.Context) (string, error) {
	var path string
	err := l.db.QueryRowContext(ctx, `SELECT file_path FROM attachments ORDER BY id ASC LIMIT 1`).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)), nil
}

func (l *MediaLibrary) filePath(ctx context.Context, id int64) (string, error) {
	var path string
	err := l.db.QueryRowContext(ctx, `SELECT file_path FROM attachments WHERE id = ?`, id).Scan(&path)
	if err != nil {
		return "", err
	}
	return path, nil
}

func (l *MediaLibrary) SetObjectLocation(ctx context.Context, id int64, key, bucket, url string) error {
	log.Printf("recording object location for attachment #%d (key %q)...", id, key)

	const query = `
      UPDATE attachments
      SET object_key = ?, object_bucket = ?, object_url = ?
      WHERE id = ?
    `
	_, err := l.db.ExecContext(ctx, query, key, bucket, url, id)
	return err
}

func (l *MediaLibrary) ClearObjectLocation(ctx context.Context, id int64) error {
	log.Printf("clearing object location for attachment #%d...", id)

	const query = `
      UPDATE attachments
      SET object_key = '', object_bucket = '', object_url = ''
      WHERE id = ?
    `
	_, err := l.db.ExecContext(ctx, query, id)
	return err
}

func (l *MediaLibrary) RecordDimensions(ctx context.Context, id int64, width, height int) error {
	const query = `UPDATE attachments SET width = ?, height = ? WHERE id = ?`
	_, err := l.db.ExecContext(ctx, query, width, height, id)
	return err
}

func (l *MediaLibrary) SetPrimaryURL(ctx context.Context, id int64, url string) error {
	const query = `UPDATE attachments SET object_url = ? WHERE id = ?`
	_, err := l.db.ExecContext(ctx, query, url, id)
	return err
}

func (l *MediaLibrary) SetAltText(ctx context.Context, id int64, alt string) error {
	log.Printf("setting alt text on attachment #%d...", id)

	const query = `UPDATE attachments SET alt_text = ? WHERE id = ?`
	_, err := l.db.ExecContext(ctx, query, alt, id)
	return err
}

// RewriteReferences swaps URLs in-place everywhere the host stores content.
// Runs as plain string replacement, the same way the host migrates domains.
func (l *MediaLibrary) RewriteReferences(ctx context.Context, oldURL, newURL string) error {
	log.Printf("rewriting references from %q to %q...", oldURL, newURL)

	const postsQuery = `
      UPDATE posts
      SET content = REPLACE(content, ?, ?), excerpt = REPLACE(excerpt, ?, ?)
      WHERE content LIKE CONCAT('%', ?, '%') OR excerpt LIKE CONCAT('%', ?, '%')
    `
	if _, err := l.db.ExecContext(ctx, postsQuery, oldURL, newURL, oldURL, newURL, oldURL, oldURL); err != nil {
		return err
	}

	const settingsQuery = `
      UPDATE settings
      SET setting_value = REPLACE(setting_value, ?, ?)
      WHERE setting_value LIKE CONCAT('%', ?, '%')
    `
	_, err := l.db.ExecContext(ctx, settingsQuery, oldURL, newURL, oldURL)
	return err
}

// RegenerateRenditions rebuilds the size variants next to the main file and
// stores the resulting list on the attachment. Variants wider than the
// source are skipped.
func (l *MediaLibrary) RegenerateRenditions(ctx context.Context, id int64, localPath string) (model.Renditions, error) {
	log.Printf("regenerating renditions for attachment #%d...", id)

	attachment, err := l.GetAttachment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !attachment.IsImage() {
		return nil, nil
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("could not read file %q: %w", localPath, err)
	}

	var renditions model.Renditions
	for _, width := range l.renditionWidths {
		if attachment.Width > 0 && width >= attachment.Width {
			continue
		}
		resized, err := l.optimiser.Resize(attachment.MimeType, bytes.NewReader(data), width, 0)
		if err != nil {
			log.Printf("could not build the %dpx rendition for attachment #%d: %v", width, id, err)
			continue
		}
		name := renditionFileName(filepath.Base(localPath), resized.Width, resized.Height)
		if err := os.WriteFile(filepath.Join(filepath.Dir(localPath), name), resized.Data, 0o644); err != nil {
			return nil, fmt.Errorf("could not write rendition %q: %w", name, err)
		}
		renditions = append(renditions, model.Rendition{
			FileName: name,
			MimeType: attachment.MimeType,
			Width:    resized.Width,
			Height:   resized.Height,
		})
	}

	const query = `UPDATE attachments SET renditions = ? WHERE id = ?`
	if _, err := l.db.ExecContext(ctx, query, renditions, id); err != nil {
		return nil, err
	}
	return renditions, nil
}

// renditionFileName derives the variant name from the main file: photo.jpg
// at 300x200 becomes photo-300x200.jpg.
func renditionFileName(base string, width, height int) string {
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s-%dx%d%s", strings.TrimSuffix(base, ext), width, height, ext)
}
