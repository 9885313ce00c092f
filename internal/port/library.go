package port

import (
	"context"

	"github.com/featherlift/featherlift-go/internal/model"
)

// AttachmentNamer is the slice of the library the provisioner needs: the
// name feeding the first-file bucket naming strategy.
type AttachmentNamer interface {
	// FirstAttachmentFilename returns the extension-less file name of the
	// oldest attachment, or "" when the library is empty.
	FirstAttachmentFilename(ctx context.Context) (string, error)
}

// MediaLibrary is the narrow boundary to the host system that owns the media
// items. The pipeline reads and writes specific fields through it but never
// manages the attachment lifecycle itself.
type MediaLibrary interface {
	AttachmentNamer

	GetAttachment(ctx context.Context, id int64) (*model.Attachment, error)
	// LocalPath resolves the absolute path of the attachment's main file.
	LocalPath(ctx context.Context, id int64) (string, error)
	// LocalURL is the URL the attachment serves from when hosted locally.
	LocalURL(ctx context.Context, id int64) (string, error)

	SetObjectLocation(ctx context.Context, id int64, key, bucket, url string) error
	ClearObjectLocation(ctx context.Context, id int64) error

	RecordDimensions(ctx context.Context, id int64, width, height int) error
	SetPrimaryURL(ctx context.Context, id int64, url string) error
	SetAltText(ctx context.Context, id int64, alt string) error

	// RewriteReferences replaces oldURL with newURL everywhere the host
	// stores content: post bodies, excerpts, metadata and settings.
	RewriteReferences(ctx context.Context, oldURL, newURL string) error

	// RegenerateRenditions rebuilds the size variants from the local main
	// file and records them on the attachment.
	RegenerateRenditions(ctx context.Context, id int64, localPath string) (model.Renditions, error)
}
