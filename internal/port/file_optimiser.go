package port

import "io"

// ResizeResult carries the resized bytes and the resulting dimensions.
type ResizeResult struct {
	Data   []byte
	Width  int
	Height int
}

// FileOptimiser defines file optimisation operations used before upload and
// for rendition generation.
type FileOptimiser interface {
	// Resize scales the image down so it fits within maxWidth×maxHeight
	// (either bound may be 0 for "unbounded"). Images already within bounds
	// are returned re-encoded as-is.
	Resize(mimeType string, r io.Reader, maxWidth, maxHeight int) (*ResizeResult, error)
	// Compress re-encodes the file and returns the bytes plus the name of
	// the service that produced them.
	Compress(mimeType string, r io.Reader) ([]byte, string, error)
}
