package optimiser

import (
	"image"
	"io"
	"net/http"
)

type WebPEncoder interface {
	Encode(img image.Image, quality int, w io.Writer) error
	Decode(r io.Reader) (image.Image, string, error)
}

// ExternalCompressor is a remote compression service (TinyPNG and friends).
type ExternalCompressor interface {
	Name() string
	Compress(mimeType string, data []byte) ([]byte, error)
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
