package optimiser

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/webp"
)

// ChaiWebPEncoder backs the WebPEncoder interface with chai2010/webp; the
// blank imports register the decoders image.Decode needs.
type ChaiWebPEncoder struct{}

var _ WebPEncoder = (*ChaiWebPEncoder)(nil)

func NewWebPEncoder() *ChaiWebPEncoder {
	return &ChaiWebPEncoder{}
}

func (e *ChaiWebPEncoder) Encode(img image.Image, quality int, w io.Writer) error {
	return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
}

func (e *ChaiWebPEncoder) Decode(r io.Reader) (image.Image, string, error) {
	return image.Decode(r)
}
