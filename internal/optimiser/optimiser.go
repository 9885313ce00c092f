package optimiser

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"math"

	"golang.org/x/image/draw"

	"github.com/featherlift/featherlift-go/internal/port"
)

const defaultQuality = 80

// FileOptimiser resizes and compresses media files before upload. Images are
// re-encoded in their own format; when an external service is configured it
// takes over compression, otherwise the native encoders do the work.
type FileOptimiser struct {
	webpEnc  WebPEncoder
	external ExternalCompressor
	quality  int
}

// compile-time check: *FileOptimiser must satisfy port.FileOptimiser
var _ port.FileOptimiser = (*FileOptimiser)(nil)

func NewFileOptimiser(webpEnc WebPEncoder, external ExternalCompressor, quality int) *FileOptimiser {
	log.Println("initialising file optimiser...")
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}
	return &FileOptimiser{webpEnc: webpEnc, external: external, quality: quality}
}

// Resize scales the image down to fit within maxWidth×maxHeight, preserving
// the aspect ratio. Either bound may be 0 for "unbounded". Images already
// within bounds come back re-encoded at their original size.
func (o *FileOptimiser) Resize(mimeType string, r io.Reader, maxWidth, maxHeight int) (*port.ResizeResult, error) {
	img, _, err := o.webpEnc.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("optimiser: failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := fit(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	if width != bounds.Dx() || height != bounds.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	data, err := o.encode(mimeType, img)
	if err != nil {
		return nil, err
	}
	return &port.ResizeResult{Data: data, Width: width, Height: height}, nil
}

// Compress re-encodes the file and reports which service produced the bytes.
// Non-image files pass through untouched.
func (o *FileOptimiser) Compress(mimeType string, r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("optimiser: failed to read data: %w", err)
	}

	switch mimeType {
	case "image/jpeg", "image/png", "image/webp":
	default:
		return data, "", nil
	}

	if o.external != nil {
		out, err := o.external.Compress(mimeType, data)
		if err != nil {
			return nil, "", err
		}
		return out, o.external.Name(), nil
	}

	img, _, err := o.webpEnc.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("optimiser: failed to decode image: %w", err)
	}
	out, err := o.encode(mimeType, img)
	if err != nil {
		return nil, "", err
	}
	return out, "native", nil
}

func (o *FileOptimiser) encode(mimeType string, img image.Image) ([]byte, error) {
	buf := &bytes.Buffer{}
	switch mimeType {
	case "image/jpeg":
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: o.quality}); err != nil {
			return nil, fmt.Errorf("optimiser: failed to encode JPEG: %w", err)
		}
	case "image/png":
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		if err := encoder.Encode(buf, img); err != nil {
			return nil, fmt.Errorf("optimiser: failed to encode PNG: %w", err)
		}
	case "image/webp":
		if err := o.webpEnc.Encode(img, o.quality, buf); err != nil {
			return nil, fmt.Errorf("optimiser: failed to encode WebP: %w", err)
		}
	default:
		return nil, fmt.Errorf("optimiser: unsupported image type %q", mimeType)
	}
	return buf.Bytes(), nil
}

// fit returns the largest dimensions within the given bounds that preserve
// the aspect ratio, never scaling up.
func fit(width, height, maxWidth, maxHeight int) (int, int) {
	scale := 1.0
	if maxWidth > 0 && width > maxWidth {
		scale = float64(maxWidth) / float64(width)
	}
	if maxHeight > 0 && float64(height)*scale > float64(maxHeight) {
		scale = float64(maxHeight) / float64(height)
	}
	if scale >= 1.0 {
		return width, height
	}
	scaledWidth := int(math.Round(float64(width) * scale))
	scaledHeight := int(math.Round(float64(height) * scale))
	if scaledWidth < 1 {
		scaledWidth = 1
	}
	if scaledHeight < 1 {
		scaledHeight = 1
	}
	return scaledWidth, scaledHeight
}
