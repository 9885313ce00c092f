package port

import "context"

// VisionRequest is the uniform contract for vision-completion providers.
type VisionRequest struct {
	Prompt    string
	ImageMIME string
	ImageData []byte
}

// VisionCompleter produces a text completion from a prompt plus an image.
type VisionCompleter interface {
	CompleteVision(ctx context.Context, req VisionRequest) (string, error)
}
