package offload

import "errors"

var (
	ErrJobNotFound         = errors.New("offload: job not found")
	ErrAttachmentNotFound  = errors.New("offload: attachment not found")
	ErrLocalFileMissing    = errors.New("offload: local file does not exist")
	ErrNotOffloaded        = errors.New("offload: attachment is not on the object store")
	ErrNotImage            = errors.New("offload: attachment is not an image")
	ErrStackNotProvisioned = errors.New("offload: stack is not provisioned")
)
