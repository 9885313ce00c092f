package port

import (
	"context"

	"github.com/featherlift/featherlift-go/internal/model"
)

// QueueMessage is one at-least-once delivery. The receipt handle must be
// used to acknowledge (delete) the message; an unacknowledged message
// becomes visible again after the visibility timeout.
type QueueMessage struct {
	ID            string
	ReceiptHandle string
	Body          string
}

// Queue defines the message-queue operations. Receive never blocks beyond
// the provider's long-poll wait; callers loop until an empty batch returns.
type Queue interface {
	CreateQueue(ctx context.Context, name string) (string, error)
	DeleteQueue(ctx context.Context, queueURL string) error
	Send(ctx context.Context, queueURL string, msg model.TransferMessage) (string, error)
	Receive(ctx context.Context, queueURL string, maxMessages int) ([]QueueMessage, error)
	DeleteMessage(ctx context.Context, queueURL, receiptHandle string) error
}
