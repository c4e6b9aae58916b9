package worker

import (
	"context"
	"time"
)

// Publisher sends the current records to the broker.
type Publisher interface {
	Publish(ctx context.Context) error
}

// PublishWorker periodically republishes discovery, state and attribute messages.
type PublishWorker struct {
	publisher Publisher
	interval  time.Duration
	immediate bool
}

// NewPublishWorker creates a new PublishWorker.
func NewPublishWorker(publisher Publisher, interval time.Duration, immediate bool) *PublishWorker {
	return &PublishWorker{
		publisher: publisher,
		interval:  interval,
		immediate: immediate,
	}
}

// Run starts the publish worker loop. It blocks until the context is cancelled.
func (w *PublishWorker) Run(ctx context.Context) {
	run(ctx, "PublishWorker", w.interval, w.immediate, w.publisher.Publish)
}
