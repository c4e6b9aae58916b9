package worker

import (
	"context"
	"time"

	"github.com/mtlprog/mintbridge/internal/logger"
)

// Refresher obtains a fresh or cached account snapshot.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshWorker periodically refreshes the account snapshot.
type RefreshWorker struct {
	refresher Refresher
	interval  time.Duration
	immediate bool
}

// NewRefreshWorker creates a new RefreshWorker. When immediate is set the
// first refresh runs on startup instead of after one interval.
func NewRefreshWorker(refresher Refresher, interval time.Duration, immediate bool) *RefreshWorker {
	return &RefreshWorker{
		refresher: refresher,
		interval:  interval,
		immediate: immediate,
	}
}

// Run starts the refresh worker loop. It blocks until the context is cancelled.
func (w *RefreshWorker) Run(ctx context.Context) {
	run(ctx, "RefreshWorker", w.interval, w.immediate, w.refresher.Refresh)
}

// run calls task every interval until ctx is cancelled. Failures are logged
// and retried on the next tick.
func run(ctx context.Context, name string, interval time.Duration, immediate bool, task func(context.Context) error) {
	log := logger.FromContext(ctx).With().Str("worker", name).Logger()
	log.Info().Dur("interval", interval).Msg("starting")

	tick := func(phase string) {
		if err := task(ctx); err != nil {
			log.Error().Err(err).Msg(phase + " failed")
		} else {
			log.Info().Msg(phase + " completed")
		}
	}

	if immediate {
		tick("initial run")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case <-ticker.C:
			tick("run")
		}
	}
}
