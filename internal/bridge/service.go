// Package bridge holds the state shared by the refresh and publish cycles.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mtlprog/mintbridge/internal/discovery"
	"github.com/mtlprog/mintbridge/internal/domain"
	"github.com/mtlprog/mintbridge/internal/logger"
	"github.com/mtlprog/mintbridge/internal/wire"
)

// ErrNoSnapshot indicates that publishing was requested before any refresh succeeded.
var ErrNoSnapshot = errors.New("no snapshot loaded")

// SnapshotSource provides a snapshot that satisfies the freshness policy.
type SnapshotSource interface {
	Obtain(ctx context.Context) (domain.Snapshot, error)
}

// Publisher delivers one encoded payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, retain bool) error
}

// AfterRefreshHook is called after each successful refresh.
type AfterRefreshHook interface {
	Export(ctx context.Context, snap domain.Snapshot) error
}

// Service keeps the latest snapshot in memory between refresh and publish cycles.
type Service struct {
	source     SnapshotSource
	normalizer *discovery.Normalizer
	publisher  Publisher
	hook       AfterRefreshHook // optional

	mu       sync.Mutex
	snapshot *domain.Snapshot
	records  []discovery.Record
}

// NewService creates a new bridge Service. publisher and hook may be nil.
func NewService(source SnapshotSource, normalizer *discovery.Normalizer, publisher Publisher, hook AfterRefreshHook) *Service {
	return &Service{
		source:     source,
		normalizer: normalizer,
		publisher:  publisher,
		hook:       hook,
	}
}

// Refresh obtains a snapshot, fetching upstream if the cached one is stale,
// and keeps it for the next publish cycle.
func (s *Service) Refresh(ctx context.Context) error {
	log := logger.FromContext(ctx).With().Str("cycle_id", uuid.NewString()).Str("cycle", "refresh").Logger()
	ctx = logger.WithContext(ctx, log)

	snap, err := s.source.Obtain(ctx)
	if err != nil {
		return fmt.Errorf("obtaining snapshot: %w", err)
	}

	s.mu.Lock()
	s.snapshot = &snap
	s.mu.Unlock()

	log.Info().Int("accounts", snap.Len()).Msg("snapshot ready")

	if s.hook != nil {
		if err := s.hook.Export(ctx, snap); err != nil {
			log.Error().Err(err).Msg("export hook failed")
		} else {
			log.Info().Msg("export hook completed")
		}
	}
	return nil
}

// Normalize rebuilds the records from the current snapshot and returns them.
func (s *Service) Normalize(ctx context.Context) ([]discovery.Record, error) {
	s.mu.Lock()
	snap := s.snapshot
	s.mu.Unlock()

	if snap == nil {
		return nil, ErrNoSnapshot
	}

	records := s.normalizer.Normalize(ctx, *snap)

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return records, nil
}

// Publish normalizes the current snapshot and sends every record's messages
// in order. A failed message does not stop the rest of the cycle; all
// failures are returned together.
func (s *Service) Publish(ctx context.Context) error {
	log := logger.FromContext(ctx).With().Str("cycle_id", uuid.NewString()).Str("cycle", "publish").Logger()
	ctx = logger.WithContext(ctx, log)

	if s.publisher == nil {
		return errors.New("no publisher configured")
	}

	records, err := s.Normalize(ctx)
	if err != nil {
		return err
	}

	var errs []error
	sent := 0
	for _, r := range records {
		for _, msg := range r.Messages() {
			payload, err := wire.Encode(msg.Payload)
			if err != nil {
				errs = append(errs, fmt.Errorf("encoding %s: %w", msg.Topic, err))
				continue
			}
			if err := s.publisher.Publish(ctx, msg.Topic, payload, msg.Retain); err != nil {
				errs = append(errs, err)
				continue
			}
			sent++
		}
		log.Debug().Str("state_topic", r.StateTopic).Msg("published account")
	}

	log.Info().Int("records", len(records)).Int("messages", sent).Int("failed", len(errs)).Msg("publish cycle finished")
	return errors.Join(errs...)
}

// Snapshot returns the snapshot held in memory, if any.
func (s *Service) Snapshot() (domain.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return domain.Snapshot{}, false
	}
	return *s.snapshot, true
}

// Records returns the records built by the last publish or normalize call.
func (s *Service) Records() []discovery.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]discovery.Record(nil), s.records...)
}
