package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mtlprog/mintbridge/internal/domain"
	"github.com/mtlprog/mintbridge/internal/logger"
)

// Obtain returns the persisted snapshot when it is fresh, and otherwise
// fetches, persists and returns a new one. Malformed persisted data is an
// error, not a reason to refetch.
func Obtain(ctx context.Context, store Store, fetcher Fetcher, maxAgeHours int, now time.Time) (domain.Snapshot, error) {
	log := logger.FromContext(ctx)

	var cached *domain.Snapshot
	loaded, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Info().Msg("no persisted snapshot, fetching")
	case err != nil:
		return domain.Snapshot{}, fmt.Errorf("loading snapshot: %w", err)
	default:
		cached = &loaded
	}

	if Decide(now, cached, maxAgeHours) == Reuse {
		log.Info().
			Int("accounts", cached.Len()).
			Int64("age_hours", AgeHours(now, cached.Newest())).
			Msg("reusing persisted snapshot")
		return *cached, nil
	}

	if cached != nil {
		log.Info().
			Int64("age_hours", AgeHours(now, cached.Newest())).
			Int("max_age_hours", maxAgeHours).
			Msg("persisted snapshot is stale, fetching")
	}

	fetched, err := fetcher.FetchAccounts(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("fetching accounts: %w", err)
	}

	if err := store.Save(ctx, fetched); err != nil {
		return domain.Snapshot{}, fmt.Errorf("saving snapshot: %w", err)
	}

	log.Info().Int("accounts", fetched.Len()).Msg("fetched and persisted snapshot")
	return fetched, nil
}

// Service binds a store, a fetcher and a staleness threshold together.
type Service struct {
	store       Store
	fetcher     Fetcher
	maxAgeHours int
	now         func() time.Time
}

// NewService creates a new snapshot Service.
func NewService(store Store, fetcher Fetcher, maxAgeHours int) *Service {
	return &Service{
		store:       store,
		fetcher:     fetcher,
		maxAgeHours: maxAgeHours,
		now:         time.Now,
	}
}

// Obtain returns a snapshot no older than the configured threshold.
func (s *Service) Obtain(ctx context.Context) (domain.Snapshot, error) {
	return Obtain(ctx, s.store, s.fetcher, s.maxAgeHours, s.now())
}

// Cached returns the persisted snapshot without any freshness check.
func (s *Service) Cached(ctx context.Context) (domain.Snapshot, error) {
	return s.store.Load(ctx)
}
