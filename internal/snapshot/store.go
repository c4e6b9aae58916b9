package snapshot

import (
	"context"
	"errors"

	"github.com/mtlprog/mintbridge/internal/domain"
)

// ErrNotFound indicates that no snapshot has been persisted yet.
var ErrNotFound = errors.New("snapshot not found")

// Store persists the latest snapshot. Save replaces any previous snapshot
// wholesale; snapshots are never merged.
type Store interface {
	Load(ctx context.Context) (domain.Snapshot, error)
	Save(ctx context.Context, snap domain.Snapshot) error
}

// Fetcher retrieves a fresh snapshot from the upstream aggregator.
type Fetcher interface {
	FetchAccounts(ctx context.Context) (domain.Snapshot, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) (domain.Snapshot, error)

func (f FetcherFunc) FetchAccounts(ctx context.Context) (domain.Snapshot, error) {
	return f(ctx)
}
