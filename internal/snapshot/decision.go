package snapshot

import (
	"math"
	"time"

	"github.com/mtlprog/mintbridge/internal/domain"
)

// DefaultMaxAgeHours is the staleness threshold used when none is configured.
const DefaultMaxAgeHours = 4

// Decision is the outcome of a freshness check.
type Decision int

const (
	// Reuse means the persisted snapshot is fresh enough to serve.
	Reuse Decision = iota
	// Refresh means a new snapshot must be fetched upstream.
	Refresh
)

func (d Decision) String() string {
	switch d {
	case Reuse:
		return "reuse"
	case Refresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// AgeHours returns the whole hours elapsed since newest, rounded down.
func AgeHours(now, newest time.Time) int64 {
	return int64(math.Floor(now.Sub(newest).Hours()))
}

// Decide chooses between reusing cached and fetching anew. A nil cached
// snapshot means nothing is persisted. An empty snapshot dates from the
// epoch and is always stale, whatever the threshold.
func Decide(now time.Time, cached *domain.Snapshot, maxAgeHours int) Decision {
	if cached == nil || cached.Len() == 0 {
		return Refresh
	}
	if AgeHours(now, cached.Newest()) > int64(maxAgeHours) {
		return Refresh
	}
	return Reuse
}
