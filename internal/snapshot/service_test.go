package snapshot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mtlprog/mintbridge/internal/domain"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func snapshotUpdatedAt(t *testing.T, ts ...time.Time) domain.Snapshot {
	t.Helper()
	js := "["
	for i, at := range ts {
		if i > 0 {
			js += ","
		}
		js += fmt.Sprintf(`{"id":"%d","name":"n","fiName":"f","fiLoginId":"l","type":"InvestmentAccount","currency":"USD","metaData":{"lastUpdatedDate":%q}}`,
			i, at.Format(time.RFC3339))
	}
	js += "]"
	snap, err := domain.ParseSnapshot([]byte(js))
	if err != nil {
		t.Fatalf("parsing snapshot: %v", err)
	}
	return snap
}

type mockStore struct {
	loaded    domain.Snapshot
	loadErr   error
	saveErr   error
	saved     *domain.Snapshot
	saveCalls int
}

func (m *mockStore) Load(_ context.Context) (domain.Snapshot, error) {
	if m.loadErr != nil {
		return domain.Snapshot{}, m.loadErr
	}
	return m.loaded, nil
}

func (m *mockStore) Save(_ context.Context, snap domain.Snapshot) error {
	m.saveCalls++
	m.saved = &snap
	return m.saveErr
}

type mockFetcher struct {
	snap  domain.Snapshot
	err   error
	calls int
}

func (m *mockFetcher) FetchAccounts(_ context.Context) (domain.Snapshot, error) {
	m.calls++
	return m.snap, m.err
}

func TestObtainNoPersistedSnapshotFetches(t *testing.T) {
	fresh := snapshotUpdatedAt(t, testNow)
	store := &mockStore{loadErr: ErrNotFound}
	fetcher := &mockFetcher{snap: fresh}

	got, err := Obtain(context.Background(), store, fetcher, DefaultMaxAgeHours, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", fetcher.calls)
	}
	if store.saveCalls != 1 {
		t.Errorf("save calls = %d, want 1", store.saveCalls)
	}
	if got.Len() != 1 {
		t.Errorf("Len() = %d, want 1", got.Len())
	}
}

func TestObtainStaleSnapshotFetches(t *testing.T) {
	store := &mockStore{loaded: snapshotUpdatedAt(t, testNow.Add(-5*time.Hour))}
	fetcher := &mockFetcher{snap: snapshotUpdatedAt(t, testNow, testNow)}

	got, err := Obtain(context.Background(), store, fetcher, DefaultMaxAgeHours, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", fetcher.calls)
	}
	if got.Len() != 2 {
		t.Errorf("Len() = %d, want fetched snapshot with 2 accounts", got.Len())
	}
	if store.saved == nil || store.saved.Len() != 2 {
		t.Error("expected fetched snapshot to be saved")
	}
}

func TestObtainFreshSnapshotReused(t *testing.T) {
	cached := snapshotUpdatedAt(t, testNow.Add(-3*time.Hour))
	store := &mockStore{loaded: cached}
	fetcher := &mockFetcher{}

	got, err := Obtain(context.Background(), store, fetcher, DefaultMaxAgeHours, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch calls = %d, want 0", fetcher.calls)
	}
	if store.saveCalls != 0 {
		t.Errorf("save calls = %d, want 0", store.saveCalls)
	}
	if got.Len() != 1 {
		t.Errorf("Len() = %d, want cached snapshot", got.Len())
	}
}

func TestObtainEmptySnapshotAlwaysFetches(t *testing.T) {
	for _, maxAge := range []int{0, 4, 1_000_000} {
		store := &mockStore{loaded: domain.Snapshot{}}
		fetcher := &mockFetcher{}

		if _, err := Obtain(context.Background(), store, fetcher, maxAge, testNow); err != nil {
			t.Fatalf("maxAge %d: unexpected error: %v", maxAge, err)
		}
		if fetcher.calls != 1 {
			t.Errorf("maxAge %d: fetch calls = %d, want 1", maxAge, fetcher.calls)
		}
	}
}

func TestObtainLoadErrorPropagates(t *testing.T) {
	store := &mockStore{loadErr: fmt.Errorf("parsing: %w", domain.ErrInvalidAccount)}
	fetcher := &mockFetcher{}

	_, err := Obtain(context.Background(), store, fetcher, DefaultMaxAgeHours, testNow)
	if !errors.Is(err, domain.ErrInvalidAccount) {
		t.Errorf("err = %v, want ErrInvalidAccount", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch calls = %d, want 0 on data-format error", fetcher.calls)
	}
}

func TestObtainFetchErrorPropagates(t *testing.T) {
	store := &mockStore{loadErr: ErrNotFound}
	fetcher := &mockFetcher{err: errors.New("upstream down")}

	if _, err := Obtain(context.Background(), store, fetcher, DefaultMaxAgeHours, testNow); err == nil {
		t.Fatal("expected error from fetcher")
	}
	if store.saveCalls != 0 {
		t.Errorf("save calls = %d, want 0", store.saveCalls)
	}
}

func TestObtainSaveErrorPropagates(t *testing.T) {
	store := &mockStore{loadErr: ErrNotFound, saveErr: errors.New("disk full")}
	fetcher := &mockFetcher{}

	if _, err := Obtain(context.Background(), store, fetcher, DefaultMaxAgeHours, testNow); err == nil {
		t.Fatal("expected error from store save")
	}
}

func TestServiceUsesClock(t *testing.T) {
	store := &mockStore{loaded: snapshotUpdatedAt(t, testNow.Add(-5*time.Hour))}
	fetcher := &mockFetcher{}
	svc := NewService(store, fetcher, DefaultMaxAgeHours)
	svc.now = func() time.Time { return testNow.Add(-2 * time.Hour) }

	if _, err := svc.Obtain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch calls = %d, want 0 (3h old at injected clock)", fetcher.calls)
	}
}

func TestFetcherFunc(t *testing.T) {
	called := false
	f := FetcherFunc(func(context.Context) (domain.Snapshot, error) {
		called = true
		return domain.Snapshot{}, nil
	})
	if _, err := f.FetchAccounts(context.Background()); err != nil || !called {
		t.Errorf("FetcherFunc not invoked correctly: called=%v err=%v", called, err)
	}
}
