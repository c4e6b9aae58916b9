package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mtlprog/mintbridge/internal/bridge"
	"github.com/mtlprog/mintbridge/internal/discovery"
	"github.com/mtlprog/mintbridge/internal/domain"
)

const testSnapshotJSON = `[
	{"id":"1001","name":"Checking","fiName":"First Bank","fiLoginId":"login-1","type":"BankAccount",
	 "bankAccountType":"CHECKING","currency":"USD","currentBalance":100,
	 "metaData":{"lastUpdatedDate":"2026-10-17T08:30:00Z"}},
	{"id":"2001","name":"Brokerage","fiName":"Broker","fiLoginId":"login-2","type":"InvestmentAccount",
	 "currency":"USD","value":5000,"metaData":{"lastUpdatedDate":"2026-10-16T08:30:00Z"}}
]`

type mockBridge struct {
	loaded       domain.Snapshot
	snap         *domain.Snapshot
	refreshErr   error
	refreshCalls int
	normalizer   *discovery.Normalizer
}

func newMockBridge(t *testing.T) *mockBridge {
	t.Helper()
	snap, err := domain.ParseSnapshot([]byte(testSnapshotJSON))
	if err != nil {
		t.Fatalf("parsing snapshot: %v", err)
	}
	return &mockBridge{
		loaded:     snap,
		normalizer: discovery.NewNormalizer(discovery.NewNamer("", "")),
	}
}

func (m *mockBridge) Snapshot() (domain.Snapshot, bool) {
	if m.snap == nil {
		return domain.Snapshot{}, false
	}
	return *m.snap, true
}

func (m *mockBridge) Normalize(ctx context.Context) ([]discovery.Record, error) {
	if m.snap == nil {
		return nil, bridge.ErrNoSnapshot
	}
	return m.normalizer.Normalize(ctx, *m.snap), nil
}

func (m *mockBridge) Refresh(_ context.Context) error {
	m.refreshCalls++
	if m.refreshErr != nil {
		return m.refreshErr
	}
	m.snap = &m.loaded
	return nil
}

func TestGetSnapshotNotLoaded(t *testing.T) {
	handler := NewHandler(newMockBridge(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	w := httptest.NewRecorder()
	handler.GetSnapshot(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetSnapshotSuccess(t *testing.T) {
	b := newMockBridge(t)
	b.snap = &b.loaded
	handler := NewHandler(b)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	w := httptest.NewRecorder()
	handler.GetSnapshot(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var result struct {
		Accounts    int               `json:"accounts"`
		LastUpdated time.Time         `json:"last_updated"`
		Data        []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Accounts != 2 || len(result.Data) != 2 {
		t.Errorf("accounts = %d, data = %d; want 2, 2", result.Accounts, len(result.Data))
	}
	want := time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC)
	if !result.LastUpdated.Equal(want) {
		t.Errorf("last_updated = %v, want %v", result.LastUpdated, want)
	}
}

func TestListAccountsNotLoaded(t *testing.T) {
	handler := NewHandler(newMockBridge(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	w := httptest.NewRecorder()
	handler.ListAccounts(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListAccountsReturnsRecords(t *testing.T) {
	b := newMockBridge(t)
	b.snap = &b.loaded
	handler := NewHandler(b)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	w := httptest.NewRecorder()
	handler.ListAccounts(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var records []discovery.Record
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[1].StateTopic != "mint/data/broker/brokerage_2001" {
		t.Errorf("state topic = %q", records[1].StateTopic)
	}
}

func TestRefreshSuccess(t *testing.T) {
	b := newMockBridge(t)
	handler := NewHandler(b)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var result SnapshotSummary
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Accounts != 2 {
		t.Errorf("accounts = %d, want 2", result.Accounts)
	}
}

func TestRefreshFailure(t *testing.T) {
	b := newMockBridge(t)
	b.refreshErr = errors.New("upstream down")
	handler := NewHandler(b)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestHealth(t *testing.T) {
	handler := NewHandler(newMockBridge(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.Health(w, req)

	var body map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !body["ok"] || body["snapshot_loaded"] {
		t.Errorf("body = %v, want ok without snapshot", body)
	}
}
