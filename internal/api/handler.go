package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/mtlprog/mintbridge/internal/bridge"
	"github.com/mtlprog/mintbridge/internal/discovery"
	"github.com/mtlprog/mintbridge/internal/domain"
	"github.com/mtlprog/mintbridge/internal/logger"
)

// Bridge is the part of bridge.Service the API needs.
type Bridge interface {
	Snapshot() (domain.Snapshot, bool)
	Normalize(ctx context.Context) ([]discovery.Record, error)
	Refresh(ctx context.Context) error
}

// SnapshotSummary is the response body of the snapshot endpoints.
type SnapshotSummary struct {
	Accounts    int             `json:"accounts"`
	LastUpdated time.Time       `json:"last_updated"`
	Data        domain.Snapshot `json:"data"`
}

// Handler provides HTTP endpoints for the bridge API.
type Handler struct {
	bridge Bridge
}

// NewHandler creates a new API handler.
func NewHandler(b Bridge) *Handler {
	return &Handler{bridge: b}
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	_, ok := h.bridge.Snapshot()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true, "snapshot_loaded": ok})
}

// ListAccounts handles GET /api/v1/accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	records, err := h.bridge.Normalize(r.Context())
	if err != nil {
		if errors.Is(err, bridge.ErrNoSnapshot) {
			writeError(w, http.StatusNotFound, "no snapshot loaded")
			return
		}
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("failed to normalize snapshot")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetSnapshot handles GET /api/v1/snapshot.
func (h *Handler) GetSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.bridge.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "no snapshot loaded")
		return
	}
	writeJSON(w, http.StatusOK, summarize(snap))
}

// Refresh handles POST /api/v1/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.bridge.Refresh(r.Context()); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("failed to refresh snapshot")
		writeError(w, http.StatusInternalServerError, "failed to refresh snapshot")
		return
	}
	snap, _ := h.bridge.Snapshot()
	writeJSON(w, http.StatusOK, summarize(snap))
}

func summarize(snap domain.Snapshot) SnapshotSummary {
	return SnapshotSummary{
		Accounts:    snap.Len(),
		LastUpdated: snap.Newest(),
		Data:        snap,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to marshal JSON response")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		zlog.Warn().Err(err).Msg("failed to write HTTP response body")
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
