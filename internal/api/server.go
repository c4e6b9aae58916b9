// Package api serves a small read-mostly HTTP API over the bridge state.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, bridge Bridge, adminAPIKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(bridge, adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // a refresh may wait on the upstream fetch
		IdleTimeout:  60 * time.Second,
	}
}

// NewRouter returns the route table. The refresh endpoint requires a bearer
// token when adminAPIKey is set.
func NewRouter(bridge Bridge, adminAPIKey string) http.Handler {
	handler := NewHandler(bridge)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handler.Health)
	mux.HandleFunc("GET /api/v1/accounts", handler.ListAccounts)
	mux.HandleFunc("GET /api/v1/snapshot", handler.GetSnapshot)

	refreshHandler := http.HandlerFunc(handler.Refresh)
	if adminAPIKey != "" {
		mux.Handle("POST /api/v1/refresh", requireAuth(adminAPIKey, refreshHandler))
	} else {
		mux.Handle("POST /api/v1/refresh", refreshHandler)
	}

	return mux
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
