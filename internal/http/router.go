package httpx

import (
	"net/http"

	"log/slog"

	"battle-relay/internal/app"
	"battle-relay/internal/relay"
	"battle-relay/internal/transport"
	"battle-relay/pkg/metrics"
)

// NewRouter wires up the status page, metrics, and the WebSocket transport
func NewRouter(cfg app.Config, logger *slog.Logger, mgr *relay.Manager, wsh *transport.WSHandler) http.Handler {
	mw := NewMiddleware(cfg)
	status := &StatusAPI{Relay: mgr}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket transport endpoint
	mux.Handle("/ws", wsh)

	// Human-facing status page + JSON snapshot
	mux.Handle("/{$}", http.HandlerFunc(status.Page))
	mux.Handle("/api/status", http.HandlerFunc(status.Rooms))

	return mw.Wrap(mux) // CORS + rate limit applied globally
}
