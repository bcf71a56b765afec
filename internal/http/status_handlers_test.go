package httpx

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"battle-relay/internal/relay"
	"battle-relay/pkg/metrics"
)

type stubPeer struct{ id string }

func (p *stubPeer) ID() string         { return p.id }
func (p *stubPeer) RemoteAddr() string { return "127.0.0.1:1" + p.id }
func (p *stubPeer) Send(any) error     { return nil }

func pairedManager(t *testing.T) *relay.Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := relay.NewManager(logger, metrics.New(prometheus.NewRegistry()))

	host := mgr.Connect(&stubPeer{id: "h"})
	mgr.Handle(host, relay.Inbound{"op": "join", "room": "arena", "role": "host", "name": "Alice"})
	joiner := mgr.Connect(&stubPeer{id: "j"})
	mgr.Handle(joiner, relay.Inbound{"op": "join", "room": "arena", "role": "join", "name": "Bob"})
	return mgr
}

func TestStatusRoomsJSON(t *testing.T) {
	api := &StatusAPI{Relay: pairedManager(t)}

	rec := httptest.NewRecorder()
	api.Rooms(rec, httptest.NewRequest("GET", "/api/status", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var snap relay.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if snap.RoomCount != 1 || snap.Occupants != 2 {
		t.Fatalf("totals = %d/%d, want 1/2", snap.RoomCount, snap.Occupants)
	}
	room := snap.Rooms[0]
	if room.Key != "arena" || room.Host != "Alice" || room.Join != "Bob" {
		t.Fatalf("bad room status: %+v", room)
	}
}

func TestStatusPageHTML(t *testing.T) {
	api := &StatusAPI{Relay: pairedManager(t)}

	rec := httptest.NewRecorder()
	api.Page(rec, httptest.NewRequest("GET", "/", nil))

	body := rec.Body.String()
	for _, want := range []string{"arena", "Alice", "Bob", "1 room(s)"} {
		if !strings.Contains(body, want) {
			t.Fatalf("status page missing %q:\n%s", want, body)
		}
	}
}
