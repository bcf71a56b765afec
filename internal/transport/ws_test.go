package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"nhooyr.io/websocket"

	"battle-relay/internal/relay"
	"battle-relay/pkg/metrics"
)

func startWS(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := relay.NewManager(logger, metrics.New(prometheus.NewRegistry()))
	srv := httptest.NewServer(NewWSHandler(logger, mgr))
	t.Cleanup(srv.Close)
	return "ws" + srv.URL[len("http"):]
}

type wsClient struct {
	t   *testing.T
	ctx context.Context
	c   *websocket.Conn
}

func dialWS(t *testing.T, url string) *wsClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "done") })
	return &wsClient{t: t, ctx: ctx, c: c}
}

func (c *wsClient) send(s string) {
	c.t.Helper()
	if err := c.c.Write(c.ctx, websocket.MessageText, []byte(s)); err != nil {
		c.t.Fatalf("ws write: %v", err)
	}
}

func (c *wsClient) read() map[string]any {
	c.t.Helper()
	_, data, err := c.c.Read(c.ctx)
	if err != nil {
		c.t.Fatalf("ws read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		c.t.Fatalf("bad reply %q: %v", data, err)
	}
	return m
}

func TestWSPairAndForward(t *testing.T) {
	url := startWS(t)
	a := dialWS(t, url)
	b := dialWS(t, url)

	a.send(`{"op":"join","room":"w1","role":"host","name":"Alice"}`)
	if got := a.read(); got["op"] != "joined" || got["room"] != "w1" {
		t.Fatalf("host join got %v", got)
	}

	b.send(`{"op":"join","room":"w1","role":"join","name":"Bob"}`)
	if got := b.read(); got["op"] != "joined" {
		t.Fatalf("join got %v", got)
	}
	if got := a.read(); got["op"] != "ready" || got["peer"] != "Bob" {
		t.Fatalf("host ready got %v", got)
	}
	if got := b.read(); got["op"] != "ready" || got["peer"] != "Alice" {
		t.Fatalf("join ready got %v", got)
	}

	b.send(`{"op":"msg","type":"pin_edge","body":"P1,3,0,77"}`)
	fwd := a.read()
	if fwd["op"] != "msg" || fwd["type"] != "pin_edge" || fwd["body"] != "P1,3,0,77" {
		t.Fatalf("forwarded envelope mangled: %v", fwd)
	}
}

func TestWSMalformedMessageIsNotTerminal(t *testing.T) {
	url := startWS(t)
	c := dialWS(t, url)

	c.send(`nope`)
	if got := c.read(); got["op"] != "error" {
		t.Fatalf("malformed message got %v", got)
	}
	c.send(`{"op":"ping"}`)
	if got := c.read(); got["op"] != "pong" {
		t.Fatalf("ping after bad message got %v", got)
	}
}
