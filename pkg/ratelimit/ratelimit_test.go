package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowEnforcesBudget(t *testing.T) {
	l := New(2, time.Minute)

	if !l.Allow("1.2.3.4") || !l.Allow("1.2.3.4") {
		t.Fatal("in-budget events rejected")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("over-budget event allowed")
	}
	// Other IPs have their own bucket.
	if !l.Allow("5.6.7.8") {
		t.Fatal("separate IP shares a bucket")
	}
}

func TestWindowResets(t *testing.T) {
	l := New(1, 20*time.Millisecond)

	if !l.Allow("1.2.3.4") {
		t.Fatal("first event rejected")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("second event allowed in-window")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.Allow("1.2.3.4") {
		t.Fatal("budget did not reset after window")
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
}
