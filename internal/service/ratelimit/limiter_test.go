package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestAllowRefills(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("bucket should start full")
	}
	if l.Allow("a") {
		t.Fatalf("bucket should be empty")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share buckets")
	}
	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatalf("one token should refill after a second")
	}
	if l.Allow("a") {
		t.Fatalf("only one token should refill")
	}
}

func TestPrune(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 0)
	l.now = func() time.Time { return now }
	l.Allow("a")
	now = now.Add(time.Hour)
	if n := l.Prune(time.Minute); n != 1 {
		t.Fatalf("expected one pruned key, got %d", n)
	}
	if !l.Allow("a") {
		t.Fatalf("pruned key should start full")
	}
}

func TestAllowPrunesIdleKeys(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 0, WithIdleTTL(time.Minute))
	l.now = func() time.Time { return now }
	l.Allow("a")
	now = now.Add(2 * time.Minute)
	l.Allow("b")
	if _, ok := l.clients["a"]; ok {
		t.Fatalf("idle key should have been pruned")
	}
	if len(l.clients) != 1 {
		t.Fatalf("expected one live key, got %d", len(l.clients))
	}
}

func TestMiddlewareRetryAfter(t *testing.T) {
	e := echo.New()
	e.Use(New(1, 0.5).Middleware())
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	var rec *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	l := New(1, 0)
	e.Use(l.Middleware())
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}
	if rec := do(); rec.Body.String() != "ok" {
		t.Fatalf("first request should pass, got %q", rec.Body.String())
	}
	rec := do()
	if rec.Body.String() == "ok" {
		t.Fatalf("second request should be limited")
	}
}
