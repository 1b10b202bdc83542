package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterPerIP(t *testing.T) {
	var limited int
	rl := NewRateLimiter(1, 1).OnLimit(func() { limited++ })
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("1.2.3.4:1000"); code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := send("1.2.3.4:2000"); code != http.StatusTooManyRequests {
		t.Fatalf("expected same IP on another port to be throttled, got %d", code)
	}
	if code := send("5.6.7.8:1000"); code != http.StatusOK {
		t.Fatalf("expected other IP to pass, got %d", code)
	}
	if limited != 1 {
		t.Fatalf("expected one limit callback, got %d", limited)
	}
}

func TestGetIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := getIP(req); got != "10.0.0.1" {
		t.Fatalf("expected host from RemoteAddr, got %q", got)
	}

	req.Header.Set("X-Real-IP", "192.168.1.1")
	if got := getIP(req); got != "192.168.1.1" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	if got := getIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}

func TestCleanupLimiters(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.getLimiter("a")
	rl.visitors["a"].lastSeen = time.Now().Add(-time.Hour)
	rl.getLimiter("b")

	rl.CleanupLimiters(time.Minute)

	if _, ok := rl.visitors["a"]; ok {
		t.Fatalf("expected idle limiter to be removed")
	}
	if _, ok := rl.visitors["b"]; !ok {
		t.Fatalf("expected active limiter to be kept")
	}
}
