package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitByIP_AllowsWithinLimit(t *testing.T) {
	limiter := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 3})
	handler := limiter(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
}

func TestRateLimitByIP_RejectsOverLimit(t *testing.T) {
	limiter := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 2})
	handler := limiter(okHandler())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "192.0.2.11:4000"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exceeding limit, got %d", last.Code)
	}
	if !strings.Contains(last.Body.String(), "rate_limit_exceeded") {
		t.Errorf("expected rate_limit_exceeded error code, got %s", last.Body.String())
	}
	if ct := last.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON refusal, got Content-Type %q", ct)
	}
}

func TestRateLimitByIP_IndependentPerIP(t *testing.T) {
	limiter := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1})
	handler := limiter(okHandler())

	first := httptest.NewRequest("POST", "/auth/login", nil)
	first.RemoteAddr = "192.0.2.12:4000"
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, first)

	exhausted := httptest.NewRequest("POST", "/auth/login", nil)
	exhausted.RemoteAddr = "192.0.2.12:4000"
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, exhausted)

	other := httptest.NewRequest("POST", "/auth/login", nil)
	other.RemoteAddr = "192.0.2.13:4000"
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, other)

	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("second request from same IP: expected 429, got %d", w2.Code)
	}
	if w3.Code != http.StatusOK {
		t.Errorf("request from different IP: expected 200, got %d", w3.Code)
	}
}

func TestDefaultLimits(t *testing.T) {
	authLimit := DefaultAuthRateLimit().RequestsPerMinute
	telemetryLimit := DefaultTelemetryRateLimit().RequestsPerMinute

	if authLimit <= 0 {
		t.Error("auth rate limit must be positive")
	}
	if telemetryLimit <= authLimit {
		t.Errorf("telemetry limit (%d) should exceed auth limit (%d)", telemetryLimit, authLimit)
	}
}
