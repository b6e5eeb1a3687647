package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func securityHeadersResponse(t *testing.T, env string, proto string) *httptest.ResponseRecorder {
	t.Helper()
	handler := SecurityHeaders(SecurityHeadersConfig{Env: env})

	req := httptest.NewRequest("GET", "/", nil)
	if proto != "" {
		req.Header.Set("X-Forwarded-Proto", proto)
	}
	w := httptest.NewRecorder()

	handler(okHandler()).ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_Production(t *testing.T) {
	w := securityHeadersResponse(t, "production", "")

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Cross-Origin-Opener-Policy", "same-origin"},
		{"X-DNS-Prefetch-Control", "off"},
	}

	for _, tt := range tests {
		if got := w.Header().Get(tt.header); got != tt.expected {
			t.Errorf("Header %s: got %q, want %q", tt.header, got, tt.expected)
		}
	}

	csp := w.Header().Get("Content-Security-Policy")
	if csp == "" {
		t.Fatal("Content-Security-Policy header missing")
	}
	if !strings.Contains(csp, "default-src 'none'") {
		t.Errorf("production CSP should deny by default, got %q", csp)
	}
	if !strings.Contains(csp, "frame-ancestors 'none'") {
		t.Errorf("production CSP should forbid framing, got %q", csp)
	}
}

func TestSecurityHeaders_Development_LenientCSP(t *testing.T) {
	w := securityHeadersResponse(t, "development", "")

	csp := w.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'self' http: https: ws:") {
		t.Errorf("development CSP should allow local tooling, got %q", csp)
	}
}

func TestSecurityHeaders_HSTS_OnlyProductionHTTPS(t *testing.T) {
	if got := securityHeadersResponse(t, "production", "https").Header().Get("Strict-Transport-Security"); got == "" {
		t.Error("HSTS missing on production HTTPS response")
	}
	if got := securityHeadersResponse(t, "production", "").Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS must not be set without TLS, got %q", got)
	}
	if got := securityHeadersResponse(t, "development", "https").Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS must not be set in development, got %q", got)
	}
}
