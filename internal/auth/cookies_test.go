package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestTrustTokenCookie_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	SetTrustTokenCookie(rec, "trust-abc", 3600, CookieConfig{Secure: true, SameSite: "strict"})

	cookie := findCookie(t, rec, "trusted_device")
	if cookie == nil {
		t.Fatal("trust cookie not set")
	}
	if !cookie.HttpOnly {
		t.Error("trust cookie must be httpOnly")
	}
	if !cookie.Secure {
		t.Error("trust cookie should carry the Secure flag from config")
	}
	if cookie.MaxAge != 3600 {
		t.Errorf("expected MaxAge 3600, got %d", cookie.MaxAge)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "trusted_device", Value: "trust-abc"})
	if got := GetTrustTokenCookie(req); got != "trust-abc" {
		t.Errorf("expected trust-abc, got %q", got)
	}
}

func TestGetTrustTokenCookie_Absent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetTrustTokenCookie(req); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestClearTrustTokenCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearTrustTokenCookie(rec, CookieConfig{})

	cookie := findCookie(t, rec, "trusted_device")
	if cookie == nil {
		t.Fatal("clearing should still emit the cookie")
	}
	if cookie.MaxAge != -1 {
		t.Errorf("expected MaxAge -1, got %d", cookie.MaxAge)
	}
	if cookie.Value != "" {
		t.Errorf("expected empty value, got %q", cookie.Value)
	}
}

func TestSessionIDCookie_IsSessionScoped(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionIDCookie(rec, "session-123", CookieConfig{SameSite: "lax"})

	cookie := findCookie(t, rec, "sid")
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if cookie.MaxAge != 0 {
		t.Errorf("session cookie must not set MaxAge, got %d", cookie.MaxAge)
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be httpOnly")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "session-123"})
	if got := GetSessionIDCookie(req); got != "session-123" {
		t.Errorf("expected session-123, got %q", got)
	}
}

func TestParseSameSite(t *testing.T) {
	cases := map[string]http.SameSite{
		"strict":  http.SameSiteStrictMode,
		"lax":     http.SameSiteLaxMode,
		"none":    http.SameSiteNoneMode,
		"":        http.SameSiteDefaultMode,
		"unknown": http.SameSiteDefaultMode,
	}
	for input, want := range cases {
		if got := parseSameSite(input); got != want {
			t.Errorf("parseSameSite(%q) = %v, want %v", input, got, want)
		}
	}
}
