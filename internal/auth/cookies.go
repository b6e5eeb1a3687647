package auth

import (
	"net/http"
	"time"
)

const (
	trustTokenCookieName = "trusted_device"
	sessionIDCookieName  = "sid"
)

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
}

// SetTrustTokenCookie stores a device trust token in an httpOnly cookie.
// The token is an opaque reference into the account's trust list; holding
// it lets the device skip the two-factor step while the entry survives.
func SetTrustTokenCookie(w http.ResponseWriter, token string, maxAge int, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     trustTokenCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	})
}

// GetTrustTokenCookie retrieves the device trust token, empty when absent.
func GetTrustTokenCookie(r *http.Request) string {
	cookie, err := r.Cookie(trustTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// ClearTrustTokenCookie clears the device trust cookie
func ClearTrustTokenCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     trustTokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	})
}

// SetSessionIDCookie assigns the browsing-session identifier that scopes the
// suspicious-activity counters. Session cookie: no MaxAge, gone when the
// browser closes.
func SetSessionIDCookie(w http.ResponseWriter, sessionID string, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionIDCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   config.Domain,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	})
}

// GetSessionIDCookie retrieves the browsing-session identifier, empty when absent.
func GetSessionIDCookie(r *http.Request) string {
	cookie, err := r.Cookie(sessionIDCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
