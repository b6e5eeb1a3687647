package models

import "time"

// DeviceTrustCapacity bounds the trust list per account. Inserting beyond
// capacity evicts the oldest entry by CreatedAt.
const DeviceTrustCapacity = 5

// DeviceTrustEntry represents a recognized device in an account's trust list.
// Trust entries let a returning device skip the two-factor step; the
// fingerprint is coarse and is never a substitute for authentication.
type DeviceTrustEntry struct {
	Token       string    `db:"token"`
	AccountID   string    `db:"account_id"`
	Fingerprint string    `db:"fingerprint"`
	CreatedAt   time.Time `db:"created_at"`
	LastUsedAt  time.Time `db:"last_used_at"`
}

// ClientContext carries the environment signals a request presents.
// UserAgent doubles as the client signature on audit entries.
type ClientContext struct {
	IPAddress  string
	UserAgent  string
	Locale     string
	ScreenSize string // "WxH", as reported by the client
	TrustToken string // trust cookie value, empty when absent
}
