package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Event types recorded by the security gate
const (
	EventTypeLoginSuccess       = "login_success"
	EventTypeLoginFailed        = "login_failed"
	EventTypeAccountLocked      = "account_locked"
	EventTypeLockoutBlocked     = "lockout_blocked"
	EventTypeTwoFactorVerified  = "two_factor_verified"
	EventTypeTwoFactorFailed    = "two_factor_failed"
	EventTypeTwoFactorCancelled = "two_factor_cancelled"
	EventTypeDeviceTrusted      = "device_trusted"
	EventTypeDeviceRevoked      = "device_revoked"
	EventTypeSuspiciousActivity = "suspicious_activity"
	EventTypeCorruptedState     = "corrupted_attempt_state"
	EventTypeContactRequest     = "contact_request"
	EventTypeAccountUnlocked    = "account_unlocked"
)

// SecurityEvent is one append-only audit entry: what happened, to which
// identifier, when, and under which client signature (user-agent).
type SecurityEvent struct {
	ID              string        `db:"id"`
	EventType       string        `db:"event_type"`
	Identifier      string        `db:"identifier"`
	ClientSignature string        `db:"client_signature"`
	IPAddress       *string       `db:"ip_address"`
	Metadata        EventMetadata `db:"metadata"`
	CreatedAt       time.Time     `db:"created_at"`
}

// EventMetadata holds additional context for security events
type EventMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (em *EventMetadata) Scan(value interface{}) error {
	if value == nil {
		*em = make(EventMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*em = EventMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (em EventMetadata) Value() (driver.Value, error) {
	if em == nil {
		return nil, nil
	}
	return json.Marshal(em)
}
