package models

import "time"

// AttemptRecord is the per-identifier failed-login counter. One row per
// identifier: created on the first failure, reset on success or once an
// expired lockout is followed by a new attempt.
type AttemptRecord struct {
	Identifier  string     `db:"identifier"`
	Count       int        `db:"count"`
	WindowStart time.Time  `db:"window_start"`
	LockUntil   *time.Time `db:"lock_until"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// ZeroAttemptRecord returns the record used when no prior attempts exist
// for an identifier, or when its stored state could not be read.
func ZeroAttemptRecord(identifier string) *AttemptRecord {
	return &AttemptRecord{Identifier: identifier}
}

// IsLocked reports whether the record carries a lockout that is still active.
func (r *AttemptRecord) IsLocked(now time.Time) bool {
	return r.LockUntil != nil && now.Before(*r.LockUntil)
}

// LockStatus is the lockout decision derived from an AttemptRecord.
type LockStatus struct {
	Locked           bool `json:"locked"`
	RemainingMinutes int  `json:"remaining_minutes"`
}
