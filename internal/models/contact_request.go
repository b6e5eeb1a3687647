package models

import "time"

// Contact request statuses
const (
	ContactRequestPending  = "pending"
	ContactRequestResolved = "resolved"
)

// ContactRequest is the escape hatch offered to a locked-out user: a
// timestamped, pending-status note persisted for operator follow-up.
type ContactRequest struct {
	ID         string     `db:"id"`
	Identifier string     `db:"identifier"`
	Message    string     `db:"message"`
	Status     string     `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
}
