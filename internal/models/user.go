package models

import (
	"time"
)

type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	Name                string
	Role                string // "user", "admin"
	Status              string // "active", "suspended", "disabled"
	PreferredLanguage   string // BCP 47 tag, defaults to "fr"
	TwoFactorEnabled    bool
	TwoFactorEnrolledAt *time.Time
	PasswordChangedAt   *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
