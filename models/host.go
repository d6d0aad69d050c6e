package models

import (
	"fmt"
	"time"
)

// Host represents the owner of a booking page and its connected calendars.
type Host struct {
	ID           string    `bson:"id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Timezone     string    `bson:"timezone" json:"timezone"` // IANA zone name, e.g. "America/New_York"
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// Validate checks the host invariants.
func (h *Host) Validate() error {
	if h.Email == "" {
		return fmt.Errorf("host email is required")
	}
	if h.Timezone == "" {
		return fmt.Errorf("host timezone is required")
	}
	return nil
}
