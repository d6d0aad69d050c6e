package models

import "time"

// ConnectedAccount is an external calendar account linked to a host via OAuth.
// Tokens are stored encrypted; the ciphertext is opaque to everything except
// the token vault.
type ConnectedAccount struct {
	ID               string    `bson:"id" json:"id"`
	HostID           string    `bson:"host_id" json:"host_id"`
	Provider         string    `bson:"provider" json:"provider"` // e.g. "google"
	ExternalIdentity string    `bson:"external_identity" json:"external_identity"`
	AccessTokenEnc   []byte    `bson:"access_token_enc" json:"-"`
	RefreshTokenEnc  []byte    `bson:"refresh_token_enc" json:"-"`
	TokenExpiry      time.Time `bson:"token_expiry" json:"-"`
	Scopes           []string  `bson:"scopes" json:"scopes"`
	Valid            bool      `bson:"valid" json:"valid"`
	LastSyncAt       time.Time `bson:"last_sync_at" json:"last_sync_at"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
}

// Calendar is a single calendar under a connected account. Selection for
// busy-composition is host controlled and independent of the provider's list.
type Calendar struct {
	ID                 string `bson:"id" json:"id"`
	AccountID          string `bson:"account_id" json:"account_id"`
	HostID             string `bson:"host_id" json:"host_id"`
	ExternalCalendarID string `bson:"external_calendar_id" json:"external_calendar_id"`
	Summary            string `bson:"summary" json:"summary"`
	Writable           bool   `bson:"writable" json:"writable"`
	SelectedForBusy    bool   `bson:"selected_for_busy" json:"selected_for_busy"`
}

// DestinationEligible reports whether booked events may be written to this
// calendar.
func (c *Calendar) DestinationEligible() bool {
	return c.Writable
}
