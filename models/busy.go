package models

import "time"

// BusyBlock is a half-open interval [Start, End) during which the host is
// not bookable. Blocks come from external calendars or from non-cancelled
// local bookings; they are never persisted.
type BusyBlock struct {
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	SourceCalendarID string    `json:"sourceCalendarId,omitempty"`
}

// LedgerSourceID marks busy blocks derived from the local booking ledger.
const LedgerSourceID = "local-ledger"

// Slot is one bookable interval offered to a guest.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Availability is the result of a listSlots call: slots grouped by local
// date in the guest timezone, keys formatted YYYY-MM-DD.
type Availability struct {
	Slots    map[string][]Slot `json:"slots"`
	Dates    []string          `json:"dates"` // grouping keys in ascending order
	Timezone string            `json:"timezone"`
}
