package booking

import (
	"time"

	"schedly/models"
)

// PublicView is the guest-facing shape of a booking: no idempotency key, no
// external event plumbing.
type PublicView struct {
	UID                string       `json:"uid"`
	EventTypeID        string       `json:"eventTypeId"`
	Start              string       `json:"startTime"`
	End                string       `json:"endTime"`
	Guest              models.Guest `json:"guest"`
	GuestTimezone      string       `json:"timezone"`
	Status             string       `json:"status"`
	MeetingURL         string       `json:"meetingUrl,omitempty"`
	CancelReason       string       `json:"cancelReason,omitempty"`
	RescheduledFromUID string       `json:"rescheduledFromUid,omitempty"`
}

// Public converts a booking to its guest-facing view. Times are RFC 3339 UTC.
func Public(b *models.Booking) PublicView {
	return PublicView{
		UID:                b.UID,
		EventTypeID:        b.EventTypeID,
		Start:              b.Start.UTC().Format(time.RFC3339),
		End:                b.End.UTC().Format(time.RFC3339),
		Guest:              b.Guest,
		GuestTimezone:      b.GuestTimezone,
		Status:             b.Status,
		MeetingURL:         b.MeetingURL,
		CancelReason:       b.CancelReason,
		RescheduledFromUID: b.RescheduledFromUID,
	}
}
