package models

import "time"

// Booking status values. A cancelled booking no longer occupies its slot.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// ActiveBookingStatuses are the statuses that count toward the slot
// uniqueness constraint. PENDING blocks the slot, same as CONFIRMED.
var ActiveBookingStatuses = []string{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusCompleted,
}

// Guest is the person booking a meeting. Identity for cancellation is the
// email address.
type Guest struct {
	Name    string `bson:"name" json:"name"`
	Email   string `bson:"email" json:"email"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Company string `bson:"company,omitempty" json:"company,omitempty"`
	Notes   string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Booking is a durable reservation of one slot with one guest.
type Booking struct {
	ID                   string            `bson:"id" json:"id"`
	UID                  string            `bson:"uid" json:"uid"`
	HostID               string            `bson:"host_id" json:"host_id"`
	EventTypeID          string            `bson:"event_type_id" json:"event_type_id"`
	Start                time.Time         `bson:"start" json:"start"`
	End                  time.Time         `bson:"end" json:"end"`
	Guest                Guest             `bson:"guest" json:"guest"`
	GuestTimezone        string            `bson:"guest_timezone" json:"guest_timezone"`
	CustomResponses      map[string]string `bson:"custom_responses,omitempty" json:"custom_responses,omitempty"`
	IdempotencyKey       string            `bson:"idempotency_key,omitempty" json:"-"`
	Status               string            `bson:"status" json:"status"`
	ExternalEventRef     string            `bson:"external_event_ref,omitempty" json:"external_event_ref,omitempty"`
	MeetingURL           string            `bson:"meeting_url,omitempty" json:"meeting_url,omitempty"`
	CalendarEventCreated bool              `bson:"calendar_event_created" json:"calendar_event_created"`
	CancelReason         string            `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
	CancelledAt          *time.Time        `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	RescheduledFromUID   string            `bson:"rescheduled_from_uid,omitempty" json:"rescheduled_from_uid,omitempty"`
	CreatedAt            time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time         `bson:"updated_at" json:"updated_at"`
}

// Active reports whether the booking still occupies its slot.
func (b *Booking) Active() bool {
	return b.Status != BookingStatusCancelled
}
