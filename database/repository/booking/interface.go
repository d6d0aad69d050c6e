package bookingRepo

import (
	"context"
	"errors"
	"time"

	"schedly/models"
)

// Sentinel errors surfaced by every implementation so the commit path can
// tell slot contention apart from an idempotent replay racing itself.
var (
	// ErrNotFound means no booking matched.
	ErrNotFound = errors.New("booking not found")
	// ErrDuplicateSlot means the (host, start, end) uniqueness gate rejected
	// the write: another non-cancelled booking holds the slot.
	ErrDuplicateSlot = errors.New("slot already booked")
	// ErrDuplicateIdempotencyKey means a booking with the same idempotency
	// key already exists.
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
)

// Repository is the booking ledger. The uniqueness constraint over
// (host, start, end) for non-cancelled bookings is the source of truth for
// at-most-one confirmed booking per slot.
type Repository interface {
	// Insert stores a new booking. It returns ErrDuplicateSlot or
	// ErrDuplicateIdempotencyKey when a uniqueness constraint rejects it.
	Insert(ctx context.Context, b *models.Booking) error
	// FindByUID returns the booking with the given public uid.
	FindByUID(ctx context.Context, uid string) (*models.Booking, error)
	// FindByIdempotencyKey returns the booking stored under the key, or
	// ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error)
	// FindOverlapping returns non-cancelled bookings whose [start, end)
	// interval intersects the given half-open window.
	FindOverlapping(ctx context.Context, hostID string, start, end time.Time) ([]models.Booking, error)
	// ListByHost returns the host's bookings starting inside [from, to),
	// ascending by start.
	ListByHost(ctx context.Context, hostID string, from, to time.Time) ([]models.Booking, error)
	// Cancel transitions a non-cancelled booking to cancelled and returns
	// the updated record.
	Cancel(ctx context.Context, uid, reason string, at time.Time) (*models.Booking, error)
	// Reschedule atomically moves a booking to a new interval under a new
	// uid, keeping a back-reference to the prior uid. The uniqueness gate
	// applies to the new interval.
	Reschedule(ctx context.Context, uid, newUID string, start, end time.Time) (*models.Booking, error)
	// SetExternalEvent records the outcome of post-commit calendar event
	// creation.
	SetExternalEvent(ctx context.Context, uid, externalRef, meetingURL string, created bool) error
}
