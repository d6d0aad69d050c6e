package bookingRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"schedly/models"
)

// MemoryBookingRepo is an in-memory Repository used by tests. It enforces
// the same uniqueness rules as the Mongo implementation so concurrency
// behaviour can be exercised without a database.
type MemoryBookingRepo struct {
	mu       sync.Mutex
	bookings []models.Booking
}

// NewMemoryBookingRepo returns an empty in-memory booking ledger.
func NewMemoryBookingRepo() *MemoryBookingRepo {
	return &MemoryBookingRepo{}
}

func (r *MemoryBookingRepo) Insert(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if b.IdempotencyKey != "" && existing.IdempotencyKey == b.IdempotencyKey {
			return ErrDuplicateIdempotencyKey
		}
		if existing.Active() && existing.HostID == b.HostID &&
			existing.Start.Equal(b.Start) && existing.End.Equal(b.End) {
			return ErrDuplicateSlot
		}
	}
	r.bookings = append(r.bookings, *b)
	return nil
}

func (r *MemoryBookingRepo) FindByUID(_ context.Context, uid string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.bookings {
		if r.bookings[i].UID == uid {
			b := r.bookings[i]
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryBookingRepo) FindByIdempotencyKey(_ context.Context, key string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.bookings {
		if key != "" && r.bookings[i].IdempotencyKey == key {
			b := r.bookings[i]
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryBookingRepo) FindOverlapping(_ context.Context, hostID string, start, end time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.HostID == hostID && b.Active() && b.Start.Before(end) && b.End.After(start) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *MemoryBookingRepo) ListByHost(_ context.Context, hostID string, from, to time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.HostID == hostID && !b.Start.Before(from) && b.Start.Before(to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *MemoryBookingRepo) Cancel(_ context.Context, uid, reason string, at time.Time) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.bookings {
		if r.bookings[i].UID == uid && r.bookings[i].Active() {
			r.bookings[i].Status = models.BookingStatusCancelled
			r.bookings[i].CancelReason = reason
			t := at
			r.bookings[i].CancelledAt = &t
			r.bookings[i].UpdatedAt = at
			b := r.bookings[i]
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryBookingRepo) Reschedule(_ context.Context, uid, newUID string, start, end time.Time) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i := range r.bookings {
		if r.bookings[i].UID == uid && r.bookings[i].Active() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}
	for i, other := range r.bookings {
		if i == idx || !other.Active() {
			continue
		}
		if other.HostID == r.bookings[idx].HostID && other.Start.Equal(start) && other.End.Equal(end) {
			return nil, ErrDuplicateSlot
		}
	}
	r.bookings[idx].RescheduledFromUID = uid
	r.bookings[idx].UID = newUID
	r.bookings[idx].Start = start
	r.bookings[idx].End = end
	r.bookings[idx].CalendarEventCreated = false
	r.bookings[idx].UpdatedAt = time.Now().UTC()
	b := r.bookings[idx]
	return &b, nil
}

func (r *MemoryBookingRepo) SetExternalEvent(_ context.Context, uid, externalRef, meetingURL string, created bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.bookings {
		if r.bookings[i].UID == uid {
			r.bookings[i].ExternalEventRef = externalRef
			r.bookings[i].MeetingURL = meetingURL
			r.bookings[i].CalendarEventCreated = created
			return nil
		}
	}
	return ErrNotFound
}

// All returns a copy of every stored booking, for test assertions.
func (r *MemoryBookingRepo) All() []models.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Booking, len(r.bookings))
	copy(out, r.bookings)
	return out
}
