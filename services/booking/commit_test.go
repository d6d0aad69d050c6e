package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	bookingRepo "schedly/database/repository/booking"
	eventtypeRepo "schedly/database/repository/eventtype"
	hostRepo "schedly/database/repository/host"
	"schedly/models"
	"schedly/services/availability"
	"schedly/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBusy struct {
	mu       sync.Mutex
	blocks   []models.BusyBlock
	failures []availability.AccountFailure
}

func (f *fakeBusy) FreeBusy(_ context.Context, _ availability.BusyRequest) (availability.BusyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return availability.BusyResult{Blocks: f.blocks, Failures: f.failures}, nil
}

type fixture struct {
	svc      *Service
	bookings *bookingRepo.MemoryBookingRepo
	busy     *fakeBusy
	et       *models.EventType
	host     *models.Host
	now      time.Time
	zone     *time.Location
}

func newFixture(t *testing.T, mutate func(*models.EventType)) *fixture {
	t.Helper()
	zone, err := availability.LoadZone("America/New_York")
	require.NoError(t, err)
	now := time.Date(2026, time.September, 14, 8, 0, 0, 0, zone)

	host := &models.Host{
		ID: "host-1", Email: "host@example.com", Name: "Avery",
		Timezone: "America/New_York",
	}
	et := &models.EventType{
		ID: "et-1", HostID: host.ID, Slug: "intro-call", Name: "Intro Call",
		DurationMin: 30, SlotIntervalMin: 30,
		MinimumNoticeMin: 60, SchedulingWindowDays: 14,
		LocationKind: models.LocationVideo,
		WorkingHours: []models.WorkingHours{
			{DayOfWeek: 1, Start: "09:00", End: "17:00"},
			{DayOfWeek: 2, Start: "09:00", End: "17:00"},
		},
		Active: true,
	}
	if mutate != nil {
		mutate(et)
	}

	hosts := hostRepo.NewMemoryHostRepo()
	require.NoError(t, hosts.Create(context.Background(), host))
	eventTypes := eventtypeRepo.NewMemoryEventTypeRepo()
	require.NoError(t, eventTypes.Create(context.Background(), et))
	bookings := bookingRepo.NewMemoryBookingRepo()
	busy := &fakeBusy{}

	clock := availability.FixedClock{At: now}
	engine := availability.NewEngine(eventTypes, hosts, busy, bookings, clock, zap.NewNop())
	svc := NewService(bookings, eventTypes, hosts, engine, nil, nil, nil, clock, zap.NewNop())

	return &fixture{
		svc: svc, bookings: bookings, busy: busy,
		et: et, host: host, now: now, zone: zone,
	}
}

func (f *fixture) slot(hour, minute int) time.Time {
	return time.Date(2026, time.September, 14, hour, minute, 0, 0, f.zone).UTC()
}

func (f *fixture) request(start time.Time) *CommitRequest {
	return &CommitRequest{
		EventTypeID:   "et-1",
		Start:         start,
		Guest:         models.Guest{Name: "Robin", Email: "robin@example.com"},
		GuestTimezone: "Europe/Berlin",
	}
}

func TestCommitBooksAnOpenSlot(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Commit(context.Background(), f.request(f.slot(10, 0)))
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, models.BookingStatusConfirmed, res.Booking.Status)
	assert.NotEmpty(t, res.Booking.UID)
	assert.NotEmpty(t, res.Booking.IdempotencyKey, "a key is derived when the client sends none")
	assert.Equal(t, f.slot(10, 0), res.Booking.Start)
	assert.Equal(t, f.slot(10, 30), res.Booking.End)
}

func TestCommitPendingWhenConfirmationRequired(t *testing.T) {
	f := newFixture(t, func(et *models.EventType) { et.RequiresConfirmation = true })

	res, err := f.svc.Commit(context.Background(), f.request(f.slot(10, 0)))
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, res.Booking.Status)

	// The pending booking already blocks the slot for the next guest.
	other := f.request(f.slot(10, 0))
	other.Guest.Email = "sam@example.com"
	_, err = f.svc.Commit(context.Background(), other)
	require.Error(t, err)
	assert.Equal(t, utils.CodeSlotTaken, utils.CodeOf(err))
}

func TestCommitIdempotentReplay(t *testing.T) {
	f := newFixture(t, nil)

	req := f.request(f.slot(10, 0))
	req.IdempotencyKey = "client-key-1"

	first, err := f.svc.Commit(context.Background(), req)
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := f.svc.Commit(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Booking.UID, second.Booking.UID)
	assert.Len(t, f.bookings.All(), 1)
}

func TestCommitConcurrentSameSlot(t *testing.T) {
	f := newFixture(t, nil)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		taken   int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := f.request(f.slot(11, 0))
			req.Guest.Email = string(rune('a'+i)) + "@example.com"
			res, err := f.svc.Commit(context.Background(), req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if utils.CodeOf(err) == utils.CodeSlotTaken {
					taken++
				}
				return
			}
			if res.Created {
				created++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created, "exactly one commit wins the slot")
	assert.Equal(t, n-1, taken)
}

func TestCommitRejectsBusySlot(t *testing.T) {
	f := newFixture(t, nil)
	f.busy.blocks = []models.BusyBlock{{
		Start: f.slot(10, 0), End: f.slot(11, 0), SourceCalendarID: "cal-1",
	}}

	_, err := f.svc.Commit(context.Background(), f.request(f.slot(10, 30)))
	require.Error(t, err)
	assert.Equal(t, utils.CodeSlotTaken, utils.CodeOf(err))
}

func TestCommitFailsOpenOnAccountFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.busy.failures = []availability.AccountFailure{{AccountID: "acc-1", Err: assert.AnError}}

	res, err := f.svc.Commit(context.Background(), f.request(f.slot(10, 0)))
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestCommitValidation(t *testing.T) {
	f := newFixture(t, func(et *models.EventType) {
		et.CustomQuestions = []models.CustomQuestion{
			{ID: "q1", Label: "Topic", Kind: models.QuestionSelect, Options: []string{"sales", "support"}, Required: true},
		}
	})

	req := f.request(f.slot(10, 0))
	req.Guest.Email = "not-an-email"
	_, err := f.svc.Commit(context.Background(), req)
	assert.Equal(t, utils.CodeInvalidInput, utils.CodeOf(err))

	req = f.request(f.slot(10, 0))
	_, err = f.svc.Commit(context.Background(), req)
	assert.Equal(t, utils.CodeInvalidInput, utils.CodeOf(err), "required question unanswered")

	req = f.request(f.slot(10, 0))
	req.CustomResponses = map[string]string{"q1": "gossip"}
	_, err = f.svc.Commit(context.Background(), req)
	assert.Equal(t, utils.CodeInvalidInput, utils.CodeOf(err), "answer outside offered options")

	req = f.request(f.slot(10, 0))
	req.CustomResponses = map[string]string{"q1": "sales"}
	res, err := f.svc.Commit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestCancelThenRebook(t *testing.T) {
	f := newFixture(t, nil)

	first, err := f.svc.Commit(context.Background(), f.request(f.slot(10, 0)))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), first.Booking.UID,
		Actor{GuestEmail: "robin@example.com"}, "plans changed")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, "plans changed", cancelled.CancelReason)

	// The released slot is bookable again by someone else.
	req := f.request(f.slot(10, 0))
	req.Guest.Email = "sam@example.com"
	res, err := f.svc.Commit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestCancelAuthorization(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Commit(context.Background(), f.request(f.slot(10, 0)))
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), res.Booking.UID,
		Actor{GuestEmail: "stranger@example.com"}, "")
	require.Error(t, err)
	assert.Equal(t, utils.CodeUnauthorized, utils.CodeOf(err))

	// The host may always cancel; guest email match is case-insensitive.
	_, err = f.svc.Cancel(context.Background(), res.Booking.UID,
		Actor{HostID: "host-1"}, "host conflict")
	require.NoError(t, err)

	// Cancelling again is a no-op success.
	again, err := f.svc.Cancel(context.Background(), res.Booking.UID,
		Actor{HostID: "host-1"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, again.Status)
}

func TestRescheduleMovesBookingUnderNewUID(t *testing.T) {
	f := newFixture(t, nil)

	first, err := f.svc.Commit(context.Background(), f.request(f.slot(10, 0)))
	require.NoError(t, err)

	moved, err := f.svc.Reschedule(context.Background(), first.Booking.UID,
		Actor{GuestEmail: "Robin@Example.com"}, f.slot(14, 0))
	require.NoError(t, err)

	assert.NotEqual(t, first.Booking.UID, moved.UID)
	assert.Equal(t, first.Booking.UID, moved.RescheduledFromUID)
	assert.Equal(t, f.slot(14, 0), moved.Start)

	// The old slot is free again, the new one is held.
	req := f.request(f.slot(10, 0))
	req.Guest.Email = "sam@example.com"
	_, err = f.svc.Commit(context.Background(), req)
	require.NoError(t, err)

	req = f.request(f.slot(14, 0))
	req.Guest.Email = "kim@example.com"
	_, err = f.svc.Commit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, utils.CodeSlotTaken, utils.CodeOf(err))
}

func TestRescheduleIntoOwnInterval(t *testing.T) {
	f := newFixture(t, func(et *models.EventType) {
		et.SlotIntervalMin = 15
	})

	first, err := f.svc.Commit(context.Background(), f.request(f.slot(10, 0)))
	require.NoError(t, err)

	// Shifting by one interval overlaps the booking's current 10:00-10:30
	// window; its own ledger entry must not block the move.
	moved, err := f.svc.Reschedule(context.Background(), first.Booking.UID,
		Actor{GuestEmail: "robin@example.com"}, f.slot(10, 15))
	require.NoError(t, err)
	assert.Equal(t, f.slot(10, 15), moved.Start)
	assert.Equal(t, f.slot(10, 45), moved.End)
}

func TestRescheduleFailsClosedOnAccountFailure(t *testing.T) {
	f := newFixture(t, nil)

	first, err := f.svc.Commit(context.Background(), f.request(f.slot(10, 0)))
	require.NoError(t, err)

	f.busy.mu.Lock()
	f.busy.failures = []availability.AccountFailure{{AccountID: "acc-1", Err: assert.AnError}}
	f.busy.mu.Unlock()

	_, err = f.svc.Reschedule(context.Background(), first.Booking.UID,
		Actor{GuestEmail: "robin@example.com"}, f.slot(14, 0))
	require.Error(t, err)
	assert.Equal(t, utils.CodeUpstream, utils.CodeOf(err))
}

func TestRescheduleCancelledBookingRefused(t *testing.T) {
	f := newFixture(t, nil)

	first, err := f.svc.Commit(context.Background(), f.request(f.slot(10, 0)))
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), first.Booking.UID,
		Actor{HostID: "host-1"}, "")
	require.NoError(t, err)

	_, err = f.svc.Reschedule(context.Background(), first.Booking.UID,
		Actor{HostID: "host-1"}, f.slot(14, 0))
	require.Error(t, err)
	assert.Equal(t, utils.CodeInvalidInput, utils.CodeOf(err))
}
