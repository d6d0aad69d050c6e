package availability

import (
	"context"
	"testing"
	"time"

	bookingRepo "schedly/database/repository/booking"
	eventtypeRepo "schedly/database/repository/eventtype"
	hostRepo "schedly/database/repository/host"
	"schedly/models"
	"schedly/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBusy is a canned BusyFetcher.
type fakeBusy struct {
	blocks   []models.BusyBlock
	failures []AccountFailure
	err      error
	lastReq  BusyRequest
}

func (f *fakeBusy) FreeBusy(_ context.Context, req BusyRequest) (BusyResult, error) {
	f.lastReq = req
	if f.err != nil {
		return BusyResult{}, f.err
	}
	return BusyResult{Blocks: f.blocks, Failures: f.failures}, nil
}

type engineFixture struct {
	engine   *Engine
	busy     *fakeBusy
	bookings *bookingRepo.MemoryBookingRepo
	et       *models.EventType
	host     *models.Host
	now      time.Time
	zone     *time.Location
}

// newFixture pins the clock to Monday 2026-09-14 08:00 New York time with a
// 30-minute event type working 09:00-17:00 on weekdays.
func newFixture(t *testing.T, mutate func(*models.EventType)) *engineFixture {
	t.Helper()
	zone, err := LoadZone("America/New_York")
	require.NoError(t, err)

	now := time.Date(2026, time.September, 14, 8, 0, 0, 0, zone)

	host := &models.Host{
		ID:       "host-1",
		Email:    "host@example.com",
		Name:     "Avery",
		Timezone: "America/New_York",
	}
	et := &models.EventType{
		ID:                   "et-1",
		HostID:               host.ID,
		Slug:                 "intro-call",
		Name:                 "Intro Call",
		DurationMin:          30,
		SlotIntervalMin:      30,
		MinimumNoticeMin:     60,
		SchedulingWindowDays: 14,
		LocationKind:         models.LocationVideo,
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
	engine := NewEngine(eventTypes, hosts, busy, bookings, FixedClock{At: now}, zap.NewNop())

	return &engineFixture{
		engine:   engine,
		busy:     busy,
		bookings: bookings,
		et:       et,
		host:     host,
		now:      now,
		zone:     zone,
	}
}

func (f *engineFixture) localSlot(day, hour, minute int) time.Time {
	return time.Date(2026, time.September, day, hour, minute, 0, 0, f.zone)
}

func TestListSlotsWithinWorkingHours(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.engine.ListSlots(context.Background(), "et-1",
		f.now, f.now.Add(24*time.Hour), "America/New_York")
	require.NoError(t, err)

	require.Contains(t, res.Slots, "2026-09-14")
	day := res.Slots["2026-09-14"]
	require.NotEmpty(t, day)

	// Minimum notice is 60m from 08:00, so 09:00 is still the first slot.
	assert.Equal(t, f.localSlot(14, 9, 0).UTC(), day[0].Start)
	last := day[len(day)-1]
	assert.Equal(t, f.localSlot(14, 16, 30).UTC(), last.Start)
	assert.Equal(t, f.localSlot(14, 17, 0).UTC(), last.End)

	for i := 1; i < len(day); i++ {
		assert.True(t, day[i-1].Start.Before(day[i].Start), "slots must ascend")
	}
}

func TestListSlotsRespectsMinimumNotice(t *testing.T) {
	f := newFixture(t, func(et *models.EventType) {
		et.MinimumNoticeMin = 150 // 2.5h from 08:00 -> earliest start 10:30
	})

	res, err := f.engine.ListSlots(context.Background(), "et-1",
		f.now, f.now.Add(24*time.Hour), "America/New_York")
	require.NoError(t, err)

	day := res.Slots["2026-09-14"]
	require.NotEmpty(t, day)
	assert.Equal(t, f.localSlot(14, 10, 30).UTC(), day[0].Start)
}

func TestListSlotsExcludesExternalBusy(t *testing.T) {
	f := newFixture(t, nil)
	f.busy.blocks = []models.BusyBlock{{
		Start:            f.localSlot(14, 10, 0).UTC(),
		End:              f.localSlot(14, 11, 0).UTC(),
		SourceCalendarID: "cal-1",
	}}

	res, err := f.engine.ListSlots(context.Background(), "et-1",
		f.now, f.now.Add(24*time.Hour), "America/New_York")
	require.NoError(t, err)

	starts := map[time.Time]bool{}
	for _, s := range res.Slots["2026-09-14"] {
		starts[s.Start] = true
	}
	assert.False(t, starts[f.localSlot(14, 10, 0).UTC()])
	assert.False(t, starts[f.localSlot(14, 10, 30).UTC()])
	// Half-open semantics: 09:30-10:00 and 11:00-11:30 survive.
	assert.True(t, starts[f.localSlot(14, 9, 30).UTC()])
	assert.True(t, starts[f.localSlot(14, 11, 0).UTC()])
}

func TestListSlotsBuffersWidenConflicts(t *testing.T) {
	f := newFixture(t, func(et *models.EventType) {
		et.BufferBeforeMin = 15
		et.BufferAfterMin = 15
	})
	f.busy.blocks = []models.BusyBlock{{
		Start:            f.localSlot(14, 10, 0).UTC(),
		End:              f.localSlot(14, 11, 0).UTC(),
		SourceCalendarID: "cal-1",
	}}

	res, err := f.engine.ListSlots(context.Background(), "et-1",
		f.now, f.now.Add(24*time.Hour), "America/New_York")
	require.NoError(t, err)

	starts := map[time.Time]bool{}
	for _, s := range res.Slots["2026-09-14"] {
		starts[s.Start] = true
	}
	// The buffers push the adjacent slots into conflict too.
	assert.False(t, starts[f.localSlot(14, 9, 30).UTC()])
	assert.False(t, starts[f.localSlot(14, 11, 0).UTC()])
	assert.True(t, starts[f.localSlot(14, 9, 0).UTC()])
	assert.True(t, starts[f.localSlot(14, 11, 30).UTC()])
}

func TestListSlotsExcludesLedgerBookings(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.bookings.Insert(context.Background(), &models.Booking{
		ID: "b-1", UID: "uid-1", HostID: "host-1", EventTypeID: "et-1",
		Start:  f.localSlot(14, 13, 0).UTC(),
		End:    f.localSlot(14, 13, 30).UTC(),
		Status: models.BookingStatusPending,
	}))

	res, err := f.engine.ListSlots(context.Background(), "et-1",
		f.now, f.now.Add(24*time.Hour), "America/New_York")
	require.NoError(t, err)

	for _, s := range res.Slots["2026-09-14"] {
		assert.NotEqual(t, f.localSlot(14, 13, 0).UTC(), s.Start,
			"a pending booking must block its slot")
	}
}

func TestListSlotsCancelledBookingFreesSlot(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.bookings.Insert(context.Background(), &models.Booking{
		ID: "b-1", UID: "uid-1", HostID: "host-1", EventTypeID: "et-1",
		Start:  f.localSlot(14, 13, 0).UTC(),
		End:    f.localSlot(14, 13, 30).UTC(),
		Status: models.BookingStatusConfirmed,
	}))
	_, err := f.bookings.Cancel(context.Background(), "uid-1", "plans changed", f.now)
	require.NoError(t, err)

	res, err := f.engine.ListSlots(context.Background(), "et-1",
		f.now, f.now.Add(24*time.Hour), "America/New_York")
	require.NoError(t, err)

	starts := map[time.Time]bool{}
	for _, s := range res.Slots["2026-09-14"] {
		starts[s.Start] = true
	}
	assert.True(t, starts[f.localSlot(14, 13, 0).UTC()])
}

func TestListSlotsFailsOpenOnProviderError(t *testing.T) {
	f := newFixture(t, nil)
	f.busy.err = assert.AnError

	res, err := f.engine.ListSlots(context.Background(), "et-1",
		f.now, f.now.Add(24*time.Hour), "America/New_York")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Slots["2026-09-14"])
}

func TestListSlotsGroupsByGuestLocalDate(t *testing.T) {
	f := newFixture(t, nil)

	// Tokyo is 13h ahead of New York: afternoon slots land on the next day.
	res, err := f.engine.ListSlots(context.Background(), "et-1",
		f.now, f.now.Add(24*time.Hour), "Asia/Tokyo")
	require.NoError(t, err)

	require.Contains(t, res.Slots, "2026-09-14")
	require.Contains(t, res.Slots, "2026-09-15")
	assert.Equal(t, []string{"2026-09-14", "2026-09-15"}, res.Dates)
	// The 11:00 New York slot is already 15 Sep in Tokyo.
	found := false
	for _, s := range res.Slots["2026-09-15"] {
		if s.Start.Equal(f.localSlot(14, 11, 0).UTC()) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestListSlotsInactiveEventType(t *testing.T) {
	f := newFixture(t, func(et *models.EventType) { et.Active = false })

	_, err := f.engine.ListSlots(context.Background(), "et-1",
		f.now, f.now.Add(24*time.Hour), "UTC")
	require.Error(t, err)
	assert.Equal(t, utils.CodeNotFound, utils.CodeOf(err))
}

func TestCheckSlotAlignment(t *testing.T) {
	f := newFixture(t, nil)

	ok, _, err := f.engine.CheckSlot(context.Background(), f.et, f.host,
		f.localSlot(14, 10, 0).UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	// 10:15 is not on the 30-minute grid.
	ok, _, err = f.engine.CheckSlot(context.Background(), f.et, f.host,
		f.localSlot(14, 10, 15).UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	// 08:30 is inside notice; 17:00 is outside working hours.
	ok, _, err = f.engine.CheckSlot(context.Background(), f.et, f.host,
		f.localSlot(14, 8, 30).UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _, err = f.engine.CheckSlot(context.Background(), f.et, f.host,
		f.localSlot(14, 17, 0).UTC())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckSlotReportsAccountFailures(t *testing.T) {
	f := newFixture(t, nil)
	f.busy.failures = []AccountFailure{{AccountID: "acc-1", Err: assert.AnError}}

	ok, failures, err := f.engine.CheckSlot(context.Background(), f.et, f.host,
		f.localSlot(14, 10, 0).UTC())
	require.NoError(t, err)
	assert.True(t, ok, "the check itself fails open")
	require.Len(t, failures, 1)
	assert.Equal(t, "acc-1", failures[0].AccountID)
}

func TestListedSlotsAreBookable(t *testing.T) {
	f := newFixture(t, func(et *models.EventType) {
		et.BufferBeforeMin = 15
	})
	f.busy.blocks = []models.BusyBlock{{
		Start:            f.localSlot(14, 10, 0).UTC(),
		End:              f.localSlot(14, 11, 0).UTC(),
		SourceCalendarID: "cal-1",
	}}
	require.NoError(t, f.bookings.Insert(context.Background(), &models.Booking{
		ID: "b-1", UID: "uid-1", HostID: "host-1", EventTypeID: "et-1",
		Start:  f.localSlot(15, 13, 0).UTC(),
		End:    f.localSlot(15, 13, 30).UTC(),
		Status: models.BookingStatusConfirmed,
	}))

	res, err := f.engine.ListSlots(context.Background(), "et-1",
		f.now, f.now.Add(48*time.Hour), "America/New_York")
	require.NoError(t, err)
	require.NotEmpty(t, res.Dates)

	// Every offered slot passes the single-slot check against the same
	// frozen clock and busy snapshot.
	for _, date := range res.Dates {
		for _, s := range res.Slots[date] {
			ok, _, err := f.engine.CheckSlot(context.Background(), f.et, f.host, s.Start)
			require.NoError(t, err)
			assert.True(t, ok, "listed slot %s must be bookable", s.Start)
		}
	}
}

func TestListSlotsOffersWindowEdgeStart(t *testing.T) {
	f := newFixture(t, nil)

	// Range ends exactly at the 16:30 start: the slot runs past the edge
	// but its start is inside, so it is still offered.
	edge := f.localSlot(14, 16, 30).UTC()
	res, err := f.engine.ListSlots(context.Background(), "et-1",
		f.now, edge, "America/New_York")
	require.NoError(t, err)

	day := res.Slots["2026-09-14"]
	require.NotEmpty(t, day)
	assert.Equal(t, edge, day[len(day)-1].Start)
}

func TestCheckSlotExcludingOwnBooking(t *testing.T) {
	f := newFixture(t, func(et *models.EventType) {
		et.SlotIntervalMin = 15
	})
	require.NoError(t, f.bookings.Insert(context.Background(), &models.Booking{
		ID: "b-1", UID: "uid-1", HostID: "host-1", EventTypeID: "et-1",
		Start:  f.localSlot(14, 10, 0).UTC(),
		End:    f.localSlot(14, 10, 30).UTC(),
		Status: models.BookingStatusConfirmed,
	}))

	// 10:15 overlaps the existing booking.
	ok, _, err := f.engine.CheckSlot(context.Background(), f.et, f.host,
		f.localSlot(14, 10, 15).UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	// Excluding that booking's own uid frees the overlap.
	ok, _, err = f.engine.CheckSlotExcluding(context.Background(), f.et, f.host,
		f.localSlot(14, 10, 15).UTC(), "uid-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSnapshotRequestsBufferedWindow(t *testing.T) {
	f := newFixture(t, func(et *models.EventType) {
		et.BufferBeforeMin = 15
		et.BufferAfterMin = 30
		et.ParticipatingCalIDs = []string{"cal-1"}
		et.IncludeTentative = true
		et.BlockAllDayEvents = true
	})

	start := f.localSlot(14, 10, 0).UTC()
	_, _, err := f.engine.CheckSlot(context.Background(), f.et, f.host, start)
	require.NoError(t, err)

	req := f.busy.lastReq
	assert.Equal(t, start.Add(-15*time.Minute), req.TimeMin)
	assert.Equal(t, start.Add(30*time.Minute).Add(30*time.Minute), req.TimeMax)
	assert.Equal(t, []string{"cal-1"}, req.CalendarIDs)
	assert.True(t, req.IncludeTentative)
	assert.True(t, req.ExpandAllDay)
}
