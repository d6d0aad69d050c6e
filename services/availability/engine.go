package availability

import (
	"context"
	"sync"
	"time"

	"schedly/models"
	"schedly/utils"

	"go.uber.org/zap"
)

// AccountFailure records a per-account busy fetch that did not complete.
// Availability fails open on these; the commit path re-validates.
type AccountFailure struct {
	AccountID string
	Err       error
}

// BusyRequest asks for the merged busy view of a set of calendars.
type BusyRequest struct {
	HostID           string
	CalendarIDs      []string
	TimeMin          time.Time
	TimeMax          time.Time
	IncludeTentative bool
	ExpandAllDay     bool
	HostZone         *time.Location
}

// BusyResult carries the fetched blocks and any per-account failures.
type BusyResult struct {
	Blocks   []models.BusyBlock
	Failures []AccountFailure
}

// BusyFetcher fetches external busy blocks. Implemented by the calendar
// provider; faked in tests.
type BusyFetcher interface {
	FreeBusy(ctx context.Context, req BusyRequest) (BusyResult, error)
}

// Ledger is the narrow view of the booking store the engine needs: all
// non-cancelled bookings overlapping a window.
type Ledger interface {
	FindOverlapping(ctx context.Context, hostID string, start, end time.Time) ([]models.Booking, error)
}

// EventTypeSource loads event-type configuration.
type EventTypeSource interface {
	GetByID(ctx context.Context, id string) (*models.EventType, error)
}

// HostSource loads hosts.
type HostSource interface {
	GetHostByID(ctx context.Context, id string) (*models.Host, error)
}

// Engine composes working hours, buffers, notice and window constraints,
// external busy blocks and the local ledger into bookable slots.
type Engine struct {
	EventTypes EventTypeSource
	Hosts      HostSource
	Busy       BusyFetcher
	Ledger     Ledger
	Clock      Clock
	Logger     *zap.Logger
}

// NewEngine wires an availability engine.
func NewEngine(ets EventTypeSource, hosts HostSource, busy BusyFetcher, ledger Ledger, clock Clock, logger *zap.Logger) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{EventTypes: ets, Hosts: hosts, Busy: busy, Ledger: ledger, Clock: clock, Logger: logger}
}

func (e *Engine) loadEventType(ctx context.Context, eventTypeID string) (*models.EventType, *models.Host, error) {
	et, err := e.EventTypes.GetByID(ctx, eventTypeID)
	if err != nil || et == nil {
		return nil, nil, utils.NewAppError(utils.CodeNotFound, "event type not found")
	}
	if !et.Active {
		return nil, nil, utils.NewAppError(utils.CodeNotFound, "event type is not active")
	}
	host, err := e.Hosts.GetHostByID(ctx, et.HostID)
	if err != nil || host == nil {
		return nil, nil, utils.WrapAppError(utils.CodeInternal, "host not found for event type", err)
	}
	return et, host, nil
}

// effectiveWindow intersects the requested range with
// [now+minimumNotice, now+schedulingWindow].
func (e *Engine) effectiveWindow(et *models.EventType, rangeStart, rangeEnd time.Time) (time.Time, time.Time) {
	now := e.Clock.Now()
	start := rangeStart
	if earliest := now.Add(et.MinimumNotice()); earliest.After(start) {
		start = earliest
	}
	end := rangeEnd
	if latest := now.Add(et.SchedulingWindow()); latest.Before(end) {
		end = latest
	}
	return start, end
}

// snapshot fetches external busy blocks and ledger bookings in parallel and
// merges them into one canonical busy set. The two sources are read as one
// snapshot; the pre-commit check re-validates against fresh data.
func (e *Engine) snapshot(ctx context.Context, et *models.EventType, hostZone *time.Location, timeMin, timeMax time.Time, excludeUID string) ([]models.BusyBlock, []AccountFailure) {
	// Busy data must cover buffer expansion around the window edges.
	fetchMin := timeMin.Add(-et.BufferBefore())
	fetchMax := timeMax.Add(et.BufferAfter())

	var (
		wg        sync.WaitGroup
		external  BusyResult
		local     []models.Booking
		ledgerErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res, err := e.Busy.FreeBusy(ctx, BusyRequest{
			HostID:           et.HostID,
			CalendarIDs:      et.ParticipatingCalIDs,
			TimeMin:          fetchMin,
			TimeMax:          fetchMax,
			IncludeTentative: et.IncludeTentative,
			ExpandAllDay:     et.BlockAllDayEvents,
			HostZone:         hostZone,
		})
		if err != nil {
			// Treat a total provider failure like an all-accounts failure:
			// fail open, the uniqueness constraint still protects commits.
			e.Logger.Warn("busy provider unavailable", zap.Error(err))
			return
		}
		external = res
	}()
	go func() {
		defer wg.Done()
		local, ledgerErr = e.Ledger.FindOverlapping(ctx, et.HostID, fetchMin, fetchMax)
	}()
	wg.Wait()

	if ledgerErr != nil {
		e.Logger.Error("ledger overlap query failed", zap.Error(ledgerErr))
	}
	for _, f := range external.Failures {
		e.Logger.Warn("busy fetch failed for account",
			zap.String("accountId", f.AccountID), zap.Error(f.Err))
	}

	blocks := append([]models.BusyBlock{}, external.Blocks...)
	for _, b := range local {
		if excludeUID != "" && b.UID == excludeUID {
			continue
		}
		blocks = append(blocks, models.BusyBlock{
			Start:            b.Start,
			End:              b.End,
			SourceCalendarID: models.LedgerSourceID,
		})
	}
	return Merge(blocks), external.Failures
}

// ListSlots returns the bookable slots for an event type within the
// requested range, grouped by local date in the guest timezone. Ordering is
// ascending by start and stable under a frozen clock.
func (e *Engine) ListSlots(ctx context.Context, eventTypeID string, rangeStart, rangeEnd time.Time, guestTimezone string) (*models.Availability, error) {
	et, host, err := e.loadEventType(ctx, eventTypeID)
	if err != nil {
		return nil, err
	}
	hostZone, err := LoadZone(host.Timezone)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "host timezone is invalid", err)
	}
	guestZone, err := LoadZone(guestTimezone)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInvalidInput, "invalid timezone", err)
	}

	result := &models.Availability{
		Slots:    map[string][]models.Slot{},
		Timezone: guestTimezone,
	}

	effStart, effEnd := e.effectiveWindow(et, rangeStart, rangeEnd)
	if !effStart.Before(effEnd) {
		return result, nil
	}

	duration := et.Duration()
	interval := time.Duration(et.SlotIntervalMin) * time.Minute

	// A slot may start at the window edge and run past it, so busy data has
	// to cover one duration beyond the effective end.
	busy, _ := e.snapshot(ctx, et, hostZone, effStart, effEnd.Add(duration), "")

	// Walk each local day in the host timezone across the effective window.
	y, m, d := effStart.In(hostZone).Date()
	for {
		dayNoon := time.Date(y, m, d, 12, 0, 0, 0, hostZone)
		if LocalMidnight(y, m, d, hostZone).After(effEnd) {
			break
		}
		hours := et.HoursForDay(dayNoon.Weekday())
		for _, slot := range EnumerateDay(y, m, d, hours, duration, interval, hostZone) {
			// Only starts are constrained by the window; a slot is offered
			// even when its end runs past the effective edge.
			if slot.Start.Before(effStart) || slot.Start.After(effEnd) {
				continue
			}
			if Overlaps(slot.Start, slot.End, busy, et.BufferBefore(), et.BufferAfter()) {
				continue
			}
			key := slot.Start.In(guestZone).Format("2006-01-02")
			if _, seen := result.Slots[key]; !seen {
				result.Dates = append(result.Dates, key)
			}
			result.Slots[key] = append(result.Slots[key], models.Slot{
				Start: slot.Start.UTC(),
				End:   slot.End.UTC(),
			})
		}
		y, m, d = dayNoon.AddDate(0, 0, 1).Date()
	}
	return result, nil
}

// IsSlotBookable recomputes, for a single instant, everything a commit
// depends on: working-hours containment and alignment, minimum notice,
// scheduling window, collision against freshly fetched busy blocks and
// non-cancelled local bookings.
func (e *Engine) IsSlotBookable(ctx context.Context, eventTypeID string, start time.Time) (bool, error) {
	et, host, err := e.loadEventType(ctx, eventTypeID)
	if err != nil {
		return false, err
	}
	ok, _, err := e.CheckSlot(ctx, et, host, start)
	return ok, err
}

// CheckSlot is IsSlotBookable for an already loaded event type. It also
// reports per-account busy fetch failures so callers can choose their own
// policy: commit fails open, reschedule fails closed.
func (e *Engine) CheckSlot(ctx context.Context, et *models.EventType, host *models.Host, start time.Time) (bool, []AccountFailure, error) {
	return e.CheckSlotExcluding(ctx, et, host, start, "")
}

// CheckSlotExcluding is CheckSlot with one ledger booking left out of the
// busy set. A reschedule passes the booking's own uid here so moving into a
// time that overlaps its current interval is not self-blocked.
func (e *Engine) CheckSlotExcluding(ctx context.Context, et *models.EventType, host *models.Host, start time.Time, excludeUID string) (bool, []AccountFailure, error) {
	hostZone, err := LoadZone(host.Timezone)
	if err != nil {
		return false, nil, utils.WrapAppError(utils.CodeInternal, "host timezone is invalid", err)
	}
	now := e.Clock.Now()
	if start.Before(now.Add(et.MinimumNotice())) {
		return false, nil, nil
	}
	if start.After(now.Add(et.SchedulingWindow())) {
		return false, nil, nil
	}

	end := start.Add(et.Duration())

	// Containment and alignment: the instant must be one of the slots the
	// working-hours rule would enumerate for its local day.
	local := start.In(hostZone)
	y, m, d := local.Date()
	hours := et.HoursForDay(local.Weekday())
	interval := time.Duration(et.SlotIntervalMin) * time.Minute
	aligned := false
	for _, slot := range EnumerateDay(y, m, d, hours, et.Duration(), interval, hostZone) {
		if slot.Start.Equal(start) {
			aligned = true
			break
		}
	}
	if !aligned {
		return false, nil, nil
	}

	busy, failures := e.snapshot(ctx, et, hostZone, start, end, excludeUID)
	if Overlaps(start, end, busy, et.BufferBefore(), et.BufferAfter()) {
		return false, failures, nil
	}
	return true, failures, nil
}
