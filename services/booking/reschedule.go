package booking

import (
	"context"
	"errors"
	"time"

	bookingRepo "schedly/database/repository/booking"
	"schedly/models"
	"schedly/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reschedule moves a booking to a new slot under a new uid. Unlike commit,
// reschedule fails closed: if any calendar account cannot be reached during
// the availability check, the move is refused rather than risking a conflict
// the guest never asked for.
func (s *Service) Reschedule(ctx context.Context, uid string, actor Actor, newStart time.Time) (*models.Booking, error) {
	b, err := s.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !actor.mayMutate(b) {
		return nil, utils.NewAppError(utils.CodeUnauthorized, "not allowed to reschedule this booking")
	}
	if !b.Active() {
		return nil, utils.NewAppError(utils.CodeInvalidInput, "cancelled bookings cannot be rescheduled")
	}

	et, host, err := s.loadEventType(ctx, b.EventTypeID)
	if err != nil {
		return nil, err
	}

	// The booking's own interval must not count as busy for its own move.
	ok, failures, err := s.Engine.CheckSlotExcluding(ctx, et, host, newStart, b.UID)
	if err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return nil, utils.WrapAppError(utils.CodeUpstream,
			"calendar account unreachable, try again later", failures[0].Err)
	}
	if !ok {
		return nil, utils.NewAppError(utils.CodeSlotTaken, "slot is not available")
	}

	newUID := uuid.NewString()
	moved, err := s.Bookings.Reschedule(ctx, uid, newUID, newStart.UTC(), newStart.Add(et.Duration()).UTC())
	if err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrDuplicateSlot):
			return nil, utils.WrapAppError(utils.CodeSlotTaken, "slot was just booked", err)
		case errors.Is(err, bookingRepo.ErrNotFound):
			return nil, utils.NewAppError(utils.CodeNotFound, "booking not found")
		default:
			return nil, utils.WrapAppError(utils.CodeInternal, "reschedule write failed", err)
		}
	}

	s.Logger.Info("booking rescheduled",
		zap.String("fromUid", uid),
		zap.String("uid", moved.UID),
		zap.Time("start", moved.Start))

	if s.Writer != nil && b.ExternalEventRef != "" {
		moved.ExternalEventRef = b.ExternalEventRef
		moved.MeetingURL = b.MeetingURL
		if err := s.Writer.UpdateEvent(ctx, et, moved); err != nil {
			s.Logger.Warn("external event update failed after reschedule",
				zap.String("uid", moved.UID), zap.Error(err))
		} else {
			moved.CalendarEventCreated = true
			if err := s.Bookings.SetExternalEvent(ctx, moved.UID, moved.ExternalEventRef, moved.MeetingURL, true); err != nil {
				s.Logger.Error("failed to record external event ref",
					zap.String("uid", moved.UID), zap.Error(err))
			}
		}
	}
	if s.Notifier != nil {
		s.Notifier.BookingRescheduled(ctx, et, host, b, moved)
	}
	if s.Reminders != nil {
		if err := s.Reminders.ScheduleReminder(ctx, moved); err != nil {
			s.Logger.Warn("failed to schedule reminder",
				zap.String("uid", moved.UID), zap.Error(err))
		}
	}
	return moved, nil
}
