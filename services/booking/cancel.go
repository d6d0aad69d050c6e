package booking

import (
	"context"
	"errors"

	bookingRepo "schedly/database/repository/booking"
	"schedly/models"
	"schedly/utils"

	"go.uber.org/zap"
)

// Cancel releases the booking's slot. The local cancellation stands even if
// the external calendar event cannot be deleted. Cancelling a booking that is
// already cancelled is a no-op success.
func (s *Service) Cancel(ctx context.Context, uid string, actor Actor, reason string) (*models.Booking, error) {
	b, err := s.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !actor.mayMutate(b) {
		return nil, utils.NewAppError(utils.CodeUnauthorized, "not allowed to cancel this booking")
	}
	if !b.Active() {
		return b, nil
	}

	cancelled, err := s.Bookings.Cancel(ctx, uid, reason, s.Clock.Now().UTC())
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			// Raced with another cancel; re-read and report the settled state.
			return s.GetByUID(ctx, uid)
		}
		return nil, utils.WrapAppError(utils.CodeInternal, "cancellation write failed", err)
	}

	s.Logger.Info("booking cancelled",
		zap.String("uid", uid), zap.String("reason", reason))

	et, host, err := s.loadEventType(ctx, cancelled.EventTypeID)
	if err != nil {
		s.Logger.Warn("skipping cancel side effects, event type unavailable",
			zap.String("uid", uid), zap.Error(err))
		return cancelled, nil
	}
	if s.Writer != nil && cancelled.ExternalEventRef != "" {
		if err := s.Writer.DeleteEvent(ctx, et, cancelled.ExternalEventRef); err != nil {
			s.Logger.Warn("external event deletion failed after cancel",
				zap.String("uid", uid), zap.Error(err))
		}
	}
	if s.Notifier != nil {
		s.Notifier.BookingCancelled(ctx, et, host, cancelled)
	}
	return cancelled, nil
}
