package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingRepo "schedly/database/repository/booking"
	"schedly/models"
	"schedly/services/availability"
	"schedly/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CommitRequest is a guest's request to book one slot.
type CommitRequest struct {
	EventTypeID     string            `json:"eventTypeId"`
	Start           time.Time         `json:"startTime"`
	Guest           models.Guest      `json:"guest"`
	GuestTimezone   string            `json:"timezone"`
	CustomResponses map[string]string `json:"customResponses,omitempty"`
	IdempotencyKey  string            `json:"idempotencyKey,omitempty"`
}

// CommitResult reports the committed booking and whether this call created
// it. Created is false on an idempotent replay.
type CommitResult struct {
	Booking *models.Booking
	Created bool
}

func (s *Service) validateCommit(req *CommitRequest, et *models.EventType) error {
	if req.Guest.Name == "" {
		return utils.NewAppError(utils.CodeInvalidInput, "guest name is required")
	}
	if req.Guest.Email == "" || !strings.Contains(req.Guest.Email, "@") {
		return utils.NewAppError(utils.CodeInvalidInput, "a valid guest email is required")
	}
	if _, err := availability.LoadZone(req.GuestTimezone); err != nil {
		return utils.WrapAppError(utils.CodeInvalidInput, "invalid guest timezone", err)
	}
	if req.Start.IsZero() {
		return utils.NewAppError(utils.CodeInvalidInput, "start time is required")
	}
	for _, q := range et.CustomQuestions {
		answer, ok := req.CustomResponses[q.ID]
		if q.Required && (!ok || answer == "") {
			return utils.NewAppError(utils.CodeInvalidInput,
				fmt.Sprintf("an answer to %q is required", q.Label))
		}
		if ok && q.Kind == models.QuestionSelect && answer != "" {
			valid := false
			for _, opt := range q.Options {
				if opt == answer {
					valid = true
					break
				}
			}
			if !valid {
				return utils.NewAppError(utils.CodeInvalidInput,
					fmt.Sprintf("answer to %q must be one of the offered options", q.Label))
			}
		}
	}
	return nil
}

// deriveIdempotencyKey builds a key for clients that did not send one. The
// receipt time is folded in so two genuinely independent submissions of the
// same slot by the same guest are not silently collapsed.
func deriveIdempotencyKey(eventTypeID string, start time.Time, guestEmail string, receivedAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s|%d",
		eventTypeID, start.UnixMilli(), strings.ToLower(guestEmail), receivedAt.UnixMilli())))
	return hex.EncodeToString(sum[:])
}

// Commit books the slot. The pre-commit availability check fails open when a
// calendar account cannot be reached; the ledger's uniqueness constraint is
// what guarantees at most one active booking per slot.
func (s *Service) Commit(ctx context.Context, req *CommitRequest) (*CommitResult, error) {
	if req.IdempotencyKey != "" {
		if prior, err := s.Bookings.FindByIdempotencyKey(ctx, req.IdempotencyKey); err == nil {
			return &CommitResult{Booking: prior, Created: false}, nil
		} else if !errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, utils.WrapAppError(utils.CodeInternal, "idempotency lookup failed", err)
		}
	}

	et, host, err := s.loadEventType(ctx, req.EventTypeID)
	if err != nil {
		return nil, err
	}
	if !et.Active {
		return nil, utils.NewAppError(utils.CodeNotFound, "event type is not active")
	}
	if err := s.validateCommit(req, et); err != nil {
		return nil, err
	}

	ok, failures, err := s.Engine.CheckSlot(ctx, et, host, req.Start)
	if err != nil {
		return nil, err
	}
	for _, f := range failures {
		s.Logger.Warn("committing despite unreachable calendar account",
			zap.String("accountId", f.AccountID), zap.Error(f.Err))
	}
	if !ok {
		return nil, utils.NewAppError(utils.CodeSlotTaken, "slot is not available")
	}

	now := s.Clock.Now().UTC()
	key := req.IdempotencyKey
	if key == "" {
		key = deriveIdempotencyKey(et.ID, req.Start, req.Guest.Email, now)
	}
	status := models.BookingStatusConfirmed
	if et.RequiresConfirmation {
		status = models.BookingStatusPending
	}
	b := &models.Booking{
		ID:              uuid.NewString(),
		UID:             uuid.NewString(),
		HostID:          et.HostID,
		EventTypeID:     et.ID,
		Start:           req.Start.UTC(),
		End:             req.Start.Add(et.Duration()).UTC(),
		Guest:           req.Guest,
		GuestTimezone:   req.GuestTimezone,
		CustomResponses: req.CustomResponses,
		IdempotencyKey:  key,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Bookings.Insert(ctx, b); err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrDuplicateSlot):
			return nil, utils.WrapAppError(utils.CodeSlotTaken, "slot was just booked", err)
		case errors.Is(err, bookingRepo.ErrDuplicateIdempotencyKey):
			// Lost a race against our own retry; the earlier write wins.
			prior, ferr := s.Bookings.FindByIdempotencyKey(ctx, key)
			if ferr != nil {
				return nil, utils.WrapAppError(utils.CodeInternal, "idempotency lookup failed", ferr)
			}
			return &CommitResult{Booking: prior, Created: false}, nil
		default:
			return nil, utils.WrapAppError(utils.CodeInternal, "booking write failed", err)
		}
	}

	s.Logger.Info("booking committed",
		zap.String("uid", b.UID),
		zap.String("hostId", b.HostID),
		zap.String("eventTypeId", b.EventTypeID),
		zap.Time("start", b.Start),
		zap.String("status", b.Status))

	s.afterCommit(ctx, et, host, b)
	return &CommitResult{Booking: b, Created: true}, nil
}

// afterCommit runs the best-effort side effects: external calendar event,
// confirmation mail, reminder. None of them can undo the committed booking.
func (s *Service) afterCommit(ctx context.Context, et *models.EventType, host *models.Host, b *models.Booking) {
	if s.Writer != nil && b.Status == models.BookingStatusConfirmed && et.DestinationCalID != "" {
		ref, err := s.Writer.CreateEvent(ctx, et, b)
		if err != nil {
			s.Logger.Warn("calendar event creation failed after commit",
				zap.String("uid", b.UID), zap.Error(err))
		} else {
			b.ExternalEventRef = ref.ID
			b.MeetingURL = ref.MeetingURL
			b.CalendarEventCreated = true
			if err := s.Bookings.SetExternalEvent(ctx, b.UID, ref.ID, ref.MeetingURL, true); err != nil {
				s.Logger.Error("failed to record external event ref",
					zap.String("uid", b.UID), zap.Error(err))
			}
		}
	}
	if s.Notifier != nil {
		s.Notifier.BookingConfirmed(ctx, et, host, b)
	}
	if s.Reminders != nil && b.Status != models.BookingStatusCancelled {
		if err := s.Reminders.ScheduleReminder(ctx, b); err != nil {
			s.Logger.Warn("failed to schedule reminder",
				zap.String("uid", b.UID), zap.Error(err))
		}
	}
}
