package calendar

import (
	"context"
	"fmt"

	accountRepo "schedly/database/repository/account"
	"schedly/models"
	"schedly/utils"

	"go.uber.org/zap"
)

// EventWriter mirrors confirmed bookings onto the host's destination
// calendar.
type EventWriter interface {
	CreateEvent(ctx context.Context, et *models.EventType, booking *models.Booking) (*EventRef, error)
	UpdateEvent(ctx context.Context, et *models.EventType, booking *models.Booking) error
	DeleteEvent(ctx context.Context, et *models.EventType, externalEventRef string) error
}

// DefaultEventWriter writes events through the calendar API client using the
// event type's destination calendar.
type DefaultEventWriter struct {
	Accounts accountRepo.Repository
	Tokens   *TokenManager
	Client   *Client
	Logger   *zap.Logger
}

// NewEventWriter wires an event writer.
func NewEventWriter(accounts accountRepo.Repository, tokens *TokenManager, client *Client, logger *zap.Logger) *DefaultEventWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultEventWriter{Accounts: accounts, Tokens: tokens, Client: client, Logger: logger}
}

// destination resolves the event type's destination calendar to an external
// calendar id, the owning account and a usable access token.
func (w *DefaultEventWriter) destination(ctx context.Context, et *models.EventType) (externalCalID, accountID, token string, err error) {
	if et.DestinationCalID == "" {
		return "", "", "", utils.NewAppError(utils.CodeUpstream, "event type has no destination calendar")
	}
	cal, err := w.Accounts.GetCalendar(ctx, et.DestinationCalID)
	if err != nil {
		return "", "", "", fmt.Errorf("error loading destination calendar %s: %w", et.DestinationCalID, err)
	}
	if !cal.Writable {
		return "", "", "", utils.NewAppError(utils.CodeUpstream, "destination calendar is not writable")
	}
	account, err := w.Accounts.GetAccount(ctx, cal.AccountID)
	if err != nil {
		return "", "", "", fmt.Errorf("error loading account %s: %w", cal.AccountID, err)
	}
	tok, err := w.Tokens.AccessToken(ctx, account)
	if err != nil {
		return "", "", "", err
	}
	return cal.ExternalCalendarID, account.ID, tok, nil
}

func eventInputFor(et *models.EventType, booking *models.Booking) EventInput {
	return EventInput{
		Summary:            fmt.Sprintf("%s with %s", et.Name, booking.Guest.Name),
		Description:        booking.Guest.Notes,
		Start:              booking.Start,
		End:                booking.End,
		GuestEmail:         booking.Guest.Email,
		GuestName:          booking.Guest.Name,
		RequestMeetingLink: et.LocationKind == models.LocationVideo,
	}
}

// CreateEvent writes the booking to the destination calendar and returns the
// external event reference.
func (w *DefaultEventWriter) CreateEvent(ctx context.Context, et *models.EventType, booking *models.Booking) (*EventRef, error) {
	calID, accountID, token, err := w.destination(ctx, et)
	if err != nil {
		return nil, err
	}
	ref, err := w.Client.CreateEvent(ctx, accountID, token, calID, eventInputFor(et, booking))
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeUpstream, "calendar event creation failed", err)
	}
	w.Logger.Info("created calendar event",
		zap.String("bookingUid", booking.UID), zap.String("eventId", ref.ID))
	return ref, nil
}

// UpdateEvent rewrites the external event after a reschedule.
func (w *DefaultEventWriter) UpdateEvent(ctx context.Context, et *models.EventType, booking *models.Booking) error {
	if booking.ExternalEventRef == "" {
		return nil
	}
	calID, accountID, token, err := w.destination(ctx, et)
	if err != nil {
		return err
	}
	if err := w.Client.UpdateEvent(ctx, accountID, token, calID, booking.ExternalEventRef, eventInputFor(et, booking)); err != nil {
		return utils.WrapAppError(utils.CodeUpstream, "calendar event update failed", err)
	}
	return nil
}

// DeleteEvent removes the external event after a cancellation.
func (w *DefaultEventWriter) DeleteEvent(ctx context.Context, et *models.EventType, externalEventRef string) error {
	if externalEventRef == "" {
		return nil
	}
	calID, accountID, token, err := w.destination(ctx, et)
	if err != nil {
		return err
	}
	if err := w.Client.DeleteEvent(ctx, accountID, token, calID, externalEventRef); err != nil {
		return utils.WrapAppError(utils.CodeUpstream, "calendar event deletion failed", err)
	}
	return nil
}
