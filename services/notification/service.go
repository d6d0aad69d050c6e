package notification

import (
	"context"
	"fmt"
	"time"

	"schedly/models"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
)

// DefaultNotificationService sends booking lifecycle mail to guests and
// hosts. Every send is best effort: failures are logged, never returned to
// the commit path.
type DefaultNotificationService struct {
	mailer Mailer
	logger *zap.Logger
}

// NewDefaultNotificationService wires the mail notification service.
func NewDefaultNotificationService(mailer Mailer, logger *zap.Logger) (*DefaultNotificationService, error) {
	if mailer == nil {
		return nil, fmt.Errorf("notification service initialization error: mailer is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultNotificationService{mailer: mailer, logger: logger}, nil
}

// guestLocal renders an instant in the booking's guest timezone.
func guestLocal(b *models.Booking, t time.Time) string {
	loc, err := time.LoadLocation(b.GuestTimezone)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Mon, 2 Jan 2006 15:04 (MST)")
}

// invite builds an ICS attachment for the booking. The event uid is the
// booking uid so mail clients treat reschedules of the same chain as updates.
func invite(et *models.EventType, host *models.Host, b *models.Booking) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)

	ev := cal.AddEvent(b.UID)
	now := time.Now().UTC()
	ev.SetCreatedTime(now)
	ev.SetDtStampTime(now)
	ev.SetStartAt(b.Start.UTC())
	ev.SetEndAt(b.End.UTC())
	ev.SetSummary(fmt.Sprintf("%s with %s", et.Name, host.Name))
	if b.MeetingURL != "" {
		ev.SetDescription("Join: " + b.MeetingURL)
	}
	ev.SetOrganizer("mailto:"+host.Email, ics.WithCN(host.Name))
	ev.AddAttendee(b.Guest.Email,
		ics.CalendarUserTypeIndividual,
		ics.ParticipationStatusNeedsAction,
		ics.ParticipationRoleReqParticipant,
		ics.WithRSVP(true))

	return []byte(cal.Serialize())
}

func (s *DefaultNotificationService) send(to, subject, body string, attachment []byte) {
	if err := s.mailer.Send(to, subject, body, attachment); err != nil {
		s.logger.Warn("mail delivery failed",
			zap.String("to", to), zap.String("subject", subject), zap.Error(err))
	}
}

// BookingConfirmed mails the guest and the host about a new booking. Pending
// bookings get a "received" wording instead of a confirmation.
func (s *DefaultNotificationService) BookingConfirmed(_ context.Context, et *models.EventType, host *models.Host, b *models.Booking) {
	when := guestLocal(b, b.Start)

	if b.Status == models.BookingStatusPending {
		s.send(b.Guest.Email,
			fmt.Sprintf("Booking request received: %s", et.Name),
			fmt.Sprintf("Hi %s,\n\nYour request for %s with %s on %s was received and is awaiting confirmation.\n",
				b.Guest.Name, et.Name, host.Name, when),
			nil)
	} else {
		body := fmt.Sprintf("Hi %s,\n\nYour %s with %s is confirmed for %s.\n",
			b.Guest.Name, et.Name, host.Name, when)
		if b.MeetingURL != "" {
			body += fmt.Sprintf("\nJoin: %s\n", b.MeetingURL)
		}
		s.send(b.Guest.Email,
			fmt.Sprintf("Confirmed: %s with %s", et.Name, host.Name),
			body,
			invite(et, host, b))
	}

	s.send(host.Email,
		fmt.Sprintf("New booking: %s with %s", et.Name, b.Guest.Name),
		fmt.Sprintf("%s (%s) booked %s on %s.\nStatus: %s\n",
			b.Guest.Name, b.Guest.Email, et.Name, b.Start.UTC().Format(time.RFC3339), b.Status),
		nil)
}

// BookingCancelled mails both parties that the slot was released.
func (s *DefaultNotificationService) BookingCancelled(_ context.Context, et *models.EventType, host *models.Host, b *models.Booking) {
	when := guestLocal(b, b.Start)
	reason := b.CancelReason
	if reason == "" {
		reason = "no reason given"
	}

	s.send(b.Guest.Email,
		fmt.Sprintf("Cancelled: %s with %s", et.Name, host.Name),
		fmt.Sprintf("Hi %s,\n\nYour %s with %s on %s was cancelled (%s).\n",
			b.Guest.Name, et.Name, host.Name, when, reason),
		nil)
	s.send(host.Email,
		fmt.Sprintf("Cancelled: %s with %s", et.Name, b.Guest.Name),
		fmt.Sprintf("The booking with %s on %s was cancelled (%s).\n",
			b.Guest.Name, b.Start.UTC().Format(time.RFC3339), reason),
		nil)
}

// BookingRescheduled mails both parties the new time with a fresh invite.
func (s *DefaultNotificationService) BookingRescheduled(_ context.Context, et *models.EventType, host *models.Host, prev, next *models.Booking) {
	s.send(next.Guest.Email,
		fmt.Sprintf("Rescheduled: %s with %s", et.Name, host.Name),
		fmt.Sprintf("Hi %s,\n\nYour %s with %s moved from %s to %s.\n",
			next.Guest.Name, et.Name, host.Name, guestLocal(prev, prev.Start), guestLocal(next, next.Start)),
		invite(et, host, next))
	s.send(host.Email,
		fmt.Sprintf("Rescheduled: %s with %s", et.Name, next.Guest.Name),
		fmt.Sprintf("The booking with %s moved from %s to %s.\n",
			next.Guest.Name, prev.Start.UTC().Format(time.RFC3339), next.Start.UTC().Format(time.RFC3339)),
		nil)
}

// SendReminder mails the guest shortly before the meeting starts.
func (s *DefaultNotificationService) SendReminder(_ context.Context, et *models.EventType, host *models.Host, b *models.Booking) {
	body := fmt.Sprintf("Hi %s,\n\nReminder: your %s with %s starts at %s.\n",
		b.Guest.Name, et.Name, host.Name, guestLocal(b, b.Start))
	if b.MeetingURL != "" {
		body += fmt.Sprintf("\nJoin: %s\n", b.MeetingURL)
	}
	s.send(b.Guest.Email,
		fmt.Sprintf("Reminder: %s with %s", et.Name, host.Name),
		body,
		nil)
}
