package booking

import (
	"context"
	"strings"
	"time"

	bookingRepo "schedly/database/repository/booking"
	eventtypeRepo "schedly/database/repository/eventtype"
	hostRepo "schedly/database/repository/host"
	"schedly/models"
	"schedly/services/availability"
	"schedly/services/calendar"
	"schedly/utils"

	"go.uber.org/zap"
)

// Notifier sends booking lifecycle mail. All calls are best effort and run
// after the ledger write has committed.
type Notifier interface {
	BookingConfirmed(ctx context.Context, et *models.EventType, host *models.Host, b *models.Booking)
	BookingCancelled(ctx context.Context, et *models.EventType, host *models.Host, b *models.Booking)
	BookingRescheduled(ctx context.Context, et *models.EventType, host *models.Host, prev, next *models.Booking)
}

// ReminderScheduler queues a reminder to be delivered before the meeting.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, b *models.Booking) error
}

// Service is the booking commit path. Correctness under concurrency rests on
// the ledger's uniqueness constraint, not on the pre-commit check.
type Service struct {
	Bookings   bookingRepo.Repository
	EventTypes eventtypeRepo.Repository
	Hosts      hostRepo.Repository
	Engine     *availability.Engine
	Writer     calendar.EventWriter
	Notifier   Notifier
	Reminders  ReminderScheduler
	Clock      availability.Clock
	Logger     *zap.Logger
}

// NewService wires the booking service. Writer, Notifier and Reminders may be
// nil; the corresponding post-commit steps are skipped.
func NewService(
	bookings bookingRepo.Repository,
	eventTypes eventtypeRepo.Repository,
	hosts hostRepo.Repository,
	engine *availability.Engine,
	writer calendar.EventWriter,
	notifier Notifier,
	reminders ReminderScheduler,
	clock availability.Clock,
	logger *zap.Logger,
) *Service {
	if clock == nil {
		clock = availability.SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Bookings:   bookings,
		EventTypes: eventTypes,
		Hosts:      hosts,
		Engine:     engine,
		Writer:     writer,
		Notifier:   notifier,
		Reminders:  reminders,
		Clock:      clock,
		Logger:     logger,
	}
}

func (s *Service) loadEventType(ctx context.Context, id string) (*models.EventType, *models.Host, error) {
	et, err := s.EventTypes.GetByID(ctx, id)
	if err != nil {
		return nil, nil, utils.NewAppError(utils.CodeNotFound, "event type not found")
	}
	host, err := s.Hosts.GetHostByID(ctx, et.HostID)
	if err != nil {
		return nil, nil, utils.WrapAppError(utils.CodeInternal, "host not found for event type", err)
	}
	return et, host, nil
}

// Actor identifies who is asking for a mutation on an existing booking.
// Hosts act on their own bookings; guests act via their email address.
type Actor struct {
	HostID     string
	GuestEmail string
}

func (a Actor) mayMutate(b *models.Booking) bool {
	if a.HostID != "" && a.HostID == b.HostID {
		return true
	}
	if a.GuestEmail != "" && strings.EqualFold(a.GuestEmail, b.Guest.Email) {
		return true
	}
	return false
}

// GetByUID returns a booking by its public uid.
func (s *Service) GetByUID(ctx context.Context, uid string) (*models.Booking, error) {
	b, err := s.Bookings.FindByUID(ctx, uid)
	if err != nil {
		return nil, utils.NewAppError(utils.CodeNotFound, "booking not found")
	}
	return b, nil
}

// ListForHost returns a host's bookings starting inside [from, to).
func (s *Service) ListForHost(ctx context.Context, hostID string, from, to time.Time) ([]models.Booking, error) {
	return s.Bookings.ListByHost(ctx, hostID, from, to)
}
