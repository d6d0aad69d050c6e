package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"schedly/config"
	bookingRepo "schedly/database/repository/booking"
	eventtypeRepo "schedly/database/repository/eventtype"
	hostRepo "schedly/database/repository/host"
	"schedly/models"
	"schedly/services/notification"
	"schedly/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeBookingReminder = "booking:reminder"

// ReminderPayload is the queued task body. The booking is re-read at fire
// time so cancellations and reschedules between enqueue and delivery win.
type ReminderPayload struct {
	BookingUID string `json:"bookingUid"`
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// ReminderClient enqueues reminder tasks to fire before each meeting.
type ReminderClient struct {
	client *asynq.Client
	lead   time.Duration
	logger *zap.Logger
}

// NewReminderClient wires a reminder scheduler backed by the task queue.
func NewReminderClient(logger *zap.Logger) *ReminderClient {
	if logger == nil {
		logger = utils.GetLogger()
	}
	lead := time.Duration(config.AppConfig.ReminderLeadMin) * time.Minute
	if lead <= 0 {
		lead = time.Hour
	}
	return &ReminderClient{
		client: asynq.NewClient(redisOpts()),
		lead:   lead,
		logger: logger,
	}
}

// ScheduleReminder queues a reminder at start minus the configured lead.
// Bookings starting sooner than the lead get no reminder.
func (c *ReminderClient) ScheduleReminder(_ context.Context, b *models.Booking) error {
	fireAt := b.Start.Add(-c.lead)
	if !fireAt.After(time.Now()) {
		return nil
	}
	payload, err := json.Marshal(ReminderPayload{BookingUID: b.UID})
	if err != nil {
		return fmt.Errorf("encode reminder payload: %w", err)
	}
	task := asynq.NewTask(TypeBookingReminder, payload)
	if _, err := c.client.Enqueue(task, asynq.ProcessAt(fireAt), asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue reminder for booking %s: %w", b.UID, err)
	}
	c.logger.Debug("reminder scheduled",
		zap.String("uid", b.UID), zap.Time("fireAt", fireAt))
	return nil
}

// Close releases the queue connection.
func (c *ReminderClient) Close() error { return c.client.Close() }

// InitReminderWorker runs the reminder worker in the background.
func InitReminderWorker(
	bookings bookingRepo.Repository,
	eventTypes eventtypeRepo.Repository,
	hosts hostRepo.Repository,
	notifSvc *notification.DefaultNotificationService,
	logger *zap.Logger,
) {
	if logger == nil {
		logger = utils.GetLogger()
	}

	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBookingReminder, handleReminderTask(bookings, eventTypes, hosts, notifSvc, logger))

	go func() {
		logger.Info("starting reminder worker")
		const maxAttempts = 5
		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Error("reminder worker failed to start",
				zap.Int("attempt", attempts), zap.Error(err))
			if attempts == maxAttempts {
				logger.Fatal("reminder worker exhausted start attempts")
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
}

func handleReminderTask(
	bookings bookingRepo.Repository,
	eventTypes eventtypeRepo.Repository,
	hosts hostRepo.Repository,
	notifSvc *notification.DefaultNotificationService,
	logger *zap.Logger,
) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid reminder payload", zap.Error(err))
			return err
		}

		b, err := bookings.FindByUID(ctx, p.BookingUID)
		if err != nil {
			// Rescheduled bookings carry a new uid; the stale task is done.
			logger.Debug("reminder target gone", zap.String("uid", p.BookingUID))
			return nil
		}
		if !b.Active() || !b.Start.After(time.Now()) {
			return nil
		}

		et, err := eventTypes.GetByID(ctx, b.EventTypeID)
		if err != nil {
			logger.Warn("reminder skipped, event type missing",
				zap.String("uid", b.UID), zap.Error(err))
			return nil
		}
		host, err := hosts.GetHostByID(ctx, b.HostID)
		if err != nil {
			logger.Warn("reminder skipped, host missing",
				zap.String("uid", b.UID), zap.Error(err))
			return nil
		}

		notifSvc.SendReminder(ctx, et, host, b)
		return nil
	}
}
