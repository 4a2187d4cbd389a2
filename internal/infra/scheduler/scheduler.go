package scheduler

import (
	"context"
	"time"

	"ats_workflow/internal/app"
	"ats_workflow/internal/domain/notification"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// NotificationScheduler drains the notification queue on a cron schedule. Each
// tick is one bounded batch; a tick still running when the next fires is skipped.
type NotificationScheduler struct {
	cronEngine  *cron.Cron
	worker      *app.NotificationWorker
	consumer    notification.Consumer
	logger      *logrus.Entry
	pollSpec    string
	tickTimeout time.Duration
}

func NewNotificationScheduler(
	worker *app.NotificationWorker,
	consumer notification.Consumer,
	logger *logrus.Entry,
	pollSpec string, // e.g. "@every 15s"
	tickTimeout time.Duration,
) *NotificationScheduler {
	cronLogger := cron.PrintfLogger(logger)
	return &NotificationScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		worker:      worker,
		consumer:    consumer,
		logger:      logger,
		pollSpec:    pollSpec,
		tickTimeout: tickTimeout,
	}
}

// Start registers the poll job and starts the cron engine.
func (s *NotificationScheduler) Start() error {
	s.logger.WithField("spec", s.pollSpec).Info("Starting notification scheduler")

	if _, err := s.cronEngine.AddFunc(s.pollSpec, s.tick); err != nil {
		return err
	}

	s.cronEngine.Start()
	return nil
}

func (s *NotificationScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.tickTimeout)
	defer cancel()
	if _, err := s.worker.Poll(ctx, s.consumer); err != nil {
		s.logger.WithError(err).Error("Notification poll failed")
	}
}

// Stop stops scheduling and waits for a running tick to finish.
func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Notification scheduler stopped")
}
