package app

import (
	"context"
	"time"

	"ats_workflow/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// defaultAlertTimeout caps how long a caller waits on an ops alert.
const defaultAlertTimeout = 2 * time.Second

// sendAlert delivers text through alerter but never waits longer than timeout or
// the caller's deadline, whichever ends first. An alerter that ignores its context
// is left to finish in the background.
func sendAlert(ctx context.Context, alerter notification.Alerter, log *logrus.Entry, timeout time.Duration, text string) {
	if alerter == nil {
		return
	}
	if timeout <= 0 {
		timeout = defaultAlertTimeout
	}
	alertCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- alerter.Alert(alertCtx, text)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.WithError(err).Warn("Failed to send ops alert")
		}
	case <-alertCtx.Done():
		log.WithError(alertCtx.Err()).Warn("Gave up waiting for ops alert")
	}
}
