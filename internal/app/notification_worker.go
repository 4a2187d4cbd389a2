package app

import (
	"context"
	"fmt"

	"ats_workflow/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// Outcome is what happened to one message of a batch.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeDropped   Outcome = "dropped" // not retried
	OutcomeFailed    Outcome = "failed"  // left for redelivery
)

// Result is the per-message result of a batch run.
type Result struct {
	Envelope notification.Envelope
	Outcome  Outcome
	Err      error
}

// Ack reports whether the message should be removed from the channel.
func (r Result) Ack() bool {
	return r.Outcome == OutcomeDelivered || r.Outcome == OutcomeDropped
}

// BatchReport summarises a batch. A batch always completes; failures are
// counted, never escalated.
type BatchReport struct {
	Delivered int
	Dropped   int
	Failed    int
	Results   []Result
}

// NotificationWorker is the consumer side of the notification channel.
type NotificationWorker struct {
	sender  notification.Sender
	alerter notification.Alerter // optional
	logger  *logrus.Entry
}

func NewNotificationWorker(sender notification.Sender, alerter notification.Alerter, logger *logrus.Entry) *NotificationWorker {
	return &NotificationWorker{
		sender:  sender,
		alerter: alerter,
		logger:  logger,
	}
}

// ProcessBatch dispatches each envelope independently. One bad message only
// affects its own result.
func (w *NotificationWorker) ProcessBatch(ctx context.Context, batch []notification.Envelope) BatchReport {
	w.logger.WithField("batch_size", len(batch)).Info("Processing notification batch")

	report := BatchReport{Results: make([]Result, 0, len(batch))}
	for _, env := range batch {
		res := w.processOne(ctx, env)
		switch res.Outcome {
		case OutcomeDelivered:
			report.Delivered++
		case OutcomeDropped:
			report.Dropped++
		default:
			report.Failed++
		}
		report.Results = append(report.Results, res)
	}

	w.logger.WithFields(logrus.Fields{
		"delivered": report.Delivered,
		"dropped":   report.Dropped,
		"failed":    report.Failed,
	}).Info("Notification batch done")

	if report.Failed > 0 {
		text := fmt.Sprintf("Notification worker: %d of %d messages failed to send and were left for redelivery.", report.Failed, len(batch))
		sendAlert(ctx, w.alerter, w.logger, defaultAlertTimeout, text)
	}
	return report
}

// Poll receives one batch from consumer, processes it and acknowledges the
// delivered and dropped messages. Only a failed receive is returned as an error;
// a failed acknowledgement is logged since the messages will simply come back.
func (w *NotificationWorker) Poll(ctx context.Context, consumer notification.Consumer) (BatchReport, error) {
	batch, err := consumer.ReceiveBatch(ctx)
	if err != nil {
		w.logger.WithError(err).Error("Failed to receive notification batch")
		return BatchReport{}, err
	}
	if len(batch) == 0 {
		w.logger.Debug("No notifications waiting")
		return BatchReport{}, nil
	}

	report := w.ProcessBatch(ctx, batch)

	done := make([]notification.Envelope, 0, len(report.Results))
	for _, res := range report.Results {
		if res.Ack() {
			done = append(done, res.Envelope)
		}
	}
	if len(done) > 0 {
		if err := consumer.Ack(ctx, done); err != nil {
			w.logger.WithError(err).Warn("Failed to acknowledge some notifications, they will be redelivered")
		}
	}
	return report, nil
}

func (w *NotificationWorker) processOne(ctx context.Context, env notification.Envelope) (res Result) {
	res = Result{Envelope: env}
	log := w.logger.WithField("message_id", env.ID)

	// A panicking sender must not take the rest of the batch down.
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = &DispatchError{MessageID: env.ID, Err: fmt.Errorf("panic: %v", r)}
			log.WithError(res.Err).Error("Recovered from panic while sending notification")
		}
	}()

	msg, err := notification.Decode(env.Body)
	if err != nil {
		res.Outcome = OutcomeDropped
		res.Err = err
		log.WithError(err).Warn("Skipping message: undecodable body")
		return res
	}
	if msg.CandidateEmail == "" {
		res.Outcome = OutcomeDropped
		log.Warn("Skipping message: no candidate email provided")
		return res
	}

	log = log.WithField("email", msg.CandidateEmail)
	if err := w.sender.Send(ctx, msg); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = &DispatchError{MessageID: env.ID, Err: err}
		log.WithError(err).Error("Error sending notification")
		return res
	}
	res.Outcome = OutcomeDelivered
	log.Info("Notification sent")
	return res
}
