// internal/app/lifecycle_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ats_workflow/internal/domain/application"
	"ats_workflow/internal/domain/notification"
	idb "ats_workflow/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNoCandidateAddress is reported as a warning when neither the request nor the
// stored candidate carries an email address to notify.
var ErrNoCandidateAddress = fmt.Errorf("no candidate address known for notification")

// TransitionRequest is what a workflow coordinator sends to move an application.
type TransitionRequest struct {
	ApplicationID  uuid.UUID
	RequestedStage application.Stage
	CandidateEmail string // optional; the stored candidate email is used when empty
}

// TransitionOutcome describes a committed transition. Warnings holds advisory
// failures from steps that run after the commit; they never undo it.
type TransitionOutcome struct {
	ApplicationID  uuid.UUID
	PreviousStage  application.Stage
	NewStage       application.Stage
	CandidateEmail string
	Notified       bool
	Warnings       []error
}

// SubmitRequest creates a new application for a candidate.
type SubmitRequest struct {
	JobID          int64
	CandidateID    int64
	CandidateEmail string
}

// SubmitOutcome carries the created application and advisory warnings.
type SubmitOutcome struct {
	Application *application.Application
	Notified    bool
	Warnings    []error
}

// LifecycleService runs stage transitions end to end: validate, persist with
// audit, then notify.
type LifecycleService struct {
	appRepo      application.Repository
	producer     notification.Producer
	logger       *logrus.Entry
	storeTimeout time.Duration
}

func NewLifecycleService(
	ar application.Repository,
	producer notification.Producer,
	logger *logrus.Entry,
	storeTimeout time.Duration,
) *LifecycleService {
	return &LifecycleService{
		appRepo:      ar,
		producer:     producer,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

// Transition moves an application to req.RequestedStage. Errors mean the step
// failed: NotFound, *application.InvalidTransitionError (also for lost races) or
// *PersistenceError. Nothing is retried here.
func (s *LifecycleService) Transition(ctx context.Context, req TransitionRequest) (*TransitionOutcome, error) {
	log := s.logger.WithFields(logrus.Fields{
		"application_id":  req.ApplicationID,
		"requested_stage": req.RequestedStage,
	})
	log.Info("Processing stage transition")

	// 1. Load
	current, err := s.load(ctx, req.ApplicationID)
	if err != nil {
		if errors.Is(err, idb.ErrApplicationNotFound) {
			log.Warn("Application not found")
			return nil, err
		}
		log.WithError(err).Error("Failed to load application")
		return nil, &PersistenceError{Op: "load application", Err: err}
	}
	log = log.WithField("current_stage", current.CurrentStage)
	if !current.CurrentStage.Valid() {
		log.Warn("Stored stage is outside the pipeline, no transition can leave it")
	}

	// 2. Validate
	if !application.IsLegal(current.CurrentStage, req.RequestedStage) {
		terr := &application.InvalidTransitionError{
			ApplicationID: req.ApplicationID,
			Current:       current.CurrentStage,
			Requested:     req.RequestedStage,
		}
		log.WithError(terr).WithField("terminal", current.CurrentStage.IsTerminal()).Warn("Rejected stage transition")
		return nil, terr
	}

	// 3. Persist stage and audit row together
	rec := &application.TransitionRecord{
		ApplicationID: req.ApplicationID,
		FromStage:     current.CurrentStage,
		ToStage:       req.RequestedStage,
	}
	storeCtx, cancel := s.storeContext(ctx)
	err = s.appRepo.AdvanceStage(storeCtx, rec)
	cancel()
	if err != nil {
		if errors.Is(err, idb.ErrStageConflict) {
			return nil, s.conflict(ctx, log, req, current.CurrentStage)
		}
		log.WithError(err).Error("Failed to persist stage transition, outcome unknown")
		return nil, &PersistenceError{Op: "advance stage", Err: err}
	}
	log.WithField("history_id", rec.ID).Info("Stage transition committed")

	outcome := &TransitionOutcome{
		ApplicationID:  req.ApplicationID,
		PreviousStage:  rec.FromStage,
		NewStage:       rec.ToStage,
		CandidateEmail: req.CandidateEmail,
	}
	if outcome.CandidateEmail == "" {
		outcome.CandidateEmail = current.CandidateEmail
	}

	// 4. Notify, best effort
	msg := notification.Message{
		CandidateEmail: outcome.CandidateEmail,
		Body:           stageChangeBody(current.JobID, rec.ToStage),
		ApplicationID:  req.ApplicationID.String(),
		JobID:          current.JobID,
		Stage:          string(rec.ToStage),
	}
	outcome.Notified, outcome.Warnings = s.notify(ctx, log, msg)
	return outcome, nil
}

// conflict turns a lost compare-and-swap into an InvalidTransitionError carrying
// the stage that won, or no stage when it cannot be re-read.
func (s *LifecycleService) conflict(ctx context.Context, log *logrus.Entry, req TransitionRequest, expected application.Stage) error {
	terr := &application.InvalidTransitionError{
		ApplicationID: req.ApplicationID,
		Current:       expected,
		Requested:     req.RequestedStage,
		Conflict:      true,
	}
	latest, err := s.load(ctx, req.ApplicationID)
	switch {
	case err == nil:
		terr.Current = latest.CurrentStage
	case errors.Is(err, idb.ErrApplicationNotFound):
		log.Warn("Application disappeared during stage transition")
		return err
	default:
		// The winning stage is unknown; do not report the stale one.
		terr.Current = ""
		log.WithError(err).Warn("Could not re-read application after stage conflict")
	}
	log.WithError(terr).Warn("Lost stage transition race")
	return terr
}

// Submit creates an application at the initial stage and tells the candidate.
func (s *LifecycleService) Submit(ctx context.Context, req SubmitRequest) (*SubmitOutcome, error) {
	log := s.logger.WithFields(logrus.Fields{
		"job_id":       req.JobID,
		"candidate_id": req.CandidateID,
	})

	newApp := &application.Application{
		ID:             uuid.New(),
		JobID:          req.JobID,
		CandidateID:    req.CandidateID,
		CandidateEmail: req.CandidateEmail,
		CurrentStage:   application.StageApplied,
	}
	storeCtx, cancel := s.storeContext(ctx)
	err := s.appRepo.Create(storeCtx, newApp)
	cancel()
	if err != nil {
		if errors.Is(err, idb.ErrUnknownJobOrCandidate) || errors.Is(err, idb.ErrDuplicateApplication) {
			log.WithError(err).Warn("Rejected application submission")
			return nil, err
		}
		log.WithError(err).Error("Failed to create application")
		return nil, &PersistenceError{Op: "create application", Err: err}
	}
	log.WithField("application_id", newApp.ID).Info("Application submitted")

	outcome := &SubmitOutcome{Application: newApp}
	msg := notification.Message{
		CandidateEmail: req.CandidateEmail,
		Body:           fmt.Sprintf("Application Received for Job %d", req.JobID),
		ApplicationID:  newApp.ID.String(),
		JobID:          req.JobID,
		Stage:          string(application.StageApplied),
	}
	outcome.Notified, outcome.Warnings = s.notify(ctx, log.WithField("application_id", newApp.ID), msg)
	return outcome, nil
}

// History returns the audit trail of an application, oldest first.
func (s *LifecycleService) History(ctx context.Context, id uuid.UUID) ([]*application.TransitionRecord, error) {
	if _, err := s.load(ctx, id); err != nil {
		if errors.Is(err, idb.ErrApplicationNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "load application", Err: err}
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	records, err := s.appRepo.ListHistory(storeCtx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "list history", Err: err}
	}
	return records, nil
}

func (s *LifecycleService) notify(ctx context.Context, log *logrus.Entry, msg notification.Message) (bool, []error) {
	if msg.CandidateEmail == "" {
		log.Warn("No candidate address known, skipping notification")
		return false, []error{ErrNoCandidateAddress}
	}
	if err := s.producer.Enqueue(ctx, msg); err != nil {
		log.WithError(err).Error("State change committed but notification could not be enqueued")
		return false, []error{&NotificationError{Err: err}}
	}
	log.WithField("email", msg.CandidateEmail).Debug("Notification enqueued")
	return true, nil
}

func (s *LifecycleService) load(ctx context.Context, id uuid.UUID) (*application.Application, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.appRepo.GetByID(storeCtx, id)
}

func (s *LifecycleService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func stageChangeBody(jobID int64, stage application.Stage) string {
	switch stage {
	case application.StageHired:
		return fmt.Sprintf("Congratulations! You have been hired for Job %d.", jobID)
	case application.StageRejected:
		return fmt.Sprintf("Your application for Job %d will not move forward. Thank you for your interest.", jobID)
	default:
		return fmt.Sprintf("Your application for Job %d has moved to the %s stage.", jobID, stage)
	}
}
