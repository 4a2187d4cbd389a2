package application

import (
	"time"

	"github.com/google/uuid"
)

// Application is one candidate's pursuit of one job opening.
// Corresponds to the 'applications' table.
type Application struct {
	ID             uuid.UUID
	JobID          int64
	CandidateID    int64
	CandidateEmail string // joined from users.email, empty when the candidate row is gone
	CurrentStage   Stage
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TransitionRecord is an immutable audit entry written with every stage change.
// Corresponds to the 'application_history' table.
type TransitionRecord struct {
	ID            int64
	ApplicationID uuid.UUID
	FromStage     Stage
	ToStage       Stage
	ChangedAt     time.Time
}
