package application

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists applications and their transition history.
type Repository interface {
	Create(ctx context.Context, app *Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*Application, error)

	// AdvanceStage moves the application from rec.FromStage to rec.ToStage and
	// appends rec to the history in one unit of work. The update only applies
	// while the stored stage still equals rec.FromStage; when another writer got
	// there first nothing is written and the implementation reports a stage
	// conflict. On success rec.ID and rec.ChangedAt are filled in.
	AdvanceStage(ctx context.Context, rec *TransitionRecord) error

	ListHistory(ctx context.Context, id uuid.UUID) ([]*TransitionRecord, error)
}
