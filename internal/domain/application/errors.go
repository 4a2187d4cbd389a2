package application

import (
	"fmt"

	"github.com/google/uuid"
)

// InvalidTransitionError is returned when a requested stage change is not allowed
// from the application's current stage. Conflict is set when the move was legal at
// read time but a concurrent writer changed the stage before ours committed; Current
// is then the stage that won, or empty when it could not be read back.
type InvalidTransitionError struct {
	ApplicationID uuid.UUID
	Current       Stage
	Requested     Stage
	Conflict      bool
}

func (e *InvalidTransitionError) Error() string {
	if e.Conflict && e.Current == "" {
		return fmt.Sprintf("invalid transition for application %s: stage changed concurrently to an unknown stage, cannot move to %s", e.ApplicationID, e.Requested)
	}
	if e.Conflict {
		return fmt.Sprintf("invalid transition for application %s: stage changed concurrently, now %s, cannot move to %s", e.ApplicationID, e.Current, e.Requested)
	}
	return fmt.Sprintf("invalid transition for application %s: cannot move from %s to %s", e.ApplicationID, e.Current, e.Requested)
}
