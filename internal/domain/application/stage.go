// internal/domain/application/stage.go
package application

import (
	"fmt"
	"strings"
)

// Stage is one step of the hiring pipeline an application moves through.
type Stage string

const (
	StageApplied   Stage = "Applied"
	StageScreening Stage = "Screening"
	StageInterview Stage = "Interview"
	StageOffer     Stage = "Offer"
	StageHired     Stage = "Hired"    // terminal
	StageRejected  Stage = "Rejected" // terminal
)

// transitions is the adjacency table of the pipeline. Stages missing from the
// table (or mapped to nil) have no outgoing edges.
var transitions = map[Stage][]Stage{
	StageApplied:   {StageScreening, StageRejected},
	StageScreening: {StageInterview, StageRejected},
	StageInterview: {StageOffer, StageRejected},
	StageOffer:     {StageHired, StageRejected},
	StageHired:     nil,
	StageRejected:  nil,
}

// Stages returns every known stage in pipeline order.
func Stages() []Stage {
	return []Stage{StageApplied, StageScreening, StageInterview, StageOffer, StageHired, StageRejected}
}

// ParseStage converts user or database input into a Stage. Matching ignores case
// so "screening" and "Screening" are the same stage.
func ParseStage(raw string) (Stage, error) {
	trimmed := strings.TrimSpace(raw)
	for _, s := range Stages() {
		if strings.EqualFold(string(s), trimmed) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown application stage %q", raw)
}

// Valid reports whether s is one of the pipeline stages.
func (s Stage) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition may leave s. Unknown stages are
// treated as terminal.
func (s Stage) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s Stage) String() string { return string(s) }

// AllowedNextStages returns the stages reachable from current in one step.
// An unknown stage yields an empty set.
func AllowedNextStages(current Stage) []Stage {
	next := transitions[current]
	out := make([]Stage, len(next))
	copy(out, next)
	return out
}

// IsLegal reports whether moving from current to requested is permitted.
func IsLegal(current, requested Stage) bool {
	for _, s := range transitions[current] {
		if s == requested {
			return true
		}
	}
	return false
}
