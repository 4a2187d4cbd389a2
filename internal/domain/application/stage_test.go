package application

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestIsLegalGrid(t *testing.T) {
	legal := map[[2]Stage]bool{
		{StageApplied, StageScreening}:   true,
		{StageApplied, StageRejected}:    true,
		{StageScreening, StageInterview}: true,
		{StageScreening, StageRejected}:  true,
		{StageInterview, StageOffer}:     true,
		{StageInterview, StageRejected}:  true,
		{StageOffer, StageHired}:         true,
		{StageOffer, StageRejected}:      true,
	}
	for _, from := range Stages() {
		for _, to := range Stages() {
			want := legal[[2]Stage{from, to}]
			if got := IsLegal(from, to); got != want {
				t.Errorf("IsLegal(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestNoSelfTransitions(t *testing.T) {
	for _, s := range Stages() {
		if IsLegal(s, s) {
			t.Errorf("%s -> %s should be illegal", s, s)
		}
	}
}

func TestTerminalStages(t *testing.T) {
	for _, s := range Stages() {
		want := s == StageHired || s == StageRejected
		if s.IsTerminal() != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, s.IsTerminal(), want)
		}
		if want && len(AllowedNextStages(s)) != 0 {
			t.Errorf("terminal %s has successors", s)
		}
	}
}

func TestUnknownStage(t *testing.T) {
	unknown := Stage("Archived")
	if unknown.Valid() {
		t.Fatalf("unknown stage reported valid")
	}
	if len(AllowedNextStages(unknown)) != 0 {
		t.Fatalf("unknown stage should have no successors")
	}
	for _, to := range Stages() {
		if IsLegal(unknown, to) || IsLegal(to, unknown) {
			t.Fatalf("transition involving unknown stage should be illegal")
		}
	}
}

func TestAllowedNextStagesReturnsCopy(t *testing.T) {
	next := AllowedNextStages(StageApplied)
	next[0] = StageHired
	if !IsLegal(StageApplied, StageScreening) || IsLegal(StageApplied, StageHired) {
		t.Fatalf("mutating the result changed the table")
	}
}

func TestParseStage(t *testing.T) {
	cases := map[string]Stage{
		"Applied":     StageApplied,
		"screening":   StageScreening,
		" INTERVIEW ": StageInterview,
		"hired":       StageHired,
	}
	for raw, want := range cases {
		got, err := ParseStage(raw)
		if err != nil || got != want {
			t.Errorf("ParseStage(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseStage("Onboarding"); err == nil {
		t.Fatalf("expected error for unknown stage")
	}
}

func TestInvalidTransitionErrorMessage(t *testing.T) {
	id := uuid.New()
	plain := &InvalidTransitionError{ApplicationID: id, Current: StageHired, Requested: StageOffer}
	if msg := plain.Error(); !strings.Contains(msg, "Hired") || !strings.Contains(msg, "Offer") || !strings.Contains(msg, id.String()) {
		t.Fatalf("unexpected message %q", msg)
	}
	race := &InvalidTransitionError{ApplicationID: id, Current: StageRejected, Requested: StageScreening, Conflict: true}
	if !strings.Contains(race.Error(), "concurrently") {
		t.Fatalf("conflict message should mention the race: %q", race.Error())
	}
	unknown := &InvalidTransitionError{ApplicationID: id, Requested: StageScreening, Conflict: true}
	if !strings.Contains(unknown.Error(), "unknown stage") {
		t.Fatalf("unread winner should be reported as unknown: %q", unknown.Error())
	}
}
