package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"ats_workflow/internal/domain/identity"
	"ats_workflow/internal/domain/notification"
	"ats_workflow/internal/domain/user"
	"ats_workflow/internal/infra/config"

	"github.com/sirupsen/logrus"
)

func signUp(email, role string) *identity.SignUpEvent {
	attrs := map[string]string{
		identity.AttrSub:        "sub-" + email,
		identity.AttrGivenName:  "Jane",
		identity.AttrFamilyName: "Doe",
	}
	if email != "" {
		attrs[identity.AttrEmail] = email
	}
	if role != "" {
		attrs[identity.AttrRequestedRole] = role
	}
	ev := &identity.SignUpEvent{UserPoolID: "pool-1", UserName: "jane"}
	ev.Request.UserAttributes = attrs
	return ev
}

func newProvisioning(groups *fakeGroups, users *fakeUserRepo, alerter *fakeAlerter) (*ProvisioningService, *fakeUserRepo) {
	log, _ := newTestLogger()
	var a notification.Alerter
	if alerter != nil {
		a = alerter
	}
	return NewProvisioningService(groups, users, config.DefaultRoleGroups(), a, log, time.Second), users
}

func TestProvisionAssignsGroupAndInserts(t *testing.T) {
	groups := &fakeGroups{}
	svc, users := newProvisioning(groups, newFakeUserRepo(), nil)

	ev := signUp("jane@example.com", "recruiter")
	outcome, err := svc.Provision(context.Background(), ev)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if outcome.Event != ev || !outcome.GroupAssigned || !outcome.Created || len(outcome.Warnings) != 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Role != user.RoleRecruiter || outcome.Group != "Recruiters" {
		t.Fatalf("unexpected role mapping %s -> %s", outcome.Role, outcome.Group)
	}
	if len(groups.calls) != 1 || groups.calls[0] != (groupCall{"pool-1", "jane", "Recruiters"}) {
		t.Fatalf("unexpected group calls %+v", groups.calls)
	}
	u, err := users.GetByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("user row missing: %v", err)
	}
	if u.Role != user.RoleRecruiter || u.FirstName != "Jane" || u.LastName != "Doe" || u.Sub != "sub-jane@example.com" {
		t.Fatalf("unexpected user row %+v", u)
	}
}

func TestProvisionDefaultsToCandidate(t *testing.T) {
	for _, hint := range []string{"", "wizard"} {
		groups := &fakeGroups{}
		svc, _ := newProvisioning(groups, newFakeUserRepo(), nil)
		outcome, err := svc.Provision(context.Background(), signUp("c@example.com", hint))
		if err != nil {
			t.Fatalf("hint %q: %v", hint, err)
		}
		if outcome.Role != user.RoleCandidate || groups.calls[0].group != "Candidates" {
			t.Fatalf("hint %q: expected candidate, got %s in %s", hint, outcome.Role, groups.calls[0].group)
		}
	}
}

func TestProvisionTwiceIsIdempotent(t *testing.T) {
	svc, users := newProvisioning(&fakeGroups{}, newFakeUserRepo(), nil)
	ev := signUp("again@example.com", "hiring_manager")

	first, err := svc.Provision(context.Background(), ev)
	if err != nil || !first.Created {
		t.Fatalf("first provision: %+v %v", first, err)
	}
	second, err := svc.Provision(context.Background(), ev)
	if err != nil {
		t.Fatalf("second provision must succeed: %v", err)
	}
	if second.Created {
		t.Fatalf("second provision must not insert")
	}
	if len(users.byEmail) != 1 {
		t.Fatalf("expected one row, got %d", len(users.byEmail))
	}
}

func TestProvisionGroupFailureIsSoft(t *testing.T) {
	groups := &fakeGroups{err: errors.New("AccessDenied")}
	users := newFakeUserRepo()
	alerter := &fakeAlerter{}
	log, hook := newTestLogger()
	svc := NewProvisioningService(groups, users, config.DefaultRoleGroups(), alerter, log, time.Second)

	outcome, err := svc.Provision(context.Background(), signUp("soft@example.com", "candidate"))
	if err != nil {
		t.Fatalf("group failure must not fail provisioning: %v", err)
	}
	if outcome.GroupAssigned || !outcome.Created || len(outcome.Warnings) != 1 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	var soft *SoftProvisioningError
	if !errors.As(outcome.Warnings[0], &soft) || soft.Group != "Candidates" {
		t.Fatalf("expected SoftProvisioningError, got %v", outcome.Warnings[0])
	}
	if _, err := users.GetByEmail(context.Background(), "soft@example.com"); err != nil {
		t.Fatalf("row should still be inserted: %v", err)
	}
	if alerter.count() != 1 {
		t.Fatalf("expected ops alert, got %d", alerter.count())
	}

	logged := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Data["group"] == "Candidates" {
			logged = true
		}
	}
	if !logged {
		t.Fatalf("expected group failure to be logged")
	}
}

func TestProvisionInsertFailureIsHard(t *testing.T) {
	users := newFakeUserRepo()
	users.err = errors.New("connection reset")
	groups := &fakeGroups{}
	svc, _ := newProvisioning(groups, users, nil)

	_, err := svc.Provision(context.Background(), signUp("hard@example.com", ""))
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "insert user" {
		t.Fatalf("expected insert PersistenceError, got %v", err)
	}
	if len(groups.calls) != 1 {
		t.Fatalf("group assignment is attempted before the insert")
	}
}

func TestProvisionRequiresEmail(t *testing.T) {
	groups := &fakeGroups{}
	svc, _ := newProvisioning(groups, newFakeUserRepo(), nil)
	if _, err := svc.Provision(context.Background(), signUp("", "")); !errors.Is(err, ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", err)
	}
	if _, err := svc.Provision(context.Background(), nil); !errors.Is(err, ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail for nil event, got %v", err)
	}
	if len(groups.calls) != 0 {
		t.Fatalf("nothing should be attempted without an email")
	}
}

func TestProvisionSlowAlertDoesNotBlockSignUp(t *testing.T) {
	groups := &fakeGroups{err: errors.New("AccessDenied")}
	users := newFakeUserRepo()
	log, _ := newTestLogger()
	svc := NewProvisioningService(groups, users, config.DefaultRoleGroups(), stallingAlerter{delay: 2 * time.Second}, log, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	outcome, err := svc.Provision(ctx, signUp("slow@example.com", ""))
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("slow alert turned a soft failure into a hard one: %v", err)
	}
	if elapsed > 900*time.Millisecond {
		t.Fatalf("provision overran the caller deadline, took %s", elapsed)
	}
	if !outcome.Created {
		t.Fatalf("user row should be inserted")
	}
}

func TestProvisionReportsStoredRoleMismatch(t *testing.T) {
	svc, users := newProvisioning(&fakeGroups{}, newFakeUserRepo(), nil)
	if _, err := svc.Provision(context.Background(), signUp("dup@example.com", "candidate")); err != nil {
		t.Fatalf("first provision: %v", err)
	}

	outcome, err := svc.Provision(context.Background(), signUp("dup@example.com", "recruiter"))
	if err != nil {
		t.Fatalf("second provision: %v", err)
	}
	if outcome.Created || outcome.ExistingRole != user.RoleCandidate {
		t.Fatalf("expected existing candidate row, got %+v", outcome)
	}
	var mismatch *RoleMismatchError
	if len(outcome.Warnings) != 1 || !errors.As(outcome.Warnings[0], &mismatch) {
		t.Fatalf("expected RoleMismatchError warning, got %v", outcome.Warnings)
	}
	if mismatch.Stored != user.RoleCandidate || mismatch.Requested != user.RoleRecruiter {
		t.Fatalf("unexpected mismatch %+v", mismatch)
	}
	if len(users.byEmail) != 1 {
		t.Fatalf("no second row may be written")
	}
}

func TestProvisionExistingRowLookupFailureIsIgnored(t *testing.T) {
	users := newFakeUserRepo()
	svc, _ := newProvisioning(&fakeGroups{}, users, nil)
	if _, err := svc.Provision(context.Background(), signUp("look@example.com", "")); err != nil {
		t.Fatalf("first provision: %v", err)
	}
	users.getErr = errors.New("read replica down")

	outcome, err := svc.Provision(context.Background(), signUp("look@example.com", "recruiter"))
	if err != nil {
		t.Fatalf("lookup failure must not fail provisioning: %v", err)
	}
	if outcome.ExistingRole != "" || len(outcome.Warnings) != 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}
