package app

import (
	"context"
	"fmt"
	"time"

	"ats_workflow/internal/domain/identity"
	"ats_workflow/internal/domain/notification"
	"ats_workflow/internal/domain/user"
	"ats_workflow/internal/infra/config"

	"github.com/sirupsen/logrus"
)

var ErrMissingEmail = fmt.Errorf("sign-up event carries no email attribute")

// ProvisioningOutcome reports what a provisioning run did. Event is the input,
// untouched, for the identity provider to continue its flow.
type ProvisioningOutcome struct {
	Event         *identity.SignUpEvent
	Role          user.Role
	Group         string
	GroupAssigned bool
	Created       bool      // false when the email already had a row
	ExistingRole  user.Role // role of the existing row when Created is false
	Warnings      []error
}

// ProvisioningService writes a newly confirmed identity into both the identity
// provider (group membership) and the users table.
type ProvisioningService struct {
	groups       identity.GroupAssigner
	userRepo     user.Repository
	roleGroups   config.RoleGroups
	alerter      notification.Alerter // optional
	logger       *logrus.Entry
	storeTimeout time.Duration
	alertTimeout time.Duration
}

func NewProvisioningService(
	groups identity.GroupAssigner,
	ur user.Repository,
	roleGroups config.RoleGroups,
	alerter notification.Alerter,
	logger *logrus.Entry,
	storeTimeout time.Duration,
) *ProvisioningService {
	return &ProvisioningService{
		groups:       groups,
		userRepo:     ur,
		roleGroups:   roleGroups,
		alerter:      alerter,
		logger:       logger,
		storeTimeout: storeTimeout,
		alertTimeout: defaultAlertTimeout,
	}
}

// Provision assigns the identity's group and inserts its user row. A failed
// group assignment only adds a *SoftProvisioningError warning; a failed insert
// is returned and must block sign-up.
func (s *ProvisioningService) Provision(ctx context.Context, ev *identity.SignUpEvent) (*ProvisioningOutcome, error) {
	if ev == nil || ev.Email() == "" {
		return nil, ErrMissingEmail
	}

	role := user.ParseRole(ev.RequestedRole())
	group := s.roleGroups.GroupFor(role)
	log := s.logger.WithFields(logrus.Fields{
		"email": ev.Email(),
		"role":  role,
		"group": group,
	})
	log.Info("Syncing user")

	outcome := &ProvisioningOutcome{Event: ev, Role: role, Group: group}

	groupErr := s.groups.AddUserToGroup(ctx, ev.UserPoolID, ev.UserName, group)
	if groupErr != nil {
		outcome.Warnings = append(outcome.Warnings, &SoftProvisioningError{Group: group, Err: groupErr})
		log.WithError(groupErr).Error("Failed to assign group, continuing with user insert")
	} else {
		outcome.GroupAssigned = true
		log.Info("User added to group")
	}

	u := &user.User{
		Sub:       ev.Sub(),
		Email:     ev.Email(),
		Role:      role,
		FirstName: ev.GivenName(),
		LastName:  ev.FamilyName(),
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.timeout())
	created, err := s.userRepo.InsertIfAbsent(storeCtx, u)
	cancel()

	// Alert only after the insert; the insert never waits on the alert channel.
	if groupErr != nil {
		sendAlert(ctx, s.alerter, log, s.alertTimeout,
			fmt.Sprintf("User %s was not added to group %s: %v. Reconcile manually.", ev.Email(), group, groupErr))
	}

	if err != nil {
		log.WithError(err).Error("User sync to database failed")
		return nil, &PersistenceError{Op: "insert user", Err: err}
	}
	outcome.Created = created
	if created {
		log.WithField("user_id", u.ID).Info("User synced to database")
		return outcome, nil
	}

	log.Info("User already present, nothing inserted")
	s.checkExisting(ctx, log, outcome)
	return outcome, nil
}

// checkExisting reports the role already stored for the email. A role that
// differs from the requested one means the group and the users row disagree.
func (s *ProvisioningService) checkExisting(ctx context.Context, log *logrus.Entry, outcome *ProvisioningOutcome) {
	storeCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	existing, err := s.userRepo.GetByEmail(storeCtx, outcome.Event.Email())
	if err != nil {
		log.WithError(err).Warn("Could not read existing user row")
		return
	}
	outcome.ExistingRole = existing.Role
	if existing.Role != outcome.Role {
		outcome.Warnings = append(outcome.Warnings, &RoleMismatchError{Stored: existing.Role, Requested: outcome.Role})
		log.WithField("stored_role", existing.Role).Warn("Existing user row has a different role than the requested group")
	}
}

func (s *ProvisioningService) timeout() time.Duration {
	if s.storeTimeout <= 0 {
		return 30 * time.Second
	}
	return s.storeTimeout
}
