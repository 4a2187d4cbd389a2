package app

import (
	"fmt"

	"ats_workflow/internal/domain/user"
)

// PersistenceError reports that the store could not complete a write, or that the
// outcome of the write is unknown (timeout, lost connection during commit). The
// caller must treat the step as failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SoftProvisioningError reports that the identity provider group assignment
// failed. It is advisory: the user row is still written.
type SoftProvisioningError struct {
	Group string
	Err   error
}

func (e *SoftProvisioningError) Error() string {
	return fmt.Sprintf("failed to assign identity provider group %s: %v", e.Group, e.Err)
}

func (e *SoftProvisioningError) Unwrap() error { return e.Err }

// RoleMismatchError reports that an already provisioned email is stored with a
// different role than the one just requested. Advisory only; the stored row wins.
type RoleMismatchError struct {
	Stored    user.Role
	Requested user.Role
}

func (e *RoleMismatchError) Error() string {
	return fmt.Sprintf("existing user has role %s, sign-up requested %s", e.Stored, e.Requested)
}

// DispatchError reports a failed delivery of a single notification.
type DispatchError struct {
	MessageID string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("failed to dispatch notification %s: %v", e.MessageID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// NotificationError reports that a committed state change could not be followed
// by its notification. The state change stands.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to enqueue notification: %v", e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
