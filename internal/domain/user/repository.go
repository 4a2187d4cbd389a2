package user

import "context"

// Repository defines the operations for persisting and retrieving User entities.
type Repository interface {
	// InsertIfAbsent stores u unless a user with the same email exists. It reports
	// whether a row was created; an existing email is not an error.
	InsertIfAbsent(ctx context.Context, u *User) (bool, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
