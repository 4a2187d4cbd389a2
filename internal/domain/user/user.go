package user

import (
	"strings"
	"time"
)

// Role is the authorization role stored with a user.
type Role string

const (
	RoleCandidate     Role = "candidate"
	RoleRecruiter     Role = "recruiter"
	RoleHiringManager Role = "hiring_manager"
)

// ParseRole maps a free-form role hint onto a Role. Anything unrecognised,
// including an empty hint, falls back to the least privileged role.
func ParseRole(hint string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(hint))) {
	case RoleRecruiter:
		return RoleRecruiter
	case RoleHiringManager:
		return RoleHiringManager
	default:
		return RoleCandidate
	}
}

// User is an identity known to both the identity provider and the 'users' table.
type User struct {
	ID        int64
	Sub       string // identity provider subject
	Email     string // unique
	Role      Role
	FirstName string
	LastName  string
	CreatedAt time.Time
}
