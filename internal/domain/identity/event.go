// Package identity describes the identity provider side of user provisioning.
package identity

import "context"

// Attribute keys of a sign-up event.
const (
	AttrSub           = "sub"
	AttrEmail         = "email"
	AttrGivenName     = "given_name"
	AttrFamilyName    = "family_name"
	AttrRequestedRole = "custom:requested_role"
)

// SignUpEvent is the payload the identity provider sends once an account is
// confirmed. It must be handed back unchanged to let sign-up complete.
type SignUpEvent struct {
	Version       string         `json:"version,omitempty"`
	Region        string         `json:"region,omitempty"`
	UserPoolID    string         `json:"userPoolId"`
	UserName      string         `json:"userName"`
	TriggerSource string         `json:"triggerSource,omitempty"`
	CallerContext map[string]any `json:"callerContext,omitempty"`
	Request       SignUpRequest  `json:"request"`
	Response      map[string]any `json:"response"`
}

type SignUpRequest struct {
	UserAttributes map[string]string `json:"userAttributes"`
}

func (e *SignUpEvent) attr(key string) string {
	if e.Request.UserAttributes == nil {
		return ""
	}
	return e.Request.UserAttributes[key]
}

func (e *SignUpEvent) Sub() string           { return e.attr(AttrSub) }
func (e *SignUpEvent) Email() string         { return e.attr(AttrEmail) }
func (e *SignUpEvent) GivenName() string     { return e.attr(AttrGivenName) }
func (e *SignUpEvent) FamilyName() string    { return e.attr(AttrFamilyName) }
func (e *SignUpEvent) RequestedRole() string { return e.attr(AttrRequestedRole) }

// GroupAssigner adds a user to an authorization group in the identity provider.
type GroupAssigner interface {
	AddUserToGroup(ctx context.Context, userPoolID, userName, group string) error
}
