// Package cognito assigns users to Cognito user-pool groups.
package cognito

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

// API is the subset of the Cognito client the assigner uses.
type API interface {
	AdminAddUserToGroup(ctx context.Context, params *cip.AdminAddUserToGroupInput, optFns ...func(*cip.Options)) (*cip.AdminAddUserToGroupOutput, error)
}

type GroupAssigner struct {
	client API
}

func NewGroupAssigner(client API) *GroupAssigner {
	return &GroupAssigner{client: client}
}

// AddUserToGroup is idempotent on the Cognito side: adding a member twice succeeds.
func (g *GroupAssigner) AddUserToGroup(ctx context.Context, userPoolID, userName, group string) error {
	if userPoolID == "" || userName == "" {
		return fmt.Errorf("user pool ID and user name are required to assign group %s", group)
	}
	_, err := g.client.AdminAddUserToGroup(ctx, &cip.AdminAddUserToGroupInput{
		GroupName:  aws.String(group),
		UserPoolId: aws.String(userPoolID),
		Username:   aws.String(userName),
	})
	if err != nil {
		return fmt.Errorf("error adding user %s to group %s: %w", userName, group, err)
	}
	return nil
}
