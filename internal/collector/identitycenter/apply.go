package identitycenter

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	idstypes "github.com/aws/aws-sdk-go-v2/service/identitystore/types"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	ssotypes "github.com/aws/aws-sdk-go-v2/service/ssoadmin/types"
	"github.com/idcvault/idcvault/internal/core/domain"
	"github.com/idcvault/idcvault/internal/resilience"
)

// CreateUser recreates a user and returns its new id.
func (c *Client) CreateUser(ctx context.Context, user domain.User) (string, error) {
	input := &identitystore.CreateUserInput{
		IdentityStoreId: aws.String(c.identityStoreID),
		UserName:        aws.String(user.UserName),
		DisplayName:     aws.String(user.DisplayName),
	}
	if user.Email != "" {
		input.Emails = []idstypes.Email{{Value: aws.String(user.Email), Primary: true}}
	}

	out, err := c.ids.CreateUser(ctx, input)
	if err != nil {
		return "", fmt.Errorf("create user %s: %w", user.UserName, err)
	}
	return aws.ToString(out.UserId), nil
}

// CreateGroup recreates a group (memberships are applied separately) and
// returns its new id.
func (c *Client) CreateGroup(ctx context.Context, group domain.Group) (string, error) {
	input := &identitystore.CreateGroupInput{
		IdentityStoreId: aws.String(c.identityStoreID),
		DisplayName:     aws.String(group.DisplayName),
	}
	if group.Description != "" {
		input.Description = aws.String(group.Description)
	}

	out, err := c.ids.CreateGroup(ctx, input)
	if err != nil {
		return "", fmt.Errorf("create group %s: %w", group.DisplayName, err)
	}
	return aws.ToString(out.GroupId), nil
}

// AddGroupMember attaches a user to a group and returns the membership id.
func (c *Client) AddGroupMember(ctx context.Context, groupID, userID string) (string, error) {
	out, err := c.ids.CreateGroupMembership(ctx, &identitystore.CreateGroupMembershipInput{
		IdentityStoreId: aws.String(c.identityStoreID),
		GroupId:         aws.String(groupID),
		MemberId:        &idstypes.MemberIdMemberUserId{Value: userID},
	})
	if err != nil {
		return "", fmt.Errorf("add member %s to group %s: %w", userID, groupID, err)
	}
	return aws.ToString(out.MembershipId), nil
}

// CreatePermissionSet recreates a permission set and returns its new ARN.
func (c *Client) CreatePermissionSet(ctx context.Context, ps domain.PermissionSet) (string, error) {
	input := &ssoadmin.CreatePermissionSetInput{
		InstanceArn: aws.String(c.instanceArn),
		Name:        aws.String(ps.Name),
	}
	if ps.Description != "" {
		input.Description = aws.String(ps.Description)
	}
	if ps.SessionDuration != "" {
		input.SessionDuration = aws.String(ps.SessionDuration)
	}
	if ps.RelayState != "" {
		input.RelayState = aws.String(ps.RelayState)
	}

	out, err := c.sso.CreatePermissionSet(ctx, input)
	if err != nil {
		return "", fmt.Errorf("create permission set %s: %w", ps.Name, err)
	}
	return aws.ToString(out.PermissionSet.PermissionSetArn), nil
}

// CreateAssignment grants a principal a permission set on an account.
func (c *Client) CreateAssignment(ctx context.Context, a domain.Assignment) error {
	_, err := c.sso.CreateAccountAssignment(ctx, &ssoadmin.CreateAccountAssignmentInput{
		InstanceArn:      aws.String(c.instanceArn),
		TargetId:         aws.String(a.AccountID),
		TargetType:       ssotypes.TargetTypeAwsAccount,
		PermissionSetArn: aws.String(a.PermissionSetArn),
		PrincipalType:    ssotypes.PrincipalType(a.PrincipalType),
		PrincipalId:      aws.String(a.PrincipalID),
	})
	if err != nil {
		return fmt.Errorf("assign %s to account %s: %w", a.PrincipalID, a.AccountID, err)
	}
	return nil
}

// Apply implements resilience.ActionApplier: it dispatches recorded
// compensating commands back against the directory.
func (c *Client) Apply(ctx context.Context, action resilience.RollbackAction) error {
	if action.Kind != resilience.ActionDelete {
		return fmt.Errorf("unsupported rollback kind %q for %s", action.Kind, action.ResourceType)
	}

	switch action.ResourceType {
	case "user":
		_, err := c.ids.DeleteUser(ctx, &identitystore.DeleteUserInput{
			IdentityStoreId: aws.String(c.identityStoreID),
			UserId:          aws.String(action.ResourceID),
		})
		return err
	case "group":
		_, err := c.ids.DeleteGroup(ctx, &identitystore.DeleteGroupInput{
			IdentityStoreId: aws.String(c.identityStoreID),
			GroupId:         aws.String(action.ResourceID),
		})
		return err
	case "membership":
		_, err := c.ids.DeleteGroupMembership(ctx, &identitystore.DeleteGroupMembershipInput{
			IdentityStoreId: aws.String(c.identityStoreID),
			MembershipId:    aws.String(action.ResourceID),
		})
		return err
	case "permission_set":
		_, err := c.sso.DeletePermissionSet(ctx, &ssoadmin.DeletePermissionSetInput{
			InstanceArn:      aws.String(c.instanceArn),
			PermissionSetArn: aws.String(action.ResourceID),
		})
		return err
	case "assignment":
		a, ok := action.Payload.(domain.Assignment)
		if !ok {
			return fmt.Errorf("assignment rollback requires the original assignment payload")
		}
		_, err := c.sso.DeleteAccountAssignment(ctx, &ssoadmin.DeleteAccountAssignmentInput{
			InstanceArn:      aws.String(c.instanceArn),
			TargetId:         aws.String(a.AccountID),
			TargetType:       ssotypes.TargetTypeAwsAccount,
			PermissionSetArn: aws.String(a.PermissionSetArn),
			PrincipalType:    ssotypes.PrincipalType(a.PrincipalType),
			PrincipalId:      aws.String(a.PrincipalID),
		})
		return err
	default:
		return fmt.Errorf("unknown rollback resource type %q", action.ResourceType)
	}
}
