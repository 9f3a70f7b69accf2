package identitycenter

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	idstypes "github.com/aws/aws-sdk-go-v2/service/identitystore/types"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	"github.com/idcvault/idcvault/internal/core/domain"
)

// ValidateConnection checks that both APIs are reachable with the configured
// identifiers before a workflow starts mutating or reading at scale.
func (c *Client) ValidateConnection(ctx context.Context) domain.ValidationResult {
	result := domain.Valid()

	if c.identityStoreID == "" {
		result.AddError("identity_store_id is not configured")
	} else {
		_, err := c.ids.ListUsers(ctx, &identitystore.ListUsersInput{
			IdentityStoreId: aws.String(c.identityStoreID),
			MaxResults:      aws.Int32(1),
		})
		if err != nil {
			result.AddError(fmt.Sprintf("identity store unreachable: %v", err))
		}
	}

	if c.instanceArn == "" {
		result.AddWarning("sso_instance_arn is not configured; permission sets and assignments will be skipped")
	} else {
		_, err := c.sso.ListPermissionSets(ctx, &ssoadmin.ListPermissionSetsInput{
			InstanceArn: aws.String(c.instanceArn),
			MaxResults:  aws.Int32(1),
		})
		if err != nil {
			result.AddError(fmt.Sprintf("sso admin unreachable: %v", err))
		}
	}

	return result
}

// CollectUsers pages through every user in the identity store.
func (c *Client) CollectUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User

	p := identitystore.NewListUsersPaginator(c.ids, &identitystore.ListUsersInput{
		IdentityStoreId: aws.String(c.identityStoreID),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		for _, u := range page.Users {
			users = append(users, domain.User{
				UserID:      aws.ToString(u.UserId),
				UserName:    aws.ToString(u.UserName),
				DisplayName: aws.ToString(u.DisplayName),
				Email:       primaryEmail(u.Emails),
			})
		}
	}
	return users, nil
}

func primaryEmail(emails []idstypes.Email) string {
	for _, e := range emails {
		if e.Primary {
			return aws.ToString(e.Value)
		}
	}
	if len(emails) > 0 {
		return aws.ToString(emails[0].Value)
	}
	return ""
}

// CollectGroups pages through every group and its memberships.
func (c *Client) CollectGroups(ctx context.Context) ([]domain.Group, error) {
	var groups []domain.Group

	p := identitystore.NewListGroupsPaginator(c.ids, &identitystore.ListGroupsInput{
		IdentityStoreId: aws.String(c.identityStoreID),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list groups: %w", err)
		}
		for _, g := range page.Groups {
			group := domain.Group{
				GroupID:     aws.ToString(g.GroupId),
				DisplayName: aws.ToString(g.DisplayName),
				Description: aws.ToString(g.Description),
			}
			members, err := c.collectMembers(ctx, group.GroupID)
			if err != nil {
				return nil, err
			}
			group.MemberIDs = members
			groups = append(groups, group)
		}
	}
	return groups, nil
}

func (c *Client) collectMembers(ctx context.Context, groupID string) ([]string, error) {
	var members []string

	p := identitystore.NewListGroupMembershipsPaginator(c.ids, &identitystore.ListGroupMembershipsInput{
		IdentityStoreId: aws.String(c.identityStoreID),
		GroupId:         aws.String(groupID),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list memberships for group %s: %w", groupID, err)
		}
		for _, m := range page.GroupMemberships {
			if userID, ok := m.MemberId.(*idstypes.MemberIdMemberUserId); ok {
				members = append(members, userID.Value)
			}
		}
	}
	return members, nil
}

// CollectPermissionSets pages through and describes every permission set.
func (c *Client) CollectPermissionSets(ctx context.Context) ([]domain.PermissionSet, error) {
	if c.instanceArn == "" {
		return nil, nil
	}

	var sets []domain.PermissionSet

	p := ssoadmin.NewListPermissionSetsPaginator(c.sso, &ssoadmin.ListPermissionSetsInput{
		InstanceArn: aws.String(c.instanceArn),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list permission sets: %w", err)
		}
		for _, arn := range page.PermissionSets {
			desc, err := c.sso.DescribePermissionSet(ctx, &ssoadmin.DescribePermissionSetInput{
				InstanceArn:      aws.String(c.instanceArn),
				PermissionSetArn: aws.String(arn),
			})
			if err != nil {
				return nil, fmt.Errorf("describe permission set %s: %w", arn, err)
			}
			ps := desc.PermissionSet
			sets = append(sets, domain.PermissionSet{
				Arn:             aws.ToString(ps.PermissionSetArn),
				Name:            aws.ToString(ps.Name),
				Description:     aws.ToString(ps.Description),
				SessionDuration: aws.ToString(ps.SessionDuration),
				RelayState:      aws.ToString(ps.RelayState),
			})
		}
	}
	return sets, nil
}

// CollectAssignments walks every provisioned account of every permission set.
func (c *Client) CollectAssignments(ctx context.Context) ([]domain.Assignment, error) {
	if c.instanceArn == "" {
		return nil, nil
	}

	sets, err := c.CollectPermissionSets(ctx)
	if err != nil {
		return nil, err
	}

	var assignments []domain.Assignment
	for _, ps := range sets {
		accounts, err := c.provisionedAccounts(ctx, ps.Arn)
		if err != nil {
			return nil, err
		}
		for _, account := range accounts {
			p := ssoadmin.NewListAccountAssignmentsPaginator(c.sso, &ssoadmin.ListAccountAssignmentsInput{
				InstanceArn:      aws.String(c.instanceArn),
				AccountId:        aws.String(account),
				PermissionSetArn: aws.String(ps.Arn),
			})
			for p.HasMorePages() {
				page, err := p.NextPage(ctx)
				if err != nil {
					return nil, fmt.Errorf("list assignments for %s on %s: %w", ps.Arn, account, err)
				}
				for _, a := range page.AccountAssignments {
					assignments = append(assignments, domain.Assignment{
						AccountID:        aws.ToString(a.AccountId),
						PermissionSetArn: aws.ToString(a.PermissionSetArn),
						PrincipalType:    string(a.PrincipalType),
						PrincipalID:      aws.ToString(a.PrincipalId),
					})
				}
			}
		}
	}
	return assignments, nil
}

func (c *Client) provisionedAccounts(ctx context.Context, permissionSetArn string) ([]string, error) {
	var accounts []string

	p := ssoadmin.NewListAccountsForProvisionedPermissionSetPaginator(c.sso,
		&ssoadmin.ListAccountsForProvisionedPermissionSetInput{
			InstanceArn:      aws.String(c.instanceArn),
			PermissionSetArn: aws.String(permissionSetArn),
		})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list provisioned accounts for %s: %w", permissionSetArn, err)
		}
		accounts = append(accounts, page.AccountIds...)
	}
	return accounts, nil
}
