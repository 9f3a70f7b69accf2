package backup

import (
	"fmt"

	"github.com/idcvault/idcvault/internal/core/domain"
)

// SnapshotValidator runs structural and referential checks over a snapshot.
type SnapshotValidator struct{}

// NewSnapshotValidator creates the default validator.
func NewSnapshotValidator() *SnapshotValidator {
	return &SnapshotValidator{}
}

// Validate checks identifiers and cross-part references. Dangling references
// in a partial snapshot degrade to warnings only when the referenced part is
// missing entirely.
func (v *SnapshotValidator) Validate(snap *domain.Snapshot) domain.ValidationResult {
	result := domain.Valid()

	if snap == nil {
		result.AddError("snapshot is nil")
		return result
	}
	if snap.IdentityStoreID == "" {
		result.AddError("snapshot has no identity store id")
	}

	userIDs := make(map[string]bool, len(snap.Users))
	for i, u := range snap.Users {
		if u.UserID == "" || u.UserName == "" {
			result.AddError(fmt.Sprintf("user[%d] missing id or name", i))
			continue
		}
		if userIDs[u.UserID] {
			result.AddError(fmt.Sprintf("duplicate user id %s", u.UserID))
		}
		userIDs[u.UserID] = true
	}

	usersMissing := snap.PartMissing(domain.PartUsers)
	groupIDs := make(map[string]bool, len(snap.Groups))
	for i, g := range snap.Groups {
		if g.GroupID == "" || g.DisplayName == "" {
			result.AddError(fmt.Sprintf("group[%d] missing id or name", i))
			continue
		}
		if groupIDs[g.GroupID] {
			result.AddError(fmt.Sprintf("duplicate group id %s", g.GroupID))
		}
		groupIDs[g.GroupID] = true
		for _, member := range g.MemberIDs {
			if userIDs[member] {
				continue
			}
			if usersMissing {
				result.AddWarning(fmt.Sprintf("group %s references user %s outside this partial snapshot", g.GroupID, member))
			} else {
				result.AddError(fmt.Sprintf("group %s references unknown user %s", g.GroupID, member))
			}
		}
	}

	psArns := make(map[string]bool, len(snap.PermissionSets))
	for i, ps := range snap.PermissionSets {
		if ps.Arn == "" || ps.Name == "" {
			result.AddError(fmt.Sprintf("permission_set[%d] missing arn or name", i))
			continue
		}
		psArns[ps.Arn] = true
	}

	psMissing := snap.PartMissing(domain.PartPermissionSets)
	for i, a := range snap.Assignments {
		if a.AccountID == "" || a.PrincipalID == "" || a.PermissionSetArn == "" {
			result.AddError(fmt.Sprintf("assignment[%d] missing account, principal, or permission set", i))
			continue
		}
		if psArns[a.PermissionSetArn] {
			continue
		}
		if psMissing {
			result.AddWarning(fmt.Sprintf("assignment[%d] references permission set outside this partial snapshot", i))
		} else {
			result.AddError(fmt.Sprintf("assignment[%d] references unknown permission set %s", i, a.PermissionSetArn))
		}
	}

	return result
}
