package domain

// ResourcePart identifies one backed-up slice of the directory configuration.
type ResourcePart string

const (
	PartUsers          ResourcePart = "users"
	PartGroups         ResourcePart = "groups"
	PartPermissionSets ResourcePart = "permission_sets"
	PartAssignments    ResourcePart = "assignments"
)

// AllParts lists every resource part in collection (and restore dependency) order.
func AllParts() []ResourcePart {
	return []ResourcePart{PartUsers, PartGroups, PartPermissionSets, PartAssignments}
}

// User is a directory user as collected from the identity store.
type User struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// Group is a directory group with its member user IDs.
type Group struct {
	GroupID     string   `json:"group_id"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description,omitempty"`
	MemberIDs   []string `json:"member_ids,omitempty"`
}

// PermissionSet is a named bundle of access policy attached to the SSO instance.
type PermissionSet struct {
	Arn             string `json:"arn"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	SessionDuration string `json:"session_duration,omitempty"`
	RelayState      string `json:"relay_state,omitempty"`
}

// Assignment grants a principal a permission set on a target account.
type Assignment struct {
	AccountID        string `json:"account_id"`
	PermissionSetArn string `json:"permission_set_arn"`
	PrincipalType    string `json:"principal_type"` // USER or GROUP
	PrincipalID      string `json:"principal_id"`
}
