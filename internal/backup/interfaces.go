package backup

import (
	"context"
	"time"

	"github.com/idcvault/idcvault/internal/core/domain"
	"github.com/idcvault/idcvault/internal/resilience"
)

// Collector reads the directory configuration part by part.
type Collector interface {
	// ValidateConnection checks reachability before a workflow starts
	ValidateConnection(ctx context.Context) domain.ValidationResult

	// CollectUsers returns every user
	CollectUsers(ctx context.Context) ([]domain.User, error)

	// CollectGroups returns every group with memberships
	CollectGroups(ctx context.Context) ([]domain.Group, error)

	// CollectPermissionSets returns every permission set
	CollectPermissionSets(ctx context.Context) ([]domain.PermissionSet, error)

	// CollectAssignments returns every account assignment
	CollectAssignments(ctx context.Context) ([]domain.Assignment, error)
}

// Applier writes directory configuration back during a restore. It doubles as
// the rollback dispatcher for compensating actions.
type Applier interface {
	resilience.ActionApplier

	// CreateUser recreates a user, returning its new id
	CreateUser(ctx context.Context, user domain.User) (string, error)

	// CreateGroup recreates a group, returning its new id
	CreateGroup(ctx context.Context, group domain.Group) (string, error)

	// AddGroupMember attaches a user, returning the membership id
	AddGroupMember(ctx context.Context, groupID, userID string) (string, error)

	// CreatePermissionSet recreates a permission set, returning its new ARN
	CreatePermissionSet(ctx context.Context, ps domain.PermissionSet) (string, error)

	// CreateAssignment grants a principal a permission set on an account
	CreateAssignment(ctx context.Context, a domain.Assignment) error
}

// Validator checks a snapshot payload before it is persisted or applied.
type Validator interface {
	Validate(snap *domain.Snapshot) domain.ValidationResult
}

// ReportSink persists error reports for later lookup by id.
type ReportSink interface {
	Save(ctx context.Context, report *resilience.Report, ttl time.Duration) error
}

// OperationResult is the composite terminal result of a workflow run.
type OperationResult struct {
	Success     bool                       `json:"success"`
	OperationID string                     `json:"operation_id"`
	Message     string                     `json:"message"`
	Errors      []*resilience.ErrorRecord  `json:"errors,omitempty"`
	ReportID    string                     `json:"report_id,omitempty"`
	SnapshotID  string                     `json:"snapshot_id,omitempty"`
	Partial     *resilience.RecoveryResult `json:"partial,omitempty"`
	Rollback    *resilience.RollbackResult `json:"rollback,omitempty"`
}
