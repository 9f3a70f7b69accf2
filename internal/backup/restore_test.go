package backup

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/idcvault/idcvault/internal/core/domain"
	"github.com/idcvault/idcvault/internal/infra/storage/memory"
	"github.com/idcvault/idcvault/internal/resilience"
)

type fakeApplier struct {
	mu       sync.Mutex
	failKind string // resource kind whose create should fail
	failWith error

	seq         int
	created     []string // kind:id in apply order
	deleted     []string // kind:id in rollback order
	assignments []domain.Assignment
}

func (a *fakeApplier) create(kind string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failKind == kind {
		return "", a.failWith
	}
	a.seq++
	id := fmt.Sprintf("%s-new-%d", kind, a.seq)
	a.created = append(a.created, kind+":"+id)
	return id, nil
}

func (a *fakeApplier) CreateUser(ctx context.Context, user domain.User) (string, error) {
	return a.create("user")
}

func (a *fakeApplier) CreateGroup(ctx context.Context, group domain.Group) (string, error) {
	return a.create("group")
}

func (a *fakeApplier) AddGroupMember(ctx context.Context, groupID, userID string) (string, error) {
	return a.create("membership")
}

func (a *fakeApplier) CreatePermissionSet(ctx context.Context, ps domain.PermissionSet) (string, error) {
	return a.create("permission_set")
}

func (a *fakeApplier) CreateAssignment(ctx context.Context, asg domain.Assignment) error {
	_, err := a.create("assignment")
	if err == nil {
		a.mu.Lock()
		a.assignments = append(a.assignments, asg)
		a.mu.Unlock()
	}
	return err
}

func (a *fakeApplier) Apply(ctx context.Context, action resilience.RollbackAction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, action.ResourceType+":"+action.ResourceID)
	return nil
}

// seedSnapshot stores a small but fully cross-referenced snapshot: two users,
// one group containing the first, one permission set, one user assignment.
func seedSnapshot(t *testing.T, store *memory.Store) string {
	t.Helper()
	snap := &domain.Snapshot{
		IdentityStoreID: "d-123",
		InstanceArn:     "arn:sso",
		Status:          domain.SnapshotStatusComplete,
		Users: []domain.User{
			{UserID: "u-old-1", UserName: "alice"},
			{UserID: "u-old-2", UserName: "bob"},
		},
		Groups: []domain.Group{
			{GroupID: "g-old-1", DisplayName: "admins", MemberIDs: []string{"u-old-1"}},
		},
		PermissionSets: []domain.PermissionSet{
			{Arn: "arn:ps-old-1", Name: "ReadOnly"},
		},
		Assignments: []domain.Assignment{
			{AccountID: "111", PermissionSetArn: "arn:ps-old-1", PrincipalType: "USER", PrincipalID: "u-old-1"},
		},
	}
	id, err := store.Store(context.Background(), snap)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return id
}

func TestRestore_HappyPath(t *testing.T) {
	store := memory.NewStore()
	id := seedSnapshot(t, store)
	applier := &fakeApplier{}
	registry := resilience.NewRegistry(resilience.DefaultRetention)

	o := NewRestoreOrchestrator(store, applier, NewSnapshotValidator(), &fakeReportSink{}, registry, testOptions())
	result := o.Run(context.Background(), id)

	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if result.Rollback != nil {
		t.Error("no rollback expected on success")
	}

	want := []string{
		"user:user-new-1", "user:user-new-2",
		"group:group-new-3", "membership:membership-new-4",
		"permission_set:permission_set-new-5", "assignment:assignment-new-6",
	}
	if len(applier.created) != len(want) {
		t.Fatalf("created = %v", applier.created)
	}
	for i, c := range applier.created {
		if c != want[i] {
			t.Errorf("created[%d] = %s, want %s", i, c, want[i])
		}
	}

	// The assignment must be rewritten onto the recreated ids.
	asg := applier.assignments[0]
	if asg.PrincipalID != "user-new-1" || asg.PermissionSetArn != "permission_set-new-5" {
		t.Errorf("assignment not remapped: %+v", asg)
	}

	state := registry.Get(result.OperationID)
	if state == nil {
		t.Fatal("state missing from registry")
	}
	if len(state.Changes) != 6 || len(state.RollbackActions) != 6 {
		t.Errorf("ledger: %d changes, %d rollback actions", len(state.Changes), len(state.RollbackActions))
	}
}

func TestRestore_DryRunAppliesNothing(t *testing.T) {
	store := memory.NewStore()
	id := seedSnapshot(t, store)
	applier := &fakeApplier{}

	opts := testOptions()
	opts.DryRun = true
	o := NewRestoreOrchestrator(store, applier, NewSnapshotValidator(), &fakeReportSink{}, nil, opts)
	result := o.Run(context.Background(), id)

	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if len(applier.created) != 0 {
		t.Errorf("dry run applied changes: %v", applier.created)
	}
}

func TestRestore_RollbackRunsInReverseOrder(t *testing.T) {
	store := memory.NewStore()
	id := seedSnapshot(t, store)
	applier := &fakeApplier{
		failKind: "permission_set",
		failWith: &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"},
	}

	o := NewRestoreOrchestrator(store, applier, NewSnapshotValidator(), &fakeReportSink{}, nil, testOptions())
	result := o.Run(context.Background(), id)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Partial != nil {
		t.Error("non-recoverable failure must not produce a partial summary")
	}
	if result.Rollback == nil {
		t.Fatal("expected a rollback result")
	}
	if !result.Rollback.Success || result.Rollback.RevertedCount != 4 || result.Rollback.TotalCount != 4 {
		t.Errorf("rollback = %+v", result.Rollback)
	}

	// Compensations undo creations newest first.
	want := []string{
		"membership:membership-new-4", "group:group-new-3",
		"user:user-new-2", "user:user-new-1",
	}
	for i, d := range applier.deleted {
		if d != want[i] {
			t.Errorf("deleted[%d] = %s, want %s", i, d, want[i])
		}
	}
}

func TestRestore_RollbackCanBeDisabled(t *testing.T) {
	store := memory.NewStore()
	id := seedSnapshot(t, store)
	applier := &fakeApplier{
		failKind: "assignment",
		failWith: &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"},
	}

	opts := testOptions()
	opts.RollbackOnFailure = false
	o := NewRestoreOrchestrator(store, applier, NewSnapshotValidator(), &fakeReportSink{}, nil, opts)
	result := o.Run(context.Background(), id)

	if result.Success || result.Rollback != nil {
		t.Fatalf("result = %+v", result)
	}
	if len(applier.deleted) != 0 {
		t.Errorf("rollback ran despite being disabled: %v", applier.deleted)
	}
}

func TestRestore_RecoverableFailureSummarizesLedger(t *testing.T) {
	store := memory.NewStore()
	id := seedSnapshot(t, store)
	applier := &fakeApplier{
		failKind: "assignment",
		failWith: &smithy.GenericAPIError{Code: "ConflictException", Message: "already exists"},
	}

	sink := &fakeReportSink{}
	o := NewRestoreOrchestrator(store, applier, NewSnapshotValidator(), sink, nil, testOptions())
	result := o.Run(context.Background(), id)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Partial == nil || !result.Partial.Success {
		t.Fatalf("partial = %+v", result.Partial)
	}
	applied := result.Partial.AppliedByType
	if applied["user"] != 2 || applied["group"] != 1 || applied["membership"] != 1 || applied["permission_set"] != 1 {
		t.Errorf("applied = %v", applied)
	}
	if !result.Partial.RollbackAvailable {
		t.Error("rollback actions were recorded, summary should say so")
	}
	if result.Rollback == nil || result.Rollback.RevertedCount != 5 {
		t.Errorf("rollback = %+v", result.Rollback)
	}
	if len(sink.reports) != 1 {
		t.Error("expected one persisted report")
	}
}

func TestRestore_SnapshotNotFound(t *testing.T) {
	o := NewRestoreOrchestrator(memory.NewStore(), &fakeApplier{}, NewSnapshotValidator(), &fakeReportSink{}, nil, testOptions())
	result := o.Run(context.Background(), "nope")

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Rollback != nil {
		t.Error("nothing applied, nothing to roll back")
	}
	if result.ReportID == "" {
		t.Error("expected a report id")
	}
}

type corruptEngine struct {
	Engine
}

func (e corruptEngine) VerifyIntegrity(ctx context.Context, id string) (domain.ValidationResult, error) {
	return domain.Invalid("checksum mismatch"), nil
}

func TestRestore_CorruptSnapshotStopsBeforeApply(t *testing.T) {
	store := memory.NewStore()
	id := seedSnapshot(t, store)
	applier := &fakeApplier{}

	o := NewRestoreOrchestrator(corruptEngine{store}, applier, NewSnapshotValidator(), &fakeReportSink{}, nil, testOptions())
	result := o.Run(context.Background(), id)

	if result.Success {
		t.Fatal("expected failure")
	}
	if len(applier.created) != 0 {
		t.Errorf("applied despite corrupt snapshot: %v", applier.created)
	}
	rec := result.Errors[0]
	if rec.Category != resilience.CategoryStorage || rec.Severity != resilience.SeverityCritical {
		t.Errorf("record = %+v", rec)
	}
}
