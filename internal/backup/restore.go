package backup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/idcvault/idcvault/internal/core/domain"
	"github.com/idcvault/idcvault/internal/resilience"
	"github.com/idcvault/idcvault/internal/resilience/metrics"
)

// RestoreOrchestrator drives the restore workflow: retrieve, verify
// integrity, validate, then apply parts in dependency order. Applied changes
// go in the ledger with compensating actions so a failure can be rolled back.
type RestoreOrchestrator struct {
	store     Engine
	applier   Applier
	validator Validator
	reports   ReportSink

	executor *resilience.Executor
	recovery *resilience.RecoveryEngine
	rollback *resilience.RollbackEngine
	reporter *resilience.Reporter
	registry *resilience.Registry
	opts     Options
}

// NewRestoreOrchestrator wires a restore workflow.
func NewRestoreOrchestrator(store Engine, applier Applier, validator Validator, reports ReportSink, registry *resilience.Registry, opts Options) *RestoreOrchestrator {
	parts := make([]string, 0, len(domain.AllParts()))
	for _, p := range domain.AllParts() {
		parts = append(parts, string(p))
	}
	return &RestoreOrchestrator{
		store:     store,
		applier:   applier,
		validator: validator,
		reports:   reports,
		executor:  resilience.NewExecutor(),
		recovery:  resilience.NewRecoveryEngine(parts),
		rollback:  resilience.NewRollbackEngine(applier),
		reporter:  resilience.NewReporter(),
		registry:  registry,
		opts:      opts,
	}
}

// Run applies the identified snapshot. DryRun previews the apply plan
// without touching the directory.
func (o *RestoreOrchestrator) Run(ctx context.Context, snapshotID string) *OperationResult {
	opID := uuid.New().String()
	state := resilience.NewOperationState(opID, "restore")
	start := time.Now()

	result, rec := o.run(ctx, state, snapshotID)
	state.Finish(result.Success)
	if o.registry != nil {
		o.registry.Put(state)
	}

	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	metrics.OperationDuration.WithLabelValues("restore", outcome).Observe(time.Since(start).Seconds())

	if rec != nil {
		o.finalize(ctx, state, result, rec)
	}
	return result
}

func (o *RestoreOrchestrator) run(ctx context.Context, state *resilience.OperationState, snapshotID string) (*OperationResult, *resilience.ErrorRecord) {
	result := &OperationResult{OperationID: state.OperationID, SnapshotID: snapshotID}

	var snap *domain.Snapshot
	if rec := o.step(ctx, state, "retrieve_snapshot", func(ctx context.Context) (any, error) {
		return o.store.Retrieve(ctx, snapshotID)
	}, func(v any) {
		snap = v.(*domain.Snapshot)
		state.AddCheckpoint("retrieved", snapshotID)
	}); rec != nil {
		return result, rec
	}

	if rec := o.step(ctx, state, "verify_integrity", func(ctx context.Context) (any, error) {
		vr, err := o.store.VerifyIntegrity(ctx, snapshotID)
		if err != nil {
			return nil, err
		}
		if !vr.IsValid {
			return nil, fmt.Errorf("%w: %s", resilience.ErrCorruptPayload, strings.Join(vr.Errors, "; "))
		}
		return vr, nil
	}, func(any) {
		state.AddCheckpoint("integrity_verified", snapshotID)
	}); rec != nil {
		return result, rec
	}

	if rec := o.step(ctx, state, "validate_payload", func(ctx context.Context) (any, error) {
		vr := o.validator.Validate(snap)
		if !vr.IsValid {
			return nil, fmt.Errorf("%w: %s", resilience.ErrInvalidPayload, strings.Join(vr.Errors, "; "))
		}
		return vr, nil
	}, nil); rec != nil {
		return result, rec
	}

	if o.opts.DryRun {
		result.Success = true
		result.Message = fmt.Sprintf("dry run: would apply %d users, %d groups, %d permission sets, %d assignments",
			len(snap.Users), len(snap.Groups), len(snap.PermissionSets), len(snap.Assignments))
		return result, nil
	}

	plan := newRestorePlan(snap)
	if rec := o.applyUsers(ctx, state, plan); rec != nil {
		return result, rec
	}
	if rec := o.applyGroups(ctx, state, plan); rec != nil {
		return result, rec
	}
	if rec := o.applyPermissionSets(ctx, state, plan); rec != nil {
		return result, rec
	}
	if rec := o.applyAssignments(ctx, state, plan); rec != nil {
		return result, rec
	}

	state.AddCheckpoint("applied_all", len(state.Changes))
	result.Success = true
	result.Message = fmt.Sprintf("restore complete: %d changes applied", len(state.Changes))
	return result, nil
}

// restorePlan maps snapshot-era identifiers to the ids the directory hands
// back as resources are recreated.
type restorePlan struct {
	snap    *domain.Snapshot
	userIDs map[string]string // old user id -> new
	groupID map[string]string // old group id -> new
	psArns  map[string]string // old permission set arn -> new
}

func newRestorePlan(snap *domain.Snapshot) *restorePlan {
	return &restorePlan{
		snap:    snap,
		userIDs: make(map[string]string),
		groupID: make(map[string]string),
		psArns:  make(map[string]string),
	}
}

func (o *RestoreOrchestrator) applyUsers(ctx context.Context, state *resilience.OperationState, plan *restorePlan) *resilience.ErrorRecord {
	for _, user := range plan.snap.Users {
		if rec := o.step(ctx, state, "apply_user:"+user.UserName, func(ctx context.Context) (any, error) {
			return o.applier.CreateUser(ctx, user)
		}, func(v any) {
			newID := v.(string)
			plan.userIDs[user.UserID] = newID
			state.AddChange("user", newID, "create", nil, user)
			state.AddRollbackAction(resilience.RollbackAction{
				Kind: resilience.ActionDelete, ResourceType: "user", ResourceID: newID,
			})
		}); rec != nil {
			return rec
		}
	}
	state.AddCheckpoint("applied_users", len(plan.snap.Users))
	return nil
}

func (o *RestoreOrchestrator) applyGroups(ctx context.Context, state *resilience.OperationState, plan *restorePlan) *resilience.ErrorRecord {
	for _, group := range plan.snap.Groups {
		if rec := o.step(ctx, state, "apply_group:"+group.DisplayName, func(ctx context.Context) (any, error) {
			return o.applier.CreateGroup(ctx, group)
		}, func(v any) {
			newID := v.(string)
			plan.groupID[group.GroupID] = newID
			state.AddChange("group", newID, "create", nil, group)
			state.AddRollbackAction(resilience.RollbackAction{
				Kind: resilience.ActionDelete, ResourceType: "group", ResourceID: newID,
			})
		}); rec != nil {
			return rec
		}

		newGroupID := plan.groupID[group.GroupID]
		for _, oldUserID := range group.MemberIDs {
			userID, ok := plan.userIDs[oldUserID]
			if !ok {
				slog.Warn("Skipping membership for unmapped user", "group", group.DisplayName, "user_id", oldUserID)
				continue
			}
			if rec := o.step(ctx, state, "apply_membership:"+group.DisplayName, func(ctx context.Context) (any, error) {
				return o.applier.AddGroupMember(ctx, newGroupID, userID)
			}, func(v any) {
				membershipID := v.(string)
				state.AddChange("membership", membershipID, "create", nil, userID)
				state.AddRollbackAction(resilience.RollbackAction{
					Kind: resilience.ActionDelete, ResourceType: "membership", ResourceID: membershipID,
				})
			}); rec != nil {
				return rec
			}
		}
	}
	state.AddCheckpoint("applied_groups", len(plan.snap.Groups))
	return nil
}

func (o *RestoreOrchestrator) applyPermissionSets(ctx context.Context, state *resilience.OperationState, plan *restorePlan) *resilience.ErrorRecord {
	for _, ps := range plan.snap.PermissionSets {
		if rec := o.step(ctx, state, "apply_permission_set:"+ps.Name, func(ctx context.Context) (any, error) {
			return o.applier.CreatePermissionSet(ctx, ps)
		}, func(v any) {
			newArn := v.(string)
			plan.psArns[ps.Arn] = newArn
			state.AddChange("permission_set", newArn, "create", nil, ps)
			state.AddRollbackAction(resilience.RollbackAction{
				Kind: resilience.ActionDelete, ResourceType: "permission_set", ResourceID: newArn,
			})
		}); rec != nil {
			return rec
		}
	}
	state.AddCheckpoint("applied_permission_sets", len(plan.snap.PermissionSets))
	return nil
}

func (o *RestoreOrchestrator) applyAssignments(ctx context.Context, state *resilience.OperationState, plan *restorePlan) *resilience.ErrorRecord {
	for _, a := range plan.snap.Assignments {
		mapped := a
		if arn, ok := plan.psArns[a.PermissionSetArn]; ok {
			mapped.PermissionSetArn = arn
		}
		switch a.PrincipalType {
		case "USER":
			if id, ok := plan.userIDs[a.PrincipalID]; ok {
				mapped.PrincipalID = id
			}
		case "GROUP":
			if id, ok := plan.groupID[a.PrincipalID]; ok {
				mapped.PrincipalID = id
			}
		}

		if rec := o.step(ctx, state, "apply_assignment:"+mapped.AccountID, func(ctx context.Context) (any, error) {
			return nil, o.applier.CreateAssignment(ctx, mapped)
		}, func(any) {
			id := mapped.PrincipalID + "@" + mapped.AccountID
			state.AddChange("assignment", id, "create", nil, mapped)
			state.AddRollbackAction(resilience.RollbackAction{
				Kind: resilience.ActionDelete, ResourceType: "assignment", ResourceID: id, Payload: mapped,
			})
		}); rec != nil {
			return rec
		}
	}
	state.AddCheckpoint("applied_assignments", len(plan.snap.Assignments))
	return nil
}

func (o *RestoreOrchestrator) step(ctx context.Context, state *resilience.OperationState, name string, op resilience.Operation, onSuccess func(any)) *resilience.ErrorRecord {
	opctx := resilience.OpContext{
		OperationID:   state.OperationID,
		OperationType: state.OperationType,
		StepName:      name,
	}
	v, err := o.executor.Execute(ctx, op, opctx, o.opts.Policy)
	if err != nil {
		return resilience.Classify(err, opctx)
	}
	if onSuccess != nil {
		onSuccess(v)
	}
	return nil
}

// finalize folds partial recovery and best-effort rollback into the terminal
// result, then always persists a report.
func (o *RestoreOrchestrator) finalize(ctx context.Context, state *resilience.OperationState, result *OperationResult, rec *resilience.ErrorRecord) {
	result.Errors = append(result.Errors, rec)

	if rec.Recoverable && rec.Category != resilience.CategoryValidation {
		recovery := o.recovery.Recover(state.OperationType, state, rec)
		result.Partial = &recovery
	}

	if o.opts.RollbackOnFailure && len(state.RollbackActions) > 0 {
		rb := o.rollback.Rollback(ctx, state)
		result.Rollback = &rb
		slog.Info("Rollback finished",
			"operation_id", state.OperationID,
			"reverted", rb.RevertedCount,
			"total", rb.TotalCount,
			"success", rb.Success)
	}

	opctx := resilience.OpContext{
		OperationID:   state.OperationID,
		OperationType: state.OperationType,
		StepName:      rec.Context.StepName,
	}
	report := o.reporter.Report(result.Errors, opctx)
	result.ReportID = report.ReportID
	if o.reports != nil {
		if err := o.reports.Save(ctx, report, o.opts.ReportTTL); err != nil {
			slog.Warn("Failed to persist error report", "report_id", report.ReportID, "error", err)
		}
	}

	result.Message = fmt.Sprintf("restore failed at step %s: %s", rec.Context.StepName, rec.Message)
	slog.Error("Restore failed",
		"operation_id", state.OperationID,
		"step", rec.Context.StepName,
		"category", rec.Category,
		"report_id", report.ReportID)
}
