package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/idcvault/idcvault/internal/core/domain"
	"github.com/idcvault/idcvault/internal/resilience"
	"github.com/idcvault/idcvault/internal/resilience/metrics"
)

// Options tunes both orchestrators.
type Options struct {
	Policy            resilience.RetryPolicy
	ReportTTL         time.Duration
	RollbackOnFailure bool
	DryRun            bool
}

// DefaultOptions returns the standard workflow settings.
func DefaultOptions() Options {
	return Options{
		Policy:            resilience.DefaultRetryPolicy(),
		ReportTTL:         resilience.DefaultRetention,
		RollbackOnFailure: true,
	}
}

// Orchestrator drives the backup workflow: validate, collect each part,
// verify, persist. Every step runs through the retry executor and each
// success is checkpointed so a terminal failure can still be salvaged.
type Orchestrator struct {
	collector Collector
	store     Engine
	validator Validator
	reports   ReportSink

	executor *resilience.Executor
	recovery *resilience.RecoveryEngine
	reporter *resilience.Reporter
	registry *resilience.Registry
	opts     Options
}

// Engine is the storage dependency, re-declared here to keep the orchestrator
// importable without the storage package.
type Engine interface {
	Store(ctx context.Context, snap *domain.Snapshot) (string, error)
	Retrieve(ctx context.Context, id string) (*domain.Snapshot, error)
	VerifyIntegrity(ctx context.Context, id string) (domain.ValidationResult, error)
}

// NewOrchestrator wires a backup workflow.
func NewOrchestrator(collector Collector, store Engine, validator Validator, reports ReportSink, registry *resilience.Registry, opts Options) *Orchestrator {
	parts := make([]string, 0, len(domain.AllParts()))
	for _, p := range domain.AllParts() {
		parts = append(parts, string(p))
	}
	return &Orchestrator{
		collector: collector,
		store:     store,
		validator: validator,
		reports:   reports,
		executor:  resilience.NewExecutor(),
		recovery:  resilience.NewRecoveryEngine(parts),
		reporter:  resilience.NewReporter(),
		registry:  registry,
		opts:      opts,
	}
}

// Run executes one backup. The returned result is terminal: all retries,
// partial recovery, and reporting have already happened.
func (o *Orchestrator) Run(ctx context.Context, identityStoreID, instanceArn string) *OperationResult {
	opID := uuid.New().String()
	state := resilience.NewOperationState(opID, "backup")
	start := time.Now()

	snap := &domain.Snapshot{
		ID:              opID,
		IdentityStoreID: identityStoreID,
		InstanceArn:     instanceArn,
		Status:          domain.SnapshotStatusComplete,
	}

	result, rec := o.run(ctx, state, snap)
	state.Finish(result.Success)
	// Registered only once finished: the registry shares states across
	// goroutines and must never see one still being written.
	if o.registry != nil {
		o.registry.Put(state)
	}

	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	metrics.OperationDuration.WithLabelValues("backup", outcome).Observe(time.Since(start).Seconds())

	if rec != nil {
		o.finalize(ctx, state, snap, result, rec)
	}
	return result
}

func (o *Orchestrator) run(ctx context.Context, state *resilience.OperationState, snap *domain.Snapshot) (*OperationResult, *resilience.ErrorRecord) {
	result := &OperationResult{OperationID: state.OperationID}

	// validate_connection
	if rec := o.step(ctx, state, "validate_connection", func(ctx context.Context) (any, error) {
		vr := o.collector.ValidateConnection(ctx)
		if !vr.IsValid {
			return nil, fmt.Errorf("%w: %s", resilience.ErrConnectionInvalid, strings.Join(vr.Errors, "; "))
		}
		return vr, nil
	}, nil); rec != nil {
		return result, rec
	}

	// collect each part, checkpointing as we go
	type collectStep struct {
		part    domain.ResourcePart
		collect func(context.Context) (any, error)
		assign  func(any)
	}
	steps := []collectStep{
		{domain.PartUsers,
			func(ctx context.Context) (any, error) { return o.collector.CollectUsers(ctx) },
			func(v any) { snap.Users = v.([]domain.User) }},
		{domain.PartGroups,
			func(ctx context.Context) (any, error) { return o.collector.CollectGroups(ctx) },
			func(v any) { snap.Groups = v.([]domain.Group) }},
		{domain.PartPermissionSets,
			func(ctx context.Context) (any, error) { return o.collector.CollectPermissionSets(ctx) },
			func(v any) { snap.PermissionSets = v.([]domain.PermissionSet) }},
		{domain.PartAssignments,
			func(ctx context.Context) (any, error) { return o.collector.CollectAssignments(ctx) },
			func(v any) { snap.Assignments = v.([]domain.Assignment) }},
	}
	for _, s := range steps {
		stepName := "collect_" + string(s.part)
		checkpoint := resilience.CheckpointPrefix + string(s.part)
		if rec := o.step(ctx, state, stepName, s.collect, func(v any) {
			s.assign(v)
			state.AddCheckpoint(checkpoint, v)
			slog.Info("Collected part", "part", s.part, "count", snap.PartCount(s.part))
		}); rec != nil {
			return result, rec
		}
	}

	// verify_snapshot
	if rec := o.step(ctx, state, "verify_snapshot", func(ctx context.Context) (any, error) {
		vr := o.validator.Validate(snap)
		if !vr.IsValid {
			return nil, fmt.Errorf("%w: %s", resilience.ErrInvalidPayload, strings.Join(vr.Errors, "; "))
		}
		return vr, nil
	}, nil); rec != nil {
		return result, rec
	}

	// persist
	if rec := o.step(ctx, state, "persist", func(ctx context.Context) (any, error) {
		return o.store.Store(ctx, snap)
	}, func(v any) {
		result.SnapshotID = v.(string)
		state.AddCheckpoint("persisted", result.SnapshotID)
		metrics.SnapshotsStored.WithLabelValues(string(snap.Status)).Inc()
	}); rec != nil {
		return result, rec
	}

	result.Success = true
	result.Message = fmt.Sprintf("backup complete: %d records in snapshot %s", snap.TotalRecords(), result.SnapshotID)
	return result, nil
}

// step runs one workflow step through the retry executor. A nil return means
// the step succeeded and onSuccess (if any) has run.
func (o *Orchestrator) step(ctx context.Context, state *resilience.OperationState, name string, op resilience.Operation, onSuccess func(any)) *resilience.ErrorRecord {
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

// finalize turns a terminal failure into an actionable result: optional
// partial recovery, then always a persisted report.
func (o *Orchestrator) finalize(ctx context.Context, state *resilience.OperationState, snap *domain.Snapshot, result *OperationResult, rec *resilience.ErrorRecord) {
	result.Errors = append(result.Errors, rec)

	if rec.Recoverable && rec.Category != resilience.CategoryValidation {
		recovery := o.recovery.Recover(state.OperationType, state, rec)
		result.Partial = &recovery
		if recovery.Success {
			o.persistPartial(ctx, snap, result, recovery)
		}
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

	result.Message = fmt.Sprintf("backup failed at step %s: %s", rec.Context.StepName, rec.Message)
	slog.Error("Backup failed",
		"operation_id", state.OperationID,
		"step", rec.Context.StepName,
		"category", rec.Category,
		"report_id", report.ReportID)
}

// persistPartial stores whatever parts were salvaged, flagged partial. A
// storage failure here is reported but never masks the original error.
func (o *Orchestrator) persistPartial(ctx context.Context, snap *domain.Snapshot, result *OperationResult, recovery resilience.RecoveryResult) {
	partial := &domain.Snapshot{
		ID:              snap.ID,
		IdentityStoreID: snap.IdentityStoreID,
		InstanceArn:     snap.InstanceArn,
		Status:          domain.SnapshotStatusPartial,
	}
	for part, payload := range recovery.Payload {
		switch domain.ResourcePart(part) {
		case domain.PartUsers:
			partial.Users = payload.([]domain.User)
		case domain.PartGroups:
			partial.Groups = payload.([]domain.Group)
		case domain.PartPermissionSets:
			partial.PermissionSets = payload.([]domain.PermissionSet)
		case domain.PartAssignments:
			partial.Assignments = payload.([]domain.Assignment)
		}
	}
	for _, part := range recovery.MissingParts {
		partial.MissingParts = append(partial.MissingParts, domain.ResourcePart(part))
	}

	id, err := o.store.Store(ctx, partial)
	if err != nil {
		var storeRec *resilience.ErrorRecord
		if !errors.As(err, &storeRec) {
			storeRec = resilience.Classify(err, resilience.OpContext{
				OperationID:   snap.ID,
				OperationType: "backup",
				StepName:      "persist_partial",
			})
		}
		result.Errors = append(result.Errors, storeRec)
		slog.Warn("Failed to persist partial snapshot", "error", err)
		return
	}
	result.SnapshotID = id
	metrics.SnapshotsStored.WithLabelValues(string(domain.SnapshotStatusPartial)).Inc()
	slog.Info("Persisted partial snapshot", "snapshot_id", id, "missing_parts", recovery.MissingParts)
}
