package resilience

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/idcvault/idcvault/internal/resilience/metrics"
)

// ActionApplier executes one compensating command against the remote service.
// The orchestrator supplies the real implementation; tests supply fakes.
type ActionApplier interface {
	Apply(ctx context.Context, action RollbackAction) error
}

// ActionResult records the outcome of one compensating action.
type ActionResult struct {
	Action RollbackAction `json:"action"`
	Error  string         `json:"error,omitempty"`
}

// RollbackResult is the outcome of a rollback pass. Rollback is best-effort
// and non-atomic: partial success is a valid, reportable outcome.
type RollbackResult struct {
	Success       bool           `json:"success"`
	ActionResults []ActionResult `json:"action_results"`
	RevertedCount int            `json:"reverted_count"`
	TotalCount    int            `json:"total_count"`
}

// RollbackEngine undoes partially applied changes via compensating actions.
type RollbackEngine struct {
	applier ActionApplier
}

// NewRollbackEngine creates an engine dispatching through the given applier.
func NewRollbackEngine(applier ActionApplier) *RollbackEngine {
	return &RollbackEngine{applier: applier}
}

// Rollback executes the recorded actions in strict reverse-of-registration
// order. Each failure is caught independently; the remaining actions still run.
func (e *RollbackEngine) Rollback(ctx context.Context, state *OperationState) RollbackResult {
	actions := state.RollbackActions
	result := RollbackResult{
		Success:    true,
		TotalCount: len(actions),
	}

	for i := len(actions) - 1; i >= 0; i-- {
		action := actions[i]
		if err := e.applier.Apply(ctx, action); err != nil {
			slog.Warn("Rollback action failed",
				"kind", action.Kind,
				"resource_type", action.ResourceType,
				"resource_id", action.ResourceID,
				"error", err)
			metrics.RollbackActions.WithLabelValues("failed").Inc()
			result.Success = false
			result.ActionResults = append(result.ActionResults, ActionResult{
				Action: action,
				Error:  fmt.Sprintf("%s %s/%s: %v", action.Kind, action.ResourceType, action.ResourceID, err),
			})
			continue
		}
		metrics.RollbackActions.WithLabelValues("reverted").Inc()
		result.RevertedCount++
		result.ActionResults = append(result.ActionResults, ActionResult{Action: action})
	}

	return result
}
