package resilience

import (
	"fmt"
	"strings"

	"github.com/idcvault/idcvault/internal/resilience/metrics"
)

// CheckpointPrefix tags checkpoints that hold collected resource payloads.
const CheckpointPrefix = "collected_"

// RecoveryResult is the outcome of a partial-recovery attempt. A successful
// recovery never upgrades the enclosing operation's terminal status.
type RecoveryResult struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	Payload      map[string]any `json:"payload,omitempty"`
	MissingParts []string       `json:"missing_parts,omitempty"`

	// Mutation-style workflows report what was applied instead of a payload.
	AppliedByType     map[string]int `json:"applied_by_type,omitempty"`
	RollbackAvailable bool           `json:"rollback_available,omitempty"`
}

// RecoveryEngine reconstructs a best-effort partial result from what an
// operation durably recorded before failing. It never re-invokes anything.
type RecoveryEngine struct {
	// ExpectedParts is the full part set a collection workflow should produce.
	ExpectedParts []string
}

// NewRecoveryEngine creates an engine expecting the given collection parts.
func NewRecoveryEngine(expectedParts []string) *RecoveryEngine {
	return &RecoveryEngine{ExpectedParts: expectedParts}
}

// Recover selects a strategy by operation type: collection workflows are
// rebuilt from collected_<part> checkpoints, mutation workflows are summarized
// from the applied-changes ledger.
func (e *RecoveryEngine) Recover(operationType string, state *OperationState, rec *ErrorRecord) RecoveryResult {
	switch {
	case isCollectionType(operationType):
		return e.recoverCollection(state)
	default:
		return e.recoverMutation(state)
	}
}

func isCollectionType(operationType string) bool {
	return strings.Contains(operationType, "backup") || strings.Contains(operationType, "collect")
}

func (e *RecoveryEngine) recoverCollection(state *OperationState) RecoveryResult {
	payload := make(map[string]any)
	var missing []string

	for _, part := range e.ExpectedParts {
		cp := state.Checkpoint(CheckpointPrefix + part)
		if cp == nil {
			missing = append(missing, part)
			continue
		}
		payload[part] = cp.Payload
	}

	metrics.RecoveredParts.WithLabelValues(state.OperationType).Set(float64(len(payload)))

	if len(payload) == 0 {
		return RecoveryResult{
			Success:      false,
			Message:      "no recoverable data found in checkpoints",
			MissingParts: missing,
		}
	}

	return RecoveryResult{
		Success:      true,
		Message:      fmt.Sprintf("recovered %d of %d parts", len(payload), len(e.ExpectedParts)),
		Payload:      payload,
		MissingParts: missing,
	}
}

func (e *RecoveryEngine) recoverMutation(state *OperationState) RecoveryResult {
	applied := make(map[string]int)
	for _, c := range state.Changes {
		applied[c.ResourceType]++
	}

	return RecoveryResult{
		Success:           len(applied) > 0,
		Message:           fmt.Sprintf("%d changes applied across %d resource types", len(state.Changes), len(applied)),
		AppliedByType:     applied,
		RollbackAvailable: len(state.RollbackActions) > 0,
	}
}
