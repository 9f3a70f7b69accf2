package resilience

import "time"

// Checkpoint is an immutable snapshot of one completed sub-step's output.
type Checkpoint struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Change is one ledger entry, written only after the remote side effect has
// durably taken effect.
type Change struct {
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Action       string    `json:"action"`
	OldValue     any       `json:"old_value,omitempty"`
	NewValue     any       `json:"new_value,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ActionKind is the verb of a compensating action.
type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
)

// RollbackAction is a recorded compensating command. Plain data rather than a
// closure so it can be logged, inspected, and serialized for diagnostics.
type RollbackAction struct {
	Kind         ActionKind `json:"kind"`
	ResourceType string     `json:"resource_type"`
	ResourceID   string     `json:"resource_id"`
	Payload      any        `json:"payload,omitempty"`
}

// OperationState tracks one workflow instance: checkpoints for partial
// recovery, the applied-changes ledger, and pending compensating actions.
// It is exclusively owned by the workflow that created it, so it carries no
// internal locking. All appends are O(1) amortized.
type OperationState struct {
	OperationID   string    `json:"operation_id"`
	OperationType string    `json:"operation_type"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time,omitzero"`

	Checkpoints     []Checkpoint     `json:"checkpoints"`
	Changes         []Change         `json:"changes"`
	RollbackActions []RollbackAction `json:"rollback_actions"`

	Completed bool `json:"completed"`
	Succeeded bool `json:"succeeded"`

	now func() time.Time
}

// NewOperationState starts tracking a workflow instance.
func NewOperationState(operationID, operationType string) *OperationState {
	return newOperationStateAt(operationID, operationType, time.Now)
}

func newOperationStateAt(operationID, operationType string, now func() time.Time) *OperationState {
	return &OperationState{
		OperationID:   operationID,
		OperationType: operationType,
		StartTime:     now().UTC(),
		now:           now,
	}
}

// AddCheckpoint appends a timestamped checkpoint.
func (s *OperationState) AddCheckpoint(name string, payload any) {
	s.Checkpoints = append(s.Checkpoints, Checkpoint{
		Name:      name,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	})
}

// AddChange appends an applied change to the ledger.
func (s *OperationState) AddChange(resourceType, resourceID, action string, oldValue, newValue any) {
	s.Changes = append(s.Changes, Change{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		OldValue:     oldValue,
		NewValue:     newValue,
		Timestamp:    s.now().UTC(),
	})
}

// AddRollbackAction pushes a compensating command. Callers push in the same
// order changes were applied; execution is LIFO.
func (s *OperationState) AddRollbackAction(action RollbackAction) {
	s.RollbackActions = append(s.RollbackActions, action)
}

// Checkpoint returns the named checkpoint, or nil if none was recorded.
func (s *OperationState) Checkpoint(name string) *Checkpoint {
	for i := range s.Checkpoints {
		if s.Checkpoints[i].Name == name {
			return &s.Checkpoints[i]
		}
	}
	return nil
}

// Finish marks the workflow terminal. Further mutation is a caller bug.
func (s *OperationState) Finish(succeeded bool) {
	s.Completed = true
	s.Succeeded = succeeded
	s.EndTime = s.now().UTC()
}
