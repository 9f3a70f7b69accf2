package resilience

import (
	"errors"
	"testing"
)

var testParts = []string{"users", "groups", "permission_sets", "assignments"}

func TestRecover_CollectionPartial(t *testing.T) {
	s := NewOperationState("op-1", "backup")
	s.AddCheckpoint("collected_users", []string{"u-1", "u-2"})
	s.AddCheckpoint("collected_groups", []string{"g-1"})

	e := NewRecoveryEngine(testParts)
	res := e.Recover("backup", s, Classify(errors.New("boom"), OpContext{}))

	if !res.Success {
		t.Fatal("expected recovery success with two parts present")
	}
	if len(res.Payload) != 2 {
		t.Errorf("payload parts = %d, want 2", len(res.Payload))
	}
	want := map[string]bool{"permission_sets": true, "assignments": true}
	if len(res.MissingParts) != 2 {
		t.Fatalf("missing = %v", res.MissingParts)
	}
	for _, p := range res.MissingParts {
		if !want[p] {
			t.Errorf("unexpected missing part %q", p)
		}
	}
}

func TestRecover_CollectionNothingRecorded(t *testing.T) {
	s := NewOperationState("op-2", "backup")
	s.AddCheckpoint("validate_connection", nil)

	e := NewRecoveryEngine(testParts)
	res := e.Recover("backup", s, nil)

	// "No recoverable data" is a failed recovery; the enclosing operation
	// stays failed either way.
	if res.Success {
		t.Fatal("expected failure with no collected checkpoints")
	}
	if len(res.MissingParts) != len(testParts) {
		t.Errorf("missing = %v", res.MissingParts)
	}
}

func TestRecover_MutationSummary(t *testing.T) {
	s := NewOperationState("op-3", "restore")
	s.AddChange("user", "u-1", "create", nil, nil)
	s.AddChange("user", "u-2", "create", nil, nil)
	s.AddChange("group", "g-1", "update", "old", "new")
	s.AddRollbackAction(RollbackAction{Kind: ActionDelete, ResourceType: "user", ResourceID: "u-1"})

	e := NewRecoveryEngine(testParts)
	res := e.Recover("restore", s, nil)

	if !res.Success {
		t.Fatal("expected success with applied changes present")
	}
	if res.AppliedByType["user"] != 2 || res.AppliedByType["group"] != 1 {
		t.Errorf("applied = %v", res.AppliedByType)
	}
	if !res.RollbackAvailable {
		t.Error("rollback actions are registered, flag should be set")
	}
}

func TestRecover_MutationNothingApplied(t *testing.T) {
	s := NewOperationState("op-4", "restore")

	e := NewRecoveryEngine(testParts)
	res := e.Recover("restore", s, nil)

	if res.Success {
		t.Fatal("expected failure with an empty ledger")
	}
	if res.RollbackAvailable {
		t.Error("no rollback actions were registered")
	}
}
