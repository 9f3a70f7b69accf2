package resilience

import (
	"testing"
	"time"
)

func TestOperationState_AppendOrder(t *testing.T) {
	s := NewOperationState("op-1", "backup")

	if len(s.Checkpoints) != 0 || len(s.Changes) != 0 || len(s.RollbackActions) != 0 {
		t.Fatal("new state must start empty")
	}

	s.AddCheckpoint("validate_connection", nil)
	s.AddCheckpoint("collected_users", []string{"u-1"})
	s.AddChange("user", "u-1", "create", nil, map[string]string{"name": "alice"})

	if got := len(s.Checkpoints); got != 2 {
		t.Fatalf("checkpoints = %d, want 2", got)
	}
	if s.Checkpoints[0].Name != "validate_connection" || s.Checkpoints[1].Name != "collected_users" {
		t.Error("checkpoints must preserve call order")
	}
	if s.Checkpoints[1].Timestamp.Before(s.Checkpoints[0].Timestamp) {
		t.Error("checkpoint timestamps must be monotonically non-decreasing")
	}
	if s.Changes[0].Action != "create" || s.Changes[0].ResourceID != "u-1" {
		t.Errorf("unexpected ledger entry: %+v", s.Changes[0])
	}
}

func TestOperationState_CheckpointLookup(t *testing.T) {
	s := NewOperationState("op-2", "backup")
	s.AddCheckpoint("collected_groups", 7)

	if cp := s.Checkpoint("collected_groups"); cp == nil || cp.Payload != 7 {
		t.Fatalf("lookup failed: %+v", cp)
	}
	if cp := s.Checkpoint("collected_users"); cp != nil {
		t.Fatal("missing checkpoint should return nil")
	}
}

func TestOperationState_Finish(t *testing.T) {
	s := NewOperationState("op-3", "restore")
	s.Finish(false)

	if !s.Completed || s.Succeeded {
		t.Errorf("completed = %v, succeeded = %v", s.Completed, s.Succeeded)
	}
	if s.EndTime.IsZero() {
		t.Error("finish must stamp the end time")
	}
}

func TestRegistry_PutGetList(t *testing.T) {
	r := NewRegistry(time.Minute)
	s := NewOperationState("op-4", "backup")
	r.Put(s)

	if got := r.Get("op-4"); got != s {
		t.Fatal("get returned a different state")
	}
	if got := r.Get("nope"); got != nil {
		t.Fatal("unknown id should return nil")
	}
	if got := len(r.List()); got != 1 {
		t.Errorf("list length = %d, want 1", got)
	}
}

func TestRegistry_ReapEvictsFinished(t *testing.T) {
	r := NewRegistry(time.Minute)

	current := time.Now()
	r.now = func() time.Time { return current }

	done := NewOperationState("done", "backup")
	done.Finish(true)
	done.EndTime = current.Add(-2 * time.Minute)
	running := NewOperationState("running", "backup")
	r.Put(done)
	r.Put(running)

	if n := r.reap(); n != 1 {
		t.Fatalf("reaped = %d, want 1", n)
	}
	if r.Get("done") != nil {
		t.Error("finished state past retention should be evicted")
	}
	if r.Get("running") == nil {
		t.Error("running state must survive the reaper")
	}
}

func TestRegistry_RecentlyFinishedRetained(t *testing.T) {
	r := NewRegistry(time.Minute)
	s := NewOperationState("op-5", "restore")
	s.Finish(false)
	r.Put(s)

	if n := r.reap(); n != 0 {
		t.Fatalf("reaped = %d, want 0", n)
	}
	if r.Get("op-5") == nil {
		t.Error("state inside the retention window must stay inspectable")
	}
}
