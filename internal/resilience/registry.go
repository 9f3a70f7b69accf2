package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry maps operation IDs to their states for post-hoc inspection.
// States stay readable for a retention window after the workflow finishes,
// then a background reaper evicts them.
type Registry struct {
	mu        sync.RWMutex
	states    map[string]*OperationState
	retention time.Duration
	now       func() time.Time
}

// DefaultRetention is how long finished operations stay inspectable.
const DefaultRetention = 5 * time.Minute

// NewRegistry creates a registry with the given retention window.
// retention <= 0 falls back to DefaultRetention.
func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Registry{
		states:    make(map[string]*OperationState),
		retention: retention,
		now:       time.Now,
	}
}

// Put registers a state under its operation ID. Callers register a state
// only after Finish: the registry hands out the same pointer to other
// goroutines and treats it as immutable from here on.
func (r *Registry) Put(state *OperationState) {
	r.mu.Lock()
	r.states[state.OperationID] = state
	r.mu.Unlock()
}

// Get returns the state for an operation ID, or nil.
func (r *Registry) Get(operationID string) *OperationState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[operationID]
}

// List returns a snapshot of all registered states.
func (r *Registry) List() []*OperationState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*OperationState, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s)
	}
	return out
}

// StartReaper runs the eviction loop until ctx is cancelled. Eviction holds
// the lock only for the map sweep, never across I/O.
func (r *Registry) StartReaper(ctx context.Context) {
	interval := min(r.retention/2, time.Minute)
	interval = max(interval, time.Second)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.reap(); n > 0 {
				slog.Debug("Evicted finished operations", "count", n)
			}
		}
	}
}

// reap removes states that finished longer than the retention window ago.
func (r *Registry) reap() int {
	cutoff := r.now().Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.states {
		if s.Completed && s.EndTime.Before(cutoff) {
			delete(r.states, id)
			removed++
		}
	}
	return removed
}
