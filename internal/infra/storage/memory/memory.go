package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/idcvault/idcvault/internal/core/domain"
	"github.com/idcvault/idcvault/internal/infra/storage"
)

type entry struct {
	payload     []byte
	checksum    string
	status      domain.SnapshotStatus
	createdAt   time.Time
	recordCount int
}

// Store is an in-memory snapshot engine for tests and local runs.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewStore creates an empty in-memory engine.
func NewStore() *Store {
	return &Store{entries: make(map[string]entry)}
}

func (s *Store) Store(ctx context.Context, snap *domain.Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	payload, checksum, err := storage.EncodeSnapshot(snap)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[snap.ID] = entry{
		payload:     payload,
		checksum:    checksum,
		status:      snap.Status,
		createdAt:   snap.CreatedAt,
		recordCount: snap.TotalRecords(),
	}
	return snap.ID, nil
}

func (s *Store) Retrieve(ctx context.Context, id string) (*domain.Snapshot, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrSnapshotNotFound
	}
	return storage.DecodeSnapshot(e.payload, e.checksum)
}

func (s *Store) VerifyIntegrity(ctx context.Context, id string) (domain.ValidationResult, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return domain.ValidationResult{}, storage.ErrSnapshotNotFound
	}
	return storage.VerifyPayload(e.payload, e.checksum), nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

func (s *Store) List(ctx context.Context) ([]storage.SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.SnapshotInfo, 0, len(s.entries))
	for id, e := range s.entries {
		out = append(out, storage.SnapshotInfo{
			ID:          id,
			Status:      e.status,
			CreatedAt:   e.createdAt,
			RecordCount: e.recordCount,
			SizeBytes:   int64(len(e.payload)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
