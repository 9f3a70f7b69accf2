package storage

import (
	"context"
	"errors"
	"time"

	"github.com/idcvault/idcvault/internal/core/domain"
)

// ErrSnapshotNotFound is returned when a snapshot id doesn't exist
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotInfo is the listing view of a stored snapshot.
type SnapshotInfo struct {
	ID          string                `json:"id"`
	Status      domain.SnapshotStatus `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	RecordCount int                   `json:"record_count"`
	SizeBytes   int64                 `json:"size_bytes"`
}

// Engine persists and retrieves snapshots.
type Engine interface {
	// Store persists a snapshot and returns its id
	Store(ctx context.Context, snap *domain.Snapshot) (string, error)

	// Retrieve loads a snapshot by id
	Retrieve(ctx context.Context, id string) (*domain.Snapshot, error)

	// VerifyIntegrity checks the stored payload against its checksum
	VerifyIntegrity(ctx context.Context, id string) (domain.ValidationResult, error)

	// Delete removes a snapshot, reporting whether it existed
	Delete(ctx context.Context, id string) (bool, error)

	// List returns stored snapshots, newest first
	List(ctx context.Context) ([]SnapshotInfo, error)
}
