package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/idcvault/idcvault/internal/core/domain"
	"github.com/idcvault/idcvault/internal/infra/storage"
)

// SnapshotRepo implements storage.Engine using PostgreSQL.
type SnapshotRepo struct {
	db *DB
}

// NewSnapshotRepo creates a PostgreSQL snapshot engine.
func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

func (r *SnapshotRepo) Store(ctx context.Context, snap *domain.Snapshot) (string, error) {
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

	missing := make([]string, 0, len(snap.MissingParts))
	for _, p := range snap.MissingParts {
		missing = append(missing, string(p))
	}

	query := `
		INSERT INTO snapshots (id, identity_store_id, instance_arn, status, created_at, checksum, record_count, missing_parts, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		snap.ID,
		snap.IdentityStoreID,
		snap.InstanceArn,
		string(snap.Status),
		snap.CreatedAt,
		checksum,
		snap.TotalRecords(),
		strings.Join(missing, ","),
		payload,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store snapshot: %w", err)
	}
	return snap.ID, nil
}

func (r *SnapshotRepo) Retrieve(ctx context.Context, id string) (*domain.Snapshot, error) {
	var row struct {
		Checksum string `db:"checksum"`
		Payload  []byte `db:"payload"`
	}
	err := r.db.GetContext(ctx, &row,
		`SELECT checksum, payload FROM snapshots WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return storage.DecodeSnapshot(row.Payload, row.Checksum)
}

func (r *SnapshotRepo) VerifyIntegrity(ctx context.Context, id string) (domain.ValidationResult, error) {
	var row struct {
		Checksum string `db:"checksum"`
		Payload  []byte `db:"payload"`
	}
	err := r.db.GetContext(ctx, &row,
		`SELECT checksum, payload FROM snapshots WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ValidationResult{}, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.ValidationResult{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return storage.VerifyPayload(row.Payload, row.Checksum), nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SnapshotRepo) List(ctx context.Context) ([]storage.SnapshotInfo, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, status, created_at, record_count, length(payload) AS size_bytes
		FROM snapshots
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []storage.SnapshotInfo
	for rows.Next() {
		var info storage.SnapshotInfo
		var status string
		if err := rows.Scan(&info.ID, &status, &info.CreatedAt, &info.RecordCount, &info.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		info.Status = domain.SnapshotStatus(status)
		out = append(out, info)
	}
	return out, rows.Err()
}
