package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/idcvault/idcvault/internal/core/domain"
)

// EncodeSnapshot serializes and gzips a snapshot, returning the payload and
// the hex checksum of the uncompressed JSON.
func EncodeSnapshot(snap *domain.Snapshot) (payload []byte, checksum string, err error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	sum := sha256.Sum256(raw)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return nil, "", fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish compression: %w", err)
	}

	return buf.Bytes(), hex.EncodeToString(sum[:]), nil
}

// DecodeSnapshot reverses EncodeSnapshot, verifying the checksum.
func DecodeSnapshot(payload []byte, checksum string) (*domain.Snapshot, error) {
	gz, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed payload: %w", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}

	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != checksum {
		return nil, fmt.Errorf("checksum mismatch: stored %s, computed %s", checksum, got)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// VerifyPayload recomputes the checksum without fully decoding the snapshot.
func VerifyPayload(payload []byte, checksum string) domain.ValidationResult {
	gz, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return domain.Invalid(fmt.Sprintf("payload is not valid gzip: %v", err))
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return domain.Invalid(fmt.Sprintf("payload is truncated: %v", err))
	}

	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != checksum {
		return domain.Invalid(fmt.Sprintf("checksum mismatch: stored %s, computed %s", checksum, got))
	}
	return domain.Valid()
}
