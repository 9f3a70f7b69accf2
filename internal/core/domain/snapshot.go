package domain

import "time"

type SnapshotStatus string

const (
	SnapshotStatusComplete SnapshotStatus = "complete"
	SnapshotStatusPartial  SnapshotStatus = "partial"
)

// Snapshot is one backup of the directory configuration.
type Snapshot struct {
	ID              string         `json:"id"`
	IdentityStoreID string         `json:"identity_store_id"`
	InstanceArn     string         `json:"instance_arn,omitempty"`
	Status          SnapshotStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`

	Users          []User          `json:"users"`
	Groups         []Group         `json:"groups"`
	PermissionSets []PermissionSet `json:"permission_sets"`
	Assignments    []Assignment    `json:"assignments"`

	// MissingParts is non-empty only for partial snapshots salvaged after a failure.
	MissingParts []ResourcePart `json:"missing_parts,omitempty"`
}

// PartCount returns the number of records held for a part.
func (s *Snapshot) PartCount(part ResourcePart) int {
	switch part {
	case PartUsers:
		return len(s.Users)
	case PartGroups:
		return len(s.Groups)
	case PartPermissionSets:
		return len(s.PermissionSets)
	case PartAssignments:
		return len(s.Assignments)
	}
	return 0
}

// PartMissing reports whether a part was lost to a partial backup.
func (s *Snapshot) PartMissing(part ResourcePart) bool {
	for _, p := range s.MissingParts {
		if p == part {
			return true
		}
	}
	return false
}

// TotalRecords sums record counts across all parts.
func (s *Snapshot) TotalRecords() int {
	total := 0
	for _, p := range AllParts() {
		total += s.PartCount(p)
	}
	return total
}
