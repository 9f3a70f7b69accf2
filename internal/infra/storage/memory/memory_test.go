package memory

import (
	"context"
	"testing"

	"github.com/idcvault/idcvault/internal/core/domain"
	"github.com/idcvault/idcvault/internal/infra/storage"
)

func testSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		IdentityStoreID: "d-123",
		Status:          domain.SnapshotStatusComplete,
		Users: []domain.User{
			{UserID: "u-1", UserName: "alice"},
		},
		Groups: []domain.Group{
			{GroupID: "g-1", DisplayName: "admins", MemberIDs: []string{"u-1"}},
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	id, err := s.Store(ctx, testSnapshot())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	got, err := s.Retrieve(ctx, id)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got.Users) != 1 || got.Users[0].UserName != "alice" {
		t.Errorf("users = %+v", got.Users)
	}
	if got.PartCount(domain.PartGroups) != 1 {
		t.Errorf("groups = %+v", got.Groups)
	}
}

func TestStore_VerifyIntegrity(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	id, err := s.Store(ctx, testSnapshot())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	res, err := s.VerifyIntegrity(ctx, id)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.IsValid {
		t.Errorf("expected valid, got %+v", res)
	}
}

func TestStore_CorruptPayloadFailsVerify(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	id, err := s.Store(ctx, testSnapshot())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	// Flip the stored checksum to simulate corruption.
	s.mu.Lock()
	e := s.entries[id]
	e.checksum = "deadbeef"
	s.entries[id] = e
	s.mu.Unlock()

	res, err := s.VerifyIntegrity(ctx, id)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.IsValid {
		t.Error("corrupted snapshot must fail verification")
	}
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, err := s.Retrieve(ctx, "missing"); err != storage.ErrSnapshotNotFound {
		t.Errorf("retrieve err = %v, want ErrSnapshotNotFound", err)
	}
	ok, err := s.Delete(ctx, "missing")
	if err != nil || ok {
		t.Errorf("delete = %v, %v", ok, err)
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for i := 0; i < 3; i++ {
		if _, err := s.Store(ctx, testSnapshot()); err != nil {
			t.Fatalf("store: %v", err)
		}
	}

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("list length = %d", len(infos))
	}
	for i := 1; i < len(infos); i++ {
		if infos[i].CreatedAt.After(infos[i-1].CreatedAt) {
			t.Error("list must be newest first")
		}
	}
}
