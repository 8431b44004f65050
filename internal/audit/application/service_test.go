package application

import (
	"context"
	"strings"
	"testing"

	"github.com/wyfcoding/reliefledger/internal/audit/domain"
	"github.com/wyfcoding/reliefledger/pkg/actor"
)

type fakeTrail struct {
	appended []*domain.Entry
}

func (f *fakeTrail) Append(ctx context.Context, entry *domain.Entry) error {
	f.appended = append(f.appended, entry)
	return nil
}

func (f *fakeTrail) FindByEntity(ctx context.Context, entityType, entityID string, offset, limit int) ([]*domain.Entry, int64, error) {
	return nil, 0, nil
}

func (f *fakeTrail) FindByDisaster(ctx context.Context, disasterID string, offset, limit int) ([]*domain.Entry, int64, error) {
	return nil, 0, nil
}

func (f *fakeTrail) FindByActor(ctx context.Context, actorID string, offset, limit int) ([]*domain.Entry, int64, error) {
	return nil, 0, nil
}

func (f *fakeTrail) List(ctx context.Context, action domain.ActionType, entityType string, offset, limit int) ([]*domain.Entry, int64, error) {
	return nil, 0, nil
}

func TestRecordCommand(t *testing.T) {
	trail := &fakeTrail{}
	svc := NewService(trail)
	ctx := actor.WithActor(context.Background(), actor.Actor{
		ID: "u1", Name: "Palesa N.", Role: actor.RoleFinanceOfficer,
	})

	err := svc.RecordCommand(ctx, domain.ActionApprove, "BudgetAllocation", "BUD1",
		"budget approved",
		map[string]any{"approval_status": "Pending"},
		map[string]any{"disaster_id": "D1", "approval_status": "Approved"})
	if err != nil {
		t.Fatalf("RecordCommand() error = %v", err)
	}
	if len(trail.appended) != 1 {
		t.Fatalf("appended = %d, want 1", len(trail.appended))
	}

	entry := trail.appended[0]
	if !strings.HasPrefix(entry.EntryNo, "AUD") {
		t.Errorf("EntryNo = %q, want AUD prefix", entry.EntryNo)
	}
	if entry.DisasterID != "D1" {
		t.Errorf("DisasterID = %q, want D1 from the snapshot", entry.DisasterID)
	}
	if entry.ActorID != "u1" || entry.ActorName != "Palesa N." || entry.ActorRole != string(actor.RoleFinanceOfficer) {
		t.Errorf("actor stamp = %s/%s/%s", entry.ActorID, entry.ActorName, entry.ActorRole)
	}
	if !strings.Contains(entry.Changes, "approval_status") {
		t.Errorf("Changes = %q, want the status diff recorded", entry.Changes)
	}
	if entry.OccurredAt.IsZero() {
		t.Error("OccurredAt must be stamped")
	}
}

func TestRecordCommand_NoActorNoDisaster(t *testing.T) {
	trail := &fakeTrail{}
	svc := NewService(trail)

	err := svc.RecordCommand(context.Background(), domain.ActionCreate, "AllocationPlan", "PL1",
		"plan generated", nil, map[string]any{"households": 12})
	if err != nil {
		t.Fatalf("RecordCommand() error = %v", err)
	}
	entry := trail.appended[0]
	if entry.DisasterID != "" {
		t.Errorf("DisasterID = %q, want empty without a snapshot key", entry.DisasterID)
	}
	if entry.ActorID != "" {
		t.Errorf("ActorID = %q, want empty without actor context", entry.ActorID)
	}
}
