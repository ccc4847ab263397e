package repairs

import (
	"errors"
	"testing"
	"time"
)

func TestAdvance_HistoryRule(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repair := NewRepair("rep-1", "dev-1", "company-1", "no boot", now)

	if err := repair.Advance(RepairDiagnosing, now.Add(time.Hour)); err != nil {
		t.Fatalf("to diagnosing: %v", err)
	}
	if err := repair.Advance(RepairInProgress, now.Add(2*time.Hour)); err != nil {
		t.Fatalf("to in_progress: %v", err)
	}

	if len(repair.StatusHistory) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(repair.StatusHistory))
	}
	if repair.StatusHistory[0].EndedAt == nil || repair.StatusHistory[1].EndedAt == nil {
		t.Fatal("closed entries must carry ended_at")
	}
	if repair.StatusHistory[2].EndedAt != nil {
		t.Fatal("open entry must not carry ended_at")
	}
	if repair.StatusHistory[2].Status != RepairInProgress {
		t.Fatalf("open entry status %s", repair.StatusHistory[2].Status)
	}
}

func TestAdvance_IllegalJump(t *testing.T) {
	now := time.Now().UTC()
	repair := NewRepair("rep-1", "dev-1", "company-1", "", now)
	if err := repair.Advance(RepairCompleted, now); !errors.Is(err, ErrInvalidRepairTransition) {
		t.Fatalf("expected ErrInvalidRepairTransition, got %v", err)
	}
}

func TestAdvance_Completion(t *testing.T) {
	now := time.Now().UTC()
	repair := NewRepair("rep-1", "dev-1", "company-1", "", now)
	steps := []RepairStatus{RepairInProgress, RepairTesting, RepairCompleted}
	for _, step := range steps {
		if err := repair.Advance(step, now); err != nil {
			t.Fatalf("to %s: %v", step, err)
		}
	}
	if repair.ClosedAt == nil {
		t.Fatal("completed repair must be closed")
	}
	if err := repair.Advance(RepairPending, now); !errors.Is(err, ErrRepairClosed) {
		t.Fatalf("expected ErrRepairClosed, got %v", err)
	}
}

func TestAdvance_ReturnedToInspectionCloses(t *testing.T) {
	now := time.Now().UTC()
	repair := NewRepair("rep-1", "dev-1", "company-1", "", now)
	if err := repair.Advance(RepairReturnedToInspect, now); err != nil {
		t.Fatalf("return: %v", err)
	}
	if repair.ClosedAt == nil {
		t.Fatal("returned repair must be closed")
	}
}

func TestDecide_PartLifecycle(t *testing.T) {
	now := time.Now().UTC()
	part := &SparePartsRequest{Status: PartPending}

	if err := part.Decide(PartDelivered, "mgr", now); !errors.Is(err, ErrInvalidPartStatus) {
		t.Fatalf("expected ErrInvalidPartStatus, got %v", err)
	}
	if err := part.Decide(PartApproved, "mgr", now); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := part.Decide(PartDelivered, "mgr", now); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := part.Decide(PartApproved, "mgr", now); !errors.Is(err, ErrInvalidPartStatus) {
		t.Fatalf("expected ErrInvalidPartStatus after delivery, got %v", err)
	}
}
