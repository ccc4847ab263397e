package registry

import (
	"errors"
	"testing"
)

func TestTransition_LegalPath(t *testing.T) {
	steps := []struct {
		from    Status
		to      Status
		trigger Trigger
	}{
		{StatusReceived, StatusInPhysicalInspection, TriggerPhysicalStarted},
		{StatusInPhysicalInspection, StatusInTechnicalInspection, TriggerPhysicalRecorded},
		{StatusInTechnicalInspection, StatusDiagnosed, TriggerReportIngested},
		{StatusDiagnosed, StatusNeedsRepair, TriggerReviewDecision},
		{StatusNeedsRepair, StatusInRepair, TriggerRepairOpened},
		{StatusInRepair, StatusReadyForSale, TriggerRepairCompleted},
		{StatusReadyForSale, StatusInBranch, TriggerBranchTransfer},
		{StatusInBranch, StatusSold, TriggerInvoiceFinalized},
	}
	for _, step := range steps {
		if err := Transition(step.from, step.to, step.trigger); err != nil {
			t.Fatalf("%s -> %s (%s): %v", step.from, step.to, step.trigger, err)
		}
	}
}

func TestTransition_IllegalPair(t *testing.T) {
	err := Transition(StatusReceived, StatusSold, TriggerInvoiceFinalized)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransition_WrongTrigger(t *testing.T) {
	err := Transition(StatusInTechnicalInspection, StatusReadyForSale, TriggerReviewDecision)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransition_TerminalStatus(t *testing.T) {
	err := Transition(StatusSold, StatusReceived, TriggerInspectionQueued)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	err := Transition(Status("broken"), StatusSold, TriggerInvoiceFinalized)
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestTransition_RepeatDiagnosisAllowed(t *testing.T) {
	if err := Transition(StatusDiagnosed, StatusDiagnosed, TriggerReportIngested); err != nil {
		t.Fatalf("re-diagnosis should be legal: %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatusReadyForSale, StatusInBranch) {
		t.Fatal("ready_for_sale -> in_branch should be legal")
	}
	if CanTransition(StatusSold, StatusInBranch) {
		t.Fatal("sold is terminal")
	}
}
