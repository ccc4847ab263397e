package registry

import (
	"errors"
	"fmt"
)

// Status is the lifecycle status of a device.
type Status string

const (
	StatusReceived              Status = "received"
	StatusPendingInspection     Status = "pending_inspection"
	StatusInPhysicalInspection  Status = "in_physical_inspection"
	StatusInTechnicalInspection Status = "in_technical_inspection"
	StatusDiagnosed             Status = "diagnosed"
	StatusReadyForSale          Status = "ready_for_sale"
	StatusNeedsRepair           Status = "needs_repair"
	StatusInRepair              Status = "in_repair"
	StatusReturned              Status = "returned"
	StatusInBranch              Status = "in_branch"
	StatusSold                  Status = "sold"
	StatusScrap                 Status = "scrap"
)

// Trigger identifies the action driving a status transition.
type Trigger string

const (
	TriggerInspectionQueued  Trigger = "inspection_queued"
	TriggerPhysicalStarted   Trigger = "physical_inspection_started"
	TriggerPhysicalRecorded  Trigger = "physical_inspection_recorded"
	TriggerTechnicalDecision Trigger = "technical_inspection_decision"
	TriggerReportIngested    Trigger = "diagnostic_report_ingested"
	TriggerReviewDecision    Trigger = "review_decision"
	TriggerRepairOpened      Trigger = "repair_opened"
	TriggerRepairCompleted   Trigger = "repair_completed"
	TriggerRepairReturned    Trigger = "repair_returned_to_inspection"
	TriggerBranchTransfer    Trigger = "branch_transfer"
	TriggerInvoiceFinalized  Trigger = "invoice_finalized"
	TriggerScrapped          Trigger = "scrapped"
)

// ErrInvalidTransition is returned for transitions outside the legal table.
var ErrInvalidTransition = errors.New("registry: invalid status transition")

// ErrUnknownStatus is returned for statuses outside the closed set.
var ErrUnknownStatus = errors.New("registry: unknown status")

// NormalizeStatus validates a status string.
func NormalizeStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusReceived, StatusPendingInspection, StatusInPhysicalInspection,
		StatusInTechnicalInspection, StatusDiagnosed, StatusReadyForSale,
		StatusNeedsRepair, StatusInRepair, StatusReturned, StatusInBranch,
		StatusSold, StatusScrap:
		return Status(value), true
	default:
		return "", false
	}
}

// transitions maps current status to the legal next statuses and the trigger
// required for each.
var transitions = map[Status]map[Status]Trigger{
	StatusReceived: {
		StatusPendingInspection:    TriggerInspectionQueued,
		StatusInPhysicalInspection: TriggerPhysicalStarted,
		StatusScrap:                TriggerScrapped,
	},
	StatusPendingInspection: {
		StatusInPhysicalInspection: TriggerPhysicalStarted,
	},
	StatusInPhysicalInspection: {
		StatusInTechnicalInspection: TriggerPhysicalRecorded,
		StatusDiagnosed:             TriggerReportIngested,
	},
	StatusInTechnicalInspection: {
		StatusReadyForSale: TriggerTechnicalDecision,
		StatusNeedsRepair:  TriggerTechnicalDecision,
		StatusDiagnosed:    TriggerReportIngested,
	},
	StatusDiagnosed: {
		StatusReadyForSale: TriggerReviewDecision,
		StatusNeedsRepair:  TriggerReviewDecision,
		StatusReturned:     TriggerReviewDecision,
		StatusDiagnosed:    TriggerReportIngested,
		StatusScrap:        TriggerScrapped,
	},
	StatusNeedsRepair: {
		StatusInRepair:  TriggerRepairOpened,
		StatusDiagnosed: TriggerReportIngested,
		StatusScrap:     TriggerScrapped,
	},
	StatusInRepair: {
		StatusReadyForSale:          TriggerRepairCompleted,
		StatusInTechnicalInspection: TriggerRepairReturned,
		StatusDiagnosed:             TriggerReportIngested,
		StatusScrap:                 TriggerScrapped,
	},
	StatusReadyForSale: {
		StatusInBranch: TriggerBranchTransfer,
	},
	StatusInBranch: {
		StatusSold: TriggerInvoiceFinalized,
	},
	StatusReturned: {
		StatusScrap: TriggerScrapped,
	},
}

// Transition validates a status change against the legal transition table.
// The current and next statuses must form a legal pair and the trigger must
// match the one the table requires for that pair.
func Transition(current, next Status, trigger Trigger) error {
	if _, ok := NormalizeStatus(string(current)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, current)
	}
	if _, ok := NormalizeStatus(string(next)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}
	allowed, ok := transitions[current]
	if !ok {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, current)
	}
	required, ok := allowed[next]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}
	if trigger != required {
		return fmt.Errorf("%w: %s -> %s requires trigger %s", ErrInvalidTransition, current, next, required)
	}
	return nil
}

// CanTransition reports whether a status pair is legal under any trigger.
func CanTransition(current, next Status) bool {
	allowed, ok := transitions[current]
	if !ok {
		return false
	}
	_, ok = allowed[next]
	return ok
}
