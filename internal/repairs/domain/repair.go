package repairs

import (
	"errors"
	"time"
)

var (
	// ErrRepairNotFound is returned when a repair does not exist.
	ErrRepairNotFound = errors.New("repairs: repair not found")
	// ErrOpenRepairExists is returned when a device already carries an
	// open repair.
	ErrOpenRepairExists = errors.New("repairs: open repair already exists")
	// ErrInvalidRepairTransition is returned for an illegal repair
	// status change.
	ErrInvalidRepairTransition = errors.New("repairs: invalid status transition")
	// ErrUnknownRepairStatus is returned for a status outside the set.
	ErrUnknownRepairStatus = errors.New("repairs: unknown status")
	// ErrRepairClosed is returned when mutating a closed repair.
	ErrRepairClosed = errors.New("repairs: repair is closed")
)

// RepairStatus is the workshop-side lifecycle of one repair.
type RepairStatus string

const (
	RepairPending           RepairStatus = "pending"
	RepairDiagnosing        RepairStatus = "diagnosing"
	RepairWaitingForParts   RepairStatus = "waiting_for_parts"
	RepairInProgress        RepairStatus = "in_progress"
	RepairTesting           RepairStatus = "testing"
	RepairCompleted         RepairStatus = "completed"
	RepairReturnedToInspect RepairStatus = "returned_to_inspection"
)

// NormalizeRepairStatus validates a repair status string.
func NormalizeRepairStatus(value string) (RepairStatus, bool) {
	switch RepairStatus(value) {
	case RepairPending, RepairDiagnosing, RepairWaitingForParts,
		RepairInProgress, RepairTesting, RepairCompleted,
		RepairReturnedToInspect:
		return RepairStatus(value), true
	default:
		return "", false
	}
}

// repairTransitions maps each status to the set of legal next statuses.
var repairTransitions = map[RepairStatus][]RepairStatus{
	RepairPending:         {RepairDiagnosing, RepairWaitingForParts, RepairInProgress, RepairReturnedToInspect},
	RepairDiagnosing:      {RepairWaitingForParts, RepairInProgress, RepairReturnedToInspect},
	RepairWaitingForParts: {RepairDiagnosing, RepairInProgress},
	RepairInProgress:      {RepairTesting, RepairWaitingForParts, RepairReturnedToInspect},
	RepairTesting:         {RepairCompleted, RepairInProgress},
}

// CanTransitionRepair reports whether current may move to next.
func CanTransitionRepair(current, next RepairStatus) bool {
	for _, allowed := range repairTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsClosedStatus reports whether a status ends the repair.
func IsClosedStatus(status RepairStatus) bool {
	return status == RepairCompleted || status == RepairReturnedToInspect
}

// HistoryEntry is one stretch of time a repair spent in a status.
type HistoryEntry struct {
	Status    RepairStatus `json:"status"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   *time.Time   `json:"ended_at,omitempty"`
}

// Repair is one workshop pass over a device. A device has at most one
// open repair at a time.
type Repair struct {
	ID            string
	DeviceID      string
	CompanyID     string
	Status        RepairStatus
	Description   string
	Technician    string
	StatusHistory []HistoryEntry
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClosedAt      *time.Time
}

// IsClosed reports whether the repair has ended.
func (r *Repair) IsClosed() bool {
	return r.ClosedAt != nil
}

// NewRepair opens a repair in pending status with a seeded history.
func NewRepair(id, deviceID, companyID, description string, now time.Time) *Repair {
	return &Repair{
		ID:            id,
		DeviceID:      deviceID,
		CompanyID:     companyID,
		Status:        RepairPending,
		Description:   description,
		StatusHistory: []HistoryEntry{{Status: RepairPending, StartedAt: now}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Advance moves the repair to next, closing the open history entry for the
// current status and appending a fresh one for next.
func (r *Repair) Advance(next RepairStatus, now time.Time) error {
	if _, ok := NormalizeRepairStatus(string(next)); !ok {
		return ErrUnknownRepairStatus
	}
	if r.IsClosed() {
		return ErrRepairClosed
	}
	if !CanTransitionRepair(r.Status, next) {
		return ErrInvalidRepairTransition
	}

	for i := len(r.StatusHistory) - 1; i >= 0; i-- {
		entry := &r.StatusHistory[i]
		if entry.Status == r.Status && entry.EndedAt == nil {
			ended := now
			entry.EndedAt = &ended
			break
		}
	}
	r.StatusHistory = append(r.StatusHistory, HistoryEntry{Status: next, StartedAt: now})
	r.Status = next
	r.UpdatedAt = now
	if IsClosedStatus(next) {
		closed := now
		r.ClosedAt = &closed
	}
	return nil
}
