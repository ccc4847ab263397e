package repairs

import (
	"errors"
	"time"
)

var (
	// ErrPartNotFound is returned when a spare part request does not exist.
	ErrPartNotFound = errors.New("repairs: spare part request not found")
	// ErrInvalidPartStatus is returned for an illegal part status change.
	ErrInvalidPartStatus = errors.New("repairs: invalid part status change")
)

// PartStatus is the approval lifecycle of a spare part request.
type PartStatus string

const (
	PartPending   PartStatus = "pending"
	PartApproved  PartStatus = "approved"
	PartRejected  PartStatus = "rejected"
	PartDelivered PartStatus = "delivered"
)

// NormalizePartStatus validates a part status string.
func NormalizePartStatus(value string) (PartStatus, bool) {
	switch PartStatus(value) {
	case PartPending, PartApproved, PartRejected, PartDelivered:
		return PartStatus(value), true
	default:
		return "", false
	}
}

// SparePartsRequest asks for one part needed by a repair.
type SparePartsRequest struct {
	ID          string
	RepairID    string
	CompanyID   string
	PartName    string
	Quantity    int
	Status      PartStatus
	RequestedBy string
	DecidedBy   string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Decide moves a part request along pending -> approved/rejected ->
// delivered.
func (p *SparePartsRequest) Decide(next PartStatus, decidedBy string, now time.Time) error {
	legal := false
	switch p.Status {
	case PartPending:
		legal = next == PartApproved || next == PartRejected
	case PartApproved:
		legal = next == PartDelivered
	}
	if !legal {
		return ErrInvalidPartStatus
	}
	p.Status = next
	p.DecidedBy = decidedBy
	p.UpdatedAt = now
	return nil
}
