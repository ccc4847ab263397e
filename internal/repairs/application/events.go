package application

import (
	"time"

	repairs "refurb-cloud/internal/repairs/domain"
)

// RepairOpened is published when a repair record is created.
type RepairOpened struct {
	CompanyID string
	DeviceID  string
	RepairID  string
	At        time.Time
}

// RepairStatusChanged is published after a repair status transition.
type RepairStatusChanged struct {
	CompanyID string
	DeviceID  string
	RepairID  string
	From      repairs.RepairStatus
	To        repairs.RepairStatus
	Actor     string
	At        time.Time
}

// RepairCompleted is published when a repair closes successfully and the
// device returns to the sales pool.
type RepairCompleted struct {
	CompanyID string
	DeviceID  string
	RepairID  string
	At        time.Time
}
