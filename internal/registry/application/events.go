package application

import (
	"time"

	registry "refurb-cloud/internal/registry/domain"
)

// DeviceCreated is published when a device enters the registry.
type DeviceCreated struct {
	CompanyID string
	DeviceID  string
	AssetID   string
	At        time.Time
}

// DeviceStatusChanged is published after a guarded status transition.
type DeviceStatusChanged struct {
	CompanyID string
	DeviceID  string
	AssetID   string
	From      registry.Status
	To        registry.Status
	Trigger   registry.Trigger
	Actor     string
	At        time.Time
}
