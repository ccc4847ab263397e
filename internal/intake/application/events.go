package application

import "time"

// ShipmentImported is published after a manifest import commits.
type ShipmentImported struct {
	CompanyID string
	Vendor    string
	Created   int
	Skipped   int
	At        time.Time
}
