package application

import "time"

// ReportIngested is published after a report and its side effects commit.
type ReportIngested struct {
	CompanyID    string
	DeviceID     string
	AssetID      string
	ReportID     string
	ScorePercent int
	FailedTests  int
	At           time.Time
}
