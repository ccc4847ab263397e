package interfaces

import (
	"bytes"
	"testing"
	"time"

	diagapp "refurb-cloud/internal/diagnostics/application"
	diagnostics "refurb-cloud/internal/diagnostics/domain"
)

func sampleView() *diagapp.ReportView {
	return &diagapp.ReportView{
		Report: &diagnostics.DiagnosticReport{
			ID:           "id-1",
			ReportID:     "rep-1",
			AssetID:      "DEV-001",
			AgentVersion: "3.4.1",
			TotalTests:   3,
			PassedTests:  2,
			FailedTests:  1,
			ScorePercent: 67,
			CreatedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		Results: []diagnostics.TestResult{
			{TestName: "CPU Stress", Status: diagnostics.TestPassed},
			{TestName: "Disk SMART", Status: diagnostics.TestFailed, Message: "reallocated sectors"},
		},
		Hardware: &diagnostics.HardwareSpec{
			CPUModel:   "Intel i5-1135G7",
			RAMTotalGB: 16,
		},
	}
}

func TestBuildReportPDF(t *testing.T) {
	data, err := BuildReportPDF(sampleView())
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestBuildReportXLSX(t *testing.T) {
	data, err := BuildReportXLSX(sampleView())
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatal("output is not an XLSX archive")
	}
}

func TestBuildReportExports_NoHardware(t *testing.T) {
	view := sampleView()
	view.Hardware = nil
	if _, err := BuildReportPDF(view); err != nil {
		t.Fatalf("pdf without hardware: %v", err)
	}
	if _, err := BuildReportXLSX(view); err != nil {
		t.Fatalf("xlsx without hardware: %v", err)
	}
}
