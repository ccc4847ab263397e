package diagnostics

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSummarize_DualVocabulary(t *testing.T) {
	results := []PayloadResult{
		{Status: "success"},
		{Status: "fail"},
		{Status: "pass"},
		{Status: "error"},
	}
	summary := Summarize(results)
	if summary.Passed != 2 || summary.Failed != 2 || summary.Total != 4 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Score != 50 {
		t.Fatalf("expected score 50, got %d", summary.Score)
	}
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)
	if summary.Total != 0 || summary.Score != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestSummarize_WarnBucket(t *testing.T) {
	summary := Summarize([]PayloadResult{{Status: "warn"}, {Status: "skipped"}, {Status: "pass"}})
	if summary.Warned != 2 || summary.Passed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestScore_Rounding(t *testing.T) {
	if got := Score(2, 3); got != 67 {
		t.Fatalf("Score(2,3) = %d, want 67", got)
	}
	if got := Score(1, 3); got != 33 {
		t.Fatalf("Score(1,3) = %d, want 33", got)
	}
	if got := Score(0, 0); got != 0 {
		t.Fatalf("Score(0,0) = %d, want 0", got)
	}
	if got := Score(5, 5); got != 100 {
		t.Fatalf("Score(5,5) = %d, want 100", got)
	}
}

func TestBuildHardwareSpec_EmptyDeviceSection(t *testing.T) {
	spec := BuildHardwareSpec(&PayloadDevice{}, time.Now())
	if spec.CPUModel != "" || spec.RAMTotalGB != 0 || spec.BatteryHealthPercent != 0 {
		t.Fatalf("expected zero defaults, got %+v", spec)
	}
	for name, raw := range map[string]json.RawMessage{
		"ram_slots": spec.RAMSlots,
		"gpus":      spec.GPUs,
		"storage":   spec.StorageDevices,
		"network":   spec.NetworkAdapters,
		"monitors":  spec.Monitors,
		"usb":       spec.USBDevices,
	} {
		if string(raw) != "[]" {
			t.Fatalf("%s: expected empty list, got %s", name, raw)
		}
	}
	if spec.CPUFeatures == nil {
		t.Fatal("cpu features must default to an empty list")
	}
}

func TestBuildHardwareSpec_Aggregates(t *testing.T) {
	device := &PayloadDevice{
		CPU: &PayloadCPU{Name: "Intel i5-1135G7", Cores: 4, Threads: 8},
		GPU: []PayloadGPU{{Name: "Iris Xe"}, {Name: "GTX 1650"}},
		Storage: []PayloadStorage{
			{SizeGB: 256, HealthPercent: 91},
			{SizeGB: 512, HealthPercent: 84},
		},
		Battery: &PayloadBattery{HealthPercent: 88, CycleCount: 312},
	}
	spec := BuildHardwareSpec(device, time.Now())
	if spec.GPUModel != "Iris Xe" {
		t.Fatalf("gpu model: %q", spec.GPUModel)
	}
	if spec.StorageTotalGB != 768 || spec.StorageCount != 2 {
		t.Fatalf("storage aggregate: %+v", spec)
	}
	if spec.StorageHealthPercent != 84 {
		t.Fatalf("expected min storage health 84, got %d", spec.StorageHealthPercent)
	}
	if spec.BatteryHealthPercent != 88 {
		t.Fatalf("battery health: %d", spec.BatteryHealthPercent)
	}
}

func TestBuildReport_ThermalAndSignature(t *testing.T) {
	payload := &ReportPayload{
		Metadata: &PayloadMetadata{
			ReportID: "rep-1",
			ThermalSummary: &ThermalSummary{
				CPU: &ThermalRange{Min: 35, Max: 82, Avg: 51},
			},
			Signature: &PayloadSignature{Algorithm: "ed25519", Hash: "abc", SignedAt: "2026-03-01T10:00:00Z"},
			Warnings:  []string{"fan noise"},
		},
		Device:  &PayloadDevice{},
		Results: []PayloadResult{{Status: "pass"}},
	}
	report := BuildReport(payload, []byte(`{}`), "DEV-001", time.Now())
	if report.CPUThermalMax != 82 || report.GPUThermalMax != 0 {
		t.Fatalf("thermal: %+v", report)
	}
	if report.SignatureAlgorithm != "ed25519" || report.SignedAt == nil {
		t.Fatalf("signature: %+v", report)
	}
	if report.ScorePercent != 100 || report.TotalTests != 1 {
		t.Fatalf("summary: %+v", report)
	}
	if report.AssetID != "DEV-001" {
		t.Fatalf("asset id: %q", report.AssetID)
	}
}

func TestBuildTestResults_Normalization(t *testing.T) {
	entities := BuildTestResults([]PayloadResult{
		{ID: "t1", Name: "cpu stress", Status: "success"},
		{ID: "t2", Name: "disk smart", Status: "error", Message: "reallocated sectors"},
	})
	if len(entities) != 2 {
		t.Fatalf("expected 2 results, got %d", len(entities))
	}
	if entities[0].Status != TestPassed || entities[1].Status != TestFailed {
		t.Fatalf("normalization: %+v", entities)
	}
	if BuildTestResults(nil) != nil {
		t.Fatal("empty results must build nothing")
	}
}
