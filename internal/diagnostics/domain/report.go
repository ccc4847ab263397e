package diagnostics

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

var (
	// ErrReportNotFound is returned when a report does not exist.
	ErrReportNotFound = errors.New("diagnostics: report not found")
	// ErrReportExists is returned when the agent report id was already
	// ingested for the device.
	ErrReportExists = errors.New("diagnostics: report already ingested")
)

// DiagnosticReport is one immutable snapshot of an agent scan.
type DiagnosticReport struct {
	ID        string
	ReportID  string
	AssetID   string
	DeviceID  string
	CompanyID string

	TotalTests   int
	PassedTests  int
	FailedTests  int
	WarnedTests  int
	ScorePercent int

	ProductionMode      bool
	ScanStartedAt       *time.Time
	ScanCompletedAt     *time.Time
	ScanDurationSeconds float64
	AgentVersion        string
	CosmeticGrade       string
	CosmeticComments    string

	CPUThermalMin float64
	CPUThermalMax float64
	CPUThermalAvg float64
	GPUThermalMin float64
	GPUThermalMax float64
	GPUThermalAvg float64

	Warnings           []string
	SignatureAlgorithm string
	SignatureHash      string
	SignedAt           *time.Time

	RawJSON   json.RawMessage
	CreatedAt time.Time
}

// TestResult is one check performed during a scan.
type TestResult struct {
	ID       string
	ReportID string
	TestID   string
	TestName string
	Status   TestStatus
	Message  string
	Details  json.RawMessage
}

// HardwareSpec is one hardware snapshot tied 1:1 to a report.
type HardwareSpec struct {
	ID       string
	ReportID string
	DeviceID string

	BIOSVendor  string
	BIOSVersion string
	BIOSSerial  string

	MotherboardManufacturer string
	MotherboardModel        string
	MotherboardSerial       string

	OSName    string
	OSVersion string
	OSBuild   string

	CPUModel         string
	CPUCores         int
	CPUThreads       int
	CPUBaseClockMHz  float64
	CPUBoostClockMHz float64
	CPUCacheKB       int
	CPUSocket        string
	CPUFeatures      []string

	RAMTotalGB   int
	RAMType      string
	RAMSlotCount int
	RAMSlots     json.RawMessage

	GPUModel string
	GPUs     json.RawMessage

	StorageTotalGB       int
	StorageCount         int
	StorageHealthPercent int
	StorageDevices       json.RawMessage

	BatteryHealthPercent int
	BatteryCycleCount    int
	BatteryChemistry     string

	NetworkAdapters json.RawMessage
	Monitors        json.RawMessage
	USBDevices      json.RawMessage

	CreatedAt time.Time
}

// Summary aggregates the test counts and derived score of one scan.
type Summary struct {
	Total  int
	Passed int
	Failed int
	Warned int
	Score  int
}

// Summarize normalizes and counts the payload results.
func Summarize(results []PayloadResult) Summary {
	summary := Summary{Total: len(results)}
	for _, result := range results {
		switch NormalizeTestStatus(result.Status) {
		case TestPassed:
			summary.Passed++
		case TestFailed:
			summary.Failed++
		default:
			summary.Warned++
		}
	}
	summary.Score = Score(summary.Passed, summary.Total)
	return summary
}

// Score returns the rounded percentage of passed tests, 0 for empty runs.
func Score(passed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(passed) / float64(total) * 100))
}

// BuildReport assembles a report entity from a decoded payload. Missing
// sub-objects default to zero values; nothing here fails.
func BuildReport(payload *ReportPayload, raw []byte, assetID string, now time.Time) *DiagnosticReport {
	meta := payload.Metadata
	summary := Summarize(payload.Results)

	report := &DiagnosticReport{
		ReportID:            meta.ReportID,
		AssetID:             assetID,
		TotalTests:          summary.Total,
		PassedTests:         summary.Passed,
		FailedTests:         summary.Failed,
		WarnedTests:         summary.Warned,
		ScorePercent:        summary.Score,
		ProductionMode:      meta.ProductionMode,
		ScanStartedAt:       parseTime(meta.ScanStartedAt),
		ScanCompletedAt:     parseTime(meta.ScanCompletedAt),
		ScanDurationSeconds: meta.ScanDurationSeconds,
		AgentVersion:        meta.AgentVersion,
		CosmeticGrade:       meta.CosmeticGrade,
		CosmeticComments:    meta.CosmeticComments,
		Warnings:            meta.Warnings,
		RawJSON:             json.RawMessage(raw),
		CreatedAt:           now,
	}
	if report.Warnings == nil {
		report.Warnings = []string{}
	}
	if thermal := meta.ThermalSummary; thermal != nil {
		if thermal.CPU != nil {
			report.CPUThermalMin = thermal.CPU.Min
			report.CPUThermalMax = thermal.CPU.Max
			report.CPUThermalAvg = thermal.CPU.Avg
		}
		if thermal.GPU != nil {
			report.GPUThermalMin = thermal.GPU.Min
			report.GPUThermalMax = thermal.GPU.Max
			report.GPUThermalAvg = thermal.GPU.Avg
		}
	}
	if sig := meta.Signature; sig != nil {
		report.SignatureAlgorithm = sig.Algorithm
		report.SignatureHash = sig.Hash
		report.SignedAt = parseTime(sig.SignedAt)
	}
	return report
}

// BuildTestResults normalizes payload results into entities. IDs are
// assigned by the caller.
func BuildTestResults(results []PayloadResult) []TestResult {
	if len(results) == 0 {
		return nil
	}
	entities := make([]TestResult, 0, len(results))
	for _, result := range results {
		entities = append(entities, TestResult{
			TestID:   result.ID,
			TestName: result.Name,
			Status:   NormalizeTestStatus(result.Status),
			Message:  result.Message,
			Details:  result.Details,
		})
	}
	return entities
}

// BuildHardwareSpec flattens the device section into a snapshot with safe
// defaults for every absent field.
func BuildHardwareSpec(device *PayloadDevice, now time.Time) *HardwareSpec {
	spec := &HardwareSpec{CreatedAt: now, CPUFeatures: []string{}}
	if device == nil {
		return spec
	}
	if bios := device.BIOS; bios != nil {
		spec.BIOSVendor = bios.Vendor
		spec.BIOSVersion = bios.Version
		spec.BIOSSerial = bios.Serial
	}
	if board := device.Motherboard; board != nil {
		spec.MotherboardManufacturer = board.Manufacturer
		spec.MotherboardModel = board.Model
		spec.MotherboardSerial = board.Serial
	}
	if os := device.OS; os != nil {
		spec.OSName = os.Name
		spec.OSVersion = os.Version
		spec.OSBuild = os.Build
	}
	if cpu := device.CPU; cpu != nil {
		spec.CPUModel = cpu.Name
		spec.CPUCores = cpu.Cores
		spec.CPUThreads = cpu.Threads
		spec.CPUBaseClockMHz = cpu.BaseClockMHz
		spec.CPUBoostClockMHz = cpu.BoostClockMHz
		spec.CPUCacheKB = cpu.CacheKB
		spec.CPUSocket = cpu.Socket
		if cpu.Features != nil {
			spec.CPUFeatures = cpu.Features
		}
	}
	if memory := device.Memory; memory != nil {
		spec.RAMTotalGB = memory.TotalGB
		spec.RAMType = memory.Type
		spec.RAMSlotCount = len(memory.Slots)
		spec.RAMSlots = marshalList(memory.Slots)
	} else {
		spec.RAMSlots = emptyJSONList
	}
	if len(device.GPU) > 0 {
		spec.GPUModel = device.GPU[0].Name
	}
	spec.GPUs = marshalList(device.GPU)
	spec.StorageCount = len(device.Storage)
	minHealth := 0
	for i, storage := range device.Storage {
		spec.StorageTotalGB += storage.SizeGB
		if i == 0 || storage.HealthPercent < minHealth {
			minHealth = storage.HealthPercent
		}
	}
	spec.StorageHealthPercent = minHealth
	spec.StorageDevices = marshalList(device.Storage)
	if battery := device.Battery; battery != nil {
		spec.BatteryHealthPercent = battery.HealthPercent
		spec.BatteryCycleCount = battery.CycleCount
		spec.BatteryChemistry = battery.Chemistry
	}
	spec.NetworkAdapters = marshalList(device.Network)
	spec.Monitors = marshalList(device.Monitor)
	if device.USB != nil {
		spec.USBDevices = marshalList(device.USB.Devices)
	} else {
		spec.USBDevices = emptyJSONList
	}
	return spec
}

var emptyJSONList = json.RawMessage("[]")

func marshalList(value any) json.RawMessage {
	data, err := json.Marshal(value)
	if err != nil || string(data) == "null" {
		return emptyJSONList
	}
	return data
}

func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
