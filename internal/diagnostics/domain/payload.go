package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload is returned when the body is not valid JSON.
	ErrMalformedPayload = errors.New("diagnostics: malformed payload")
	// ErrMissingSections is returned when metadata or device is absent.
	ErrMissingSections = errors.New("diagnostics: missing metadata or device sections")
)

// ReportPayload is the agent upload body. Every field below the two
// required sections is optional: absence defaults, it never fails ingestion.
type ReportPayload struct {
	Metadata *PayloadMetadata `json:"metadata"`
	Device   *PayloadDevice   `json:"device"`
	Results  []PayloadResult  `json:"results"`
}

// PayloadMetadata describes the scan run.
type PayloadMetadata struct {
	ReportID            string            `json:"report_id"`
	ProductionMode      bool              `json:"production_mode"`
	ScanStartedAt       string            `json:"scan_started_at"`
	ScanCompletedAt     string            `json:"scan_completed_at"`
	ScanDurationSeconds float64           `json:"scan_duration_seconds"`
	AgentVersion        string            `json:"agent_version"`
	CosmeticGrade       string            `json:"cosmetic_grade"`
	CosmeticComments    string            `json:"cosmetic_comments"`
	ThermalSummary      *ThermalSummary   `json:"thermal_summary"`
	Warnings            []string          `json:"warnings"`
	Signature           *PayloadSignature `json:"signature"`
}

// ThermalSummary groups thermal ranges per component.
type ThermalSummary struct {
	CPU *ThermalRange `json:"cpu"`
	GPU *ThermalRange `json:"gpu"`
}

// ThermalRange is a min/max/avg temperature triple in Celsius.
type ThermalRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// PayloadSignature is provenance metadata; it is recorded, not verified.
type PayloadSignature struct {
	Algorithm string `json:"algorithm"`
	Hash      string `json:"hash"`
	SignedAt  string `json:"signed_at"`
}

// PayloadDevice is the semi-structured hardware section.
type PayloadDevice struct {
	BIOS         *PayloadBIOS        `json:"bios"`
	Manufacturer string              `json:"manufacturer"`
	Model        string              `json:"model"`
	SerialNumber string              `json:"serial_number"`
	Motherboard  *PayloadMotherboard `json:"motherboard"`
	OS           *PayloadOS          `json:"os"`
	CPU          *PayloadCPU         `json:"cpu"`
	Memory       *PayloadMemory      `json:"memory"`
	GPU          []PayloadGPU        `json:"gpu"`
	Storage      []PayloadStorage    `json:"storage"`
	Battery      *PayloadBattery     `json:"battery"`
	Network      []PayloadNetwork    `json:"network"`
	Monitor      []PayloadMonitor    `json:"monitor"`
	USB          *PayloadUSB         `json:"usb"`
}

// PayloadBIOS identifies firmware.
type PayloadBIOS struct {
	Vendor  string `json:"vendor"`
	Version string `json:"version"`
	Serial  string `json:"serial"`
}

// PayloadMotherboard identifies the board.
type PayloadMotherboard struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
}

// PayloadOS identifies the installed operating system.
type PayloadOS struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Build   string `json:"build"`
}

// PayloadCPU describes the processor.
type PayloadCPU struct {
	Name          string   `json:"name"`
	Cores         int      `json:"cores"`
	Threads       int      `json:"threads"`
	BaseClockMHz  float64  `json:"base_clock_mhz"`
	BoostClockMHz float64  `json:"boost_clock_mhz"`
	CacheKB       int      `json:"cache_kb"`
	Socket        string   `json:"socket"`
	Features      []string `json:"features"`
}

// PayloadMemory describes installed memory.
type PayloadMemory struct {
	TotalGB int                 `json:"total_gb"`
	Type    string              `json:"type"`
	Slots   []PayloadMemorySlot `json:"slots"`
}

// PayloadMemorySlot is one DIMM.
type PayloadMemorySlot struct {
	Slot         string `json:"slot"`
	SizeGB       int    `json:"size_gb"`
	SpeedMHz     int    `json:"speed_mhz"`
	Manufacturer string `json:"manufacturer"`
}

// PayloadGPU is one graphics adapter.
type PayloadGPU struct {
	Name   string `json:"name"`
	VRAMMB int    `json:"vram_mb"`
	Driver string `json:"driver"`
}

// PayloadStorage is one storage device.
type PayloadStorage struct {
	Model         string `json:"model"`
	SerialNumber  string `json:"serial_number"`
	Type          string `json:"type"`
	SizeGB        int    `json:"size_gb"`
	HealthPercent int    `json:"health_percent"`
}

// PayloadBattery describes battery condition.
type PayloadBattery struct {
	HealthPercent int    `json:"health_percent"`
	CycleCount    int    `json:"cycle_count"`
	Chemistry     string `json:"chemistry"`
}

// PayloadNetwork is one network adapter.
type PayloadNetwork struct {
	Name string `json:"name"`
	MAC  string `json:"mac"`
	Type string `json:"type"`
}

// PayloadMonitor is one attached display.
type PayloadMonitor struct {
	Name       string  `json:"name"`
	Resolution string  `json:"resolution"`
	SizeInches float64 `json:"size_inches"`
}

// PayloadUSB groups the USB inventory.
type PayloadUSB struct {
	Controllers []PayloadUSBController `json:"controllers"`
	Devices     []PayloadUSBDevice     `json:"devices"`
}

// PayloadUSBController is one host controller.
type PayloadUSBController struct {
	Name string `json:"name"`
}

// PayloadUSBDevice is one attached USB device.
type PayloadUSBDevice struct {
	Name      string `json:"name"`
	VendorID  string `json:"vendor_id"`
	ProductID string `json:"product_id"`
}

// PayloadResult is one diagnostic check outcome.
type PayloadResult struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

// DecodePayload parses and validates an agent upload body. Only the
// presence of the metadata and device sections is required.
func DecodePayload(raw []byte) (*ReportPayload, error) {
	var payload ReportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Metadata == nil || payload.Device == nil {
		return nil, ErrMissingSections
	}
	return &payload, nil
}
