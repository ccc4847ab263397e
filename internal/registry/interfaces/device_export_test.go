package interfaces

import (
	"bytes"
	"testing"
	"time"

	registry "refurb-cloud/internal/registry/domain"
)

func TestBuildDeviceListXLSX(t *testing.T) {
	now := time.Now().UTC()
	devices := []registry.Device{
		{AssetID: "D-0001", SerialNumber: "SN-1", Model: "Latitude 5420", Status: registry.StatusReceived, CreatedAt: now},
		{AssetID: "D-0002", SerialNumber: "SN-2", Model: "ThinkPad T14", Status: registry.StatusReadyForSale, DiagnosticScore: 95, CreatedAt: now},
	}
	data, err := BuildDeviceListXLSX(devices)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatal("output is not an XLSX archive")
	}
}

func TestBuildDeviceListXLSX_Empty(t *testing.T) {
	if _, err := BuildDeviceListXLSX(nil); err != nil {
		t.Fatalf("empty export: %v", err)
	}
}
