package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	registry "refurb-cloud/internal/registry/domain"
)

// BuildDeviceListXLSX renders the device inventory for back-office use.
func BuildDeviceListXLSX(devices []registry.Device) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "devices"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Asset ID", "Serial Number", "Model", "Manufacturer",
		"Status", "Location", "Branch", "Score %", "Last Diagnostic", "Created"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
	}

	for i := range devices {
		device := &devices[i]
		row := i + 2
		lastDiag := ""
		if device.LastDiagnosticAt != nil {
			lastDiag = device.LastDiagnosticAt.Format(time.RFC3339)
		}
		values := []any{
			device.AssetID,
			device.SerialNumber,
			device.Model,
			device.Manufacturer,
			string(device.Status),
			device.CurrentLocation,
			device.BranchID,
			device.DiagnosticScore,
			lastDiag,
			device.CreatedAt.Format(time.RFC3339),
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("device export: %w", err)
	}
	return buf.Bytes(), nil
}
