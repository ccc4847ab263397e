package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	diagapp "refurb-cloud/internal/diagnostics/application"
)

// BuildReportPDF renders a minimal PDF for a diagnostic report.
func BuildReportPDF(view *diagapp.ReportView) ([]byte, error) {
	report := view.Report
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Diagnostic Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Asset: %s", report.AssetID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Report: %s", report.ReportID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Agent: %s", report.AgentVersion))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Ingested: %s", report.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	if report.CosmeticGrade != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Cosmetic Grade: %s", report.CosmeticGrade))
		pdf.Ln(5)
	}

	pdf.Ln(4)
	pdf.Cell(0, 6, fmt.Sprintf("Score: %d%%", report.ScorePercent))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Tests: %d passed / %d failed / %d warned of %d",
		report.PassedTests, report.FailedTests, report.WarnedTests, report.TotalTests))
	pdf.Ln(8)

	if hw := view.Hardware; hw != nil {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Hardware")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(0, 6, fmt.Sprintf("CPU: %s (%d cores / %d threads)", hw.CPUModel, hw.CPUCores, hw.CPUThreads))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("RAM: %d GB %s in %d slots", hw.RAMTotalGB, hw.RAMType, hw.RAMSlotCount))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Storage: %d GB across %d devices, health %d%%",
			hw.StorageTotalGB, hw.StorageCount, hw.StorageHealthPercent))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Battery: %d%% health, %d cycles", hw.BatteryHealthPercent, hw.BatteryCycleCount))
		pdf.Ln(8)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Test", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 6, "Message", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, result := range view.Results {
		pdf.CellFormat(70, 6, result.TestName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, string(result.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(95, 6, result.Message, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportXLSX renders a minimal XLSX for a diagnostic report.
func BuildReportXLSX(view *diagapp.ReportView) ([]byte, error) {
	report := view.Report
	f := excelize.NewFile()
	summarySheet := "summary"
	resultsSheet := "results"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(resultsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Diagnostic Report")
	_ = f.SetCellValue(summarySheet, "A3", "Asset")
	_ = f.SetCellValue(summarySheet, "B3", report.AssetID)
	_ = f.SetCellValue(summarySheet, "A4", "Report")
	_ = f.SetCellValue(summarySheet, "B4", report.ReportID)
	_ = f.SetCellValue(summarySheet, "A5", "Agent")
	_ = f.SetCellValue(summarySheet, "B5", report.AgentVersion)
	_ = f.SetCellValue(summarySheet, "A6", "Score %")
	_ = f.SetCellValue(summarySheet, "B6", report.ScorePercent)
	_ = f.SetCellValue(summarySheet, "A7", "Passed")
	_ = f.SetCellValue(summarySheet, "B7", report.PassedTests)
	_ = f.SetCellValue(summarySheet, "A8", "Failed")
	_ = f.SetCellValue(summarySheet, "B8", report.FailedTests)
	_ = f.SetCellValue(summarySheet, "A9", "Warned")
	_ = f.SetCellValue(summarySheet, "B9", report.WarnedTests)
	_ = f.SetCellValue(summarySheet, "A10", "Cosmetic Grade")
	_ = f.SetCellValue(summarySheet, "B10", report.CosmeticGrade)
	_ = f.SetCellValue(summarySheet, "A11", "Ingested")
	_ = f.SetCellValue(summarySheet, "B11", report.CreatedAt.Format(time.RFC3339))

	if hw := view.Hardware; hw != nil {
		_ = f.SetCellValue(summarySheet, "A13", "CPU")
		_ = f.SetCellValue(summarySheet, "B13", hw.CPUModel)
		_ = f.SetCellValue(summarySheet, "A14", "RAM (GB)")
		_ = f.SetCellValue(summarySheet, "B14", hw.RAMTotalGB)
		_ = f.SetCellValue(summarySheet, "A15", "Storage (GB)")
		_ = f.SetCellValue(summarySheet, "B15", hw.StorageTotalGB)
		_ = f.SetCellValue(summarySheet, "A16", "Battery Health %")
		_ = f.SetCellValue(summarySheet, "B16", hw.BatteryHealthPercent)
	}

	_ = f.SetCellValue(resultsSheet, "A1", "Test")
	_ = f.SetCellValue(resultsSheet, "B1", "Status")
	_ = f.SetCellValue(resultsSheet, "C1", "Message")
	for i, result := range view.Results {
		row := i + 2
		_ = f.SetCellValue(resultsSheet, fmt.Sprintf("A%d", row), result.TestName)
		_ = f.SetCellValue(resultsSheet, fmt.Sprintf("B%d", row), string(result.Status))
		_ = f.SetCellValue(resultsSheet, fmt.Sprintf("C%d", row), result.Message)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
