package application

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildManifest(t *testing.T, rows [][]string) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetCellValue(sheet, "A1", "serial_number")
	_ = f.SetCellValue(sheet, "B1", "model")
	_ = f.SetCellValue(sheet, "C1", "manufacturer")
	_ = f.SetCellValue(sheet, "D1", "notes")
	for i, row := range rows {
		for j, value := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestParseManifest(t *testing.T) {
	reader := buildManifest(t, [][]string{
		{"SN-1", "Latitude 5420", "Dell", "box damaged"},
		{"SN-2", "ThinkPad T14", "Lenovo"},
		{"", "no serial", "skip me"},
		{"  SN-3  ", "EliteBook 840"},
	})
	rows, err := ParseManifest(reader, Config{SkipHeader: true, MaxRows: 100})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Notes != "box damaged" || rows[1].Manufacturer != "Lenovo" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[2].SerialNumber != "SN-3" {
		t.Fatalf("whitespace not trimmed: %q", rows[2].SerialNumber)
	}
}

func TestParseManifest_Empty(t *testing.T) {
	reader := buildManifest(t, nil)
	if _, err := ParseManifest(reader, Config{SkipHeader: true, MaxRows: 100}); !errors.Is(err, ErrEmptyManifest) {
		t.Fatalf("expected ErrEmptyManifest, got %v", err)
	}
}

func TestParseManifest_RowLimit(t *testing.T) {
	rows := make([][]string, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, []string{fmt.Sprintf("SN-%d", i), "model"})
	}
	reader := buildManifest(t, rows)
	if _, err := ParseManifest(reader, Config{SkipHeader: true, MaxRows: 3}); !errors.Is(err, ErrManifestTooLarge) {
		t.Fatalf("expected ErrManifestTooLarge, got %v", err)
	}
}

func TestParseManifest_NotAnArchive(t *testing.T) {
	if _, err := ParseManifest(bytes.NewReader([]byte("plain text")), Config{MaxRows: 10}); err == nil {
		t.Fatal("expected error for non-xlsx body")
	}
}
