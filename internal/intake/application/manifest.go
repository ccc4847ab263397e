package application

import (
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrEmptyManifest is returned when the sheet holds no usable rows.
	ErrEmptyManifest = errors.New("intake: manifest has no rows")
	// ErrManifestTooLarge is returned when the sheet exceeds the row cap.
	ErrManifestTooLarge = errors.New("intake: manifest exceeds row limit")
)

// ManifestRow is one device line from a shipment manifest. Columns:
// serial number, model, manufacturer, notes.
type ManifestRow struct {
	SerialNumber string
	Model        string
	Manufacturer string
	Notes        string
}

// ParseManifest reads an XLSX shipment manifest into rows. Lines without a
// serial number are dropped.
func ParseManifest(r io.Reader, cfg Config) ([]ManifestRow, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sheet := cfg.Sheet
	if sheet == "" {
		sheet = file.GetSheetName(0)
	}
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if cfg.SkipHeader && len(rows) > 0 {
		rows = rows[1:]
	}
	if len(rows) > cfg.MaxRows {
		return nil, ErrManifestTooLarge
	}

	manifest := make([]ManifestRow, 0, len(rows))
	for _, row := range rows {
		entry := ManifestRow{
			SerialNumber: cell(row, 0),
			Model:        cell(row, 1),
			Manufacturer: cell(row, 2),
			Notes:        cell(row, 3),
		}
		if entry.SerialNumber == "" {
			continue
		}
		manifest = append(manifest, entry)
	}
	if len(manifest) == 0 {
		return nil, ErrEmptyManifest
	}
	return manifest, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
