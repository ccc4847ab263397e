package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	diagnostics "refurb-cloud/internal/diagnostics/domain"
)

const defaultReportsTable = "diagnostic_reports"

const reportColumns = `id, report_id, asset_id, device_id, company_id,
	total_tests, passed_tests, failed_tests, warned_tests, score_percent,
	production_mode, scan_started_at, scan_completed_at, scan_duration_seconds,
	agent_version, cosmetic_grade, cosmetic_comments,
	cpu_thermal_min, cpu_thermal_max, cpu_thermal_avg,
	gpu_thermal_min, gpu_thermal_max, gpu_thermal_avg,
	warnings, signature_algorithm, signature_hash, signed_at,
	raw_json, created_at`

// ReportRepository is a Postgres implementation for diagnostic reports.
type ReportRepository struct {
	db    DBTX
	table string
}

// NewReportRepository constructs a repository.
func NewReportRepository(db DBTX, opts ...ReportOption) *ReportRepository {
	repo := &ReportRepository{db: db, table: defaultReportsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ReportOption configures the repository.
type ReportOption func(*ReportRepository)

// WithReportTable overrides the default table name.
func WithReportTable(table string) ReportOption {
	return func(repo *ReportRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Insert stores a new report. Reports are append-only.
func (r *ReportRepository) Insert(ctx context.Context, report *diagnostics.DiagnosticReport) error {
	if r == nil || r.db == nil {
		return errors.New("report repo: nil db")
	}
	if report == nil {
		return errors.New("report repo: nil report")
	}

	warnings, err := json.Marshal(report.Warnings)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`,
		r.table, reportColumns)

	_, err = r.db.ExecContext(ctx, query,
		report.ID,
		report.ReportID,
		report.AssetID,
		report.DeviceID,
		report.CompanyID,
		report.TotalTests,
		report.PassedTests,
		report.FailedTests,
		report.WarnedTests,
		report.ScorePercent,
		report.ProductionMode,
		report.ScanStartedAt,
		report.ScanCompletedAt,
		report.ScanDurationSeconds,
		report.AgentVersion,
		report.CosmeticGrade,
		report.CosmeticComments,
		report.CPUThermalMin,
		report.CPUThermalMax,
		report.CPUThermalAvg,
		report.GPUThermalMin,
		report.GPUThermalMax,
		report.GPUThermalAvg,
		warnings,
		report.SignatureAlgorithm,
		report.SignatureHash,
		report.SignedAt,
		[]byte(report.RawJSON),
		report.CreatedAt,
	)
	return err
}

// ExistsReportID checks whether the agent report id was already ingested
// for the device.
func (r *ReportRepository) ExistsReportID(ctx context.Context, deviceID, reportID string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("report repo: nil db")
	}
	if reportID == "" {
		return false, nil
	}
	query := fmt.Sprintf(`
SELECT EXISTS (
	SELECT 1 FROM %s WHERE device_id = $1 AND report_id = $2
)`, r.table)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, deviceID, reportID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// GetByID loads a report by primary id within a company.
func (r *ReportRepository) GetByID(ctx context.Context, companyID, id string) (*diagnostics.DiagnosticReport, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("report repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE company_id = $1 AND id = $2
LIMIT 1`, reportColumns, r.table)

	report, err := scanReport(r.db.QueryRowContext(ctx, query, companyID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, diagnostics.ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}

// ListByDevice loads reports for one device, newest first.
func (r *ReportRepository) ListByDevice(ctx context.Context, companyID, deviceID string) ([]diagnostics.DiagnosticReport, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("report repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE company_id = $1 AND device_id = $2
ORDER BY created_at DESC`, reportColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, companyID, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]diagnostics.DiagnosticReport, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*diagnostics.DiagnosticReport, error) {
	var report diagnostics.DiagnosticReport
	var scanStartedAt, scanCompletedAt, signedAt sql.NullTime
	var warnings, rawJSON []byte
	if err := row.Scan(
		&report.ID,
		&report.ReportID,
		&report.AssetID,
		&report.DeviceID,
		&report.CompanyID,
		&report.TotalTests,
		&report.PassedTests,
		&report.FailedTests,
		&report.WarnedTests,
		&report.ScorePercent,
		&report.ProductionMode,
		&scanStartedAt,
		&scanCompletedAt,
		&report.ScanDurationSeconds,
		&report.AgentVersion,
		&report.CosmeticGrade,
		&report.CosmeticComments,
		&report.CPUThermalMin,
		&report.CPUThermalMax,
		&report.CPUThermalAvg,
		&report.GPUThermalMin,
		&report.GPUThermalMax,
		&report.GPUThermalAvg,
		&warnings,
		&report.SignatureAlgorithm,
		&report.SignatureHash,
		&signedAt,
		&rawJSON,
		&report.CreatedAt,
	); err != nil {
		return nil, err
	}
	if scanStartedAt.Valid {
		at := scanStartedAt.Time.UTC()
		report.ScanStartedAt = &at
	}
	if scanCompletedAt.Valid {
		at := scanCompletedAt.Time.UTC()
		report.ScanCompletedAt = &at
	}
	if signedAt.Valid {
		at := signedAt.Time.UTC()
		report.SignedAt = &at
	}
	if len(warnings) > 0 {
		_ = json.Unmarshal(warnings, &report.Warnings)
	}
	if report.Warnings == nil {
		report.Warnings = []string{}
	}
	report.RawJSON = json.RawMessage(rawJSON)
	report.CreatedAt = report.CreatedAt.UTC()
	return &report, nil
}
