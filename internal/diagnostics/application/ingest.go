package application

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"refurb-cloud/internal/auth"
	diagnostics "refurb-cloud/internal/diagnostics/domain"
	diagnosticsrepo "refurb-cloud/internal/diagnostics/infrastructure/postgres"
	"refurb-cloud/internal/eventing"
	"refurb-cloud/internal/observability/metrics"
	registry "refurb-cloud/internal/registry/domain"
	registryrepo "refurb-cloud/internal/registry/infrastructure/postgres"
)

// IngestResult summarizes one accepted upload.
type IngestResult struct {
	ReportID     string
	DeviceID     string
	AssetID      string
	DeviceStatus registry.Status
	Summary      diagnostics.Summary
}

// IngestService runs the diagnostic upload pipeline. Every upload is one
// transaction: report, test results, hardware snapshot and the device
// refresh land together or not at all.
type IngestService struct {
	db  *sql.DB
	bus eventing.EventBus
	now func() time.Time
}

// NewIngestService constructs an ingest service.
func NewIngestService(db *sql.DB, bus eventing.EventBus) (*IngestService, error) {
	if db == nil {
		return nil, errors.New("ingest: nil db")
	}
	if bus == nil {
		return nil, errors.New("ingest: nil event bus")
	}
	return &IngestService{db: db, bus: bus, now: time.Now}, nil
}

// WithClock overrides the time source, for tests.
func (s *IngestService) WithClock(now func() time.Time) *IngestService {
	if now != nil {
		s.now = now
	}
	return s
}

// Ingest validates, persists and applies one raw agent payload for the
// device carrying assetID.
func (s *IngestService) Ingest(ctx context.Context, assetID string, raw []byte) (*IngestResult, error) {
	start := time.Now()
	result, err := s.ingest(ctx, assetID, raw)
	if err != nil {
		metrics.IncIngestError(ingestErrorReason(err))
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		return nil, err
	}
	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	return result, nil
}

func (s *IngestService) ingest(ctx context.Context, assetID string, raw []byte) (*IngestResult, error) {
	companyID := auth.CompanyIDFromContext(ctx)
	if companyID == "" {
		return nil, auth.ErrUnauthorized
	}

	payload, err := diagnostics.DecodePayload(raw)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	devices := registryrepo.NewDeviceRepository(tx)
	reports := diagnosticsrepo.NewReportRepository(tx)
	results := diagnosticsrepo.NewTestResultRepository(tx)
	specs := diagnosticsrepo.NewHardwareSpecRepository(tx)

	device, err := devices.GetByAssetID(ctx, companyID, assetID)
	if errors.Is(err, registry.ErrNotFound) {
		// Asset ids are only unique per tenant, so the scoped lookup comes
		// first; the unscoped one just tells a foreign device from a
		// missing one.
		_ = tx.Rollback()
		if _, foreign := devices.FindByAssetID(ctx, assetID); foreign == nil {
			return nil, auth.ErrCompanyMismatch
		}
		return nil, registry.ErrNotFound
	}
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if payload.Metadata.ReportID != "" {
		exists, err := reports.ExistsReportID(ctx, device.ID, payload.Metadata.ReportID)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if exists {
			_ = tx.Rollback()
			return nil, diagnostics.ErrReportExists
		}
	}

	report := diagnostics.BuildReport(payload, raw, assetID, now)
	report.ID = uuid.NewString()
	report.DeviceID = device.ID
	report.CompanyID = device.CompanyID
	if err := reports.Insert(ctx, report); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	testResults := diagnostics.BuildTestResults(payload.Results)
	for i := range testResults {
		testResults[i].ID = uuid.NewString()
		testResults[i].ReportID = report.ID
	}
	if err := results.InsertBatch(ctx, testResults); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	spec := diagnostics.BuildHardwareSpec(payload.Device, now)
	spec.ID = uuid.NewString()
	spec.ReportID = report.ID
	spec.DeviceID = device.ID
	if err := specs.Insert(ctx, spec); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := registry.Transition(device.Status, registry.StatusDiagnosed, registry.TriggerReportIngested); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	device.Status = registry.StatusDiagnosed
	applyReportToDevice(device, report, spec, payload.Device)
	device.UpdatedAt = now
	if err := devices.Save(ctx, device); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	_ = s.bus.Publish(ctx, ReportIngested{
		CompanyID:    device.CompanyID,
		DeviceID:     device.ID,
		AssetID:      device.AssetID,
		ReportID:     report.ID,
		ScorePercent: report.ScorePercent,
		FailedTests:  report.FailedTests,
		At:           now,
	})

	return &IngestResult{
		ReportID:     report.ID,
		DeviceID:     device.ID,
		AssetID:      device.AssetID,
		DeviceStatus: device.Status,
		Summary: diagnostics.Summary{
			Total:  report.TotalTests,
			Passed: report.PassedTests,
			Failed: report.FailedTests,
			Warned: report.WarnedTests,
			Score:  report.ScorePercent,
		},
	}, nil
}

func ingestErrorReason(err error) string {
	switch {
	case errors.Is(err, diagnostics.ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, diagnostics.ErrMissingSections):
		return "missing_sections"
	case errors.Is(err, diagnostics.ErrReportExists):
		return "duplicate_report"
	case errors.Is(err, registry.ErrNotFound):
		return "device_not_found"
	case errors.Is(err, registry.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, auth.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, auth.ErrCompanyMismatch):
		return "company_mismatch"
	default:
		return "internal"
	}
}

// applyReportToDevice refreshes the device diagnostic cache and backfills
// identity fields the intake left blank. Existing identity values win.
func applyReportToDevice(device *registry.Device, report *diagnostics.DiagnosticReport, spec *diagnostics.HardwareSpec, hw *diagnostics.PayloadDevice) {
	reportID := report.ID
	device.LatestReportID = &reportID
	at := report.CreatedAt
	device.LastDiagnosticAt = &at
	device.DiagnosticScore = report.ScorePercent

	device.CPUModel = spec.CPUModel
	device.GPUModel = spec.GPUModel
	device.RAMSizeGB = spec.RAMTotalGB
	device.RAMCount = spec.RAMSlotCount
	device.StorageSizeGB = spec.StorageTotalGB
	device.StorageCount = spec.StorageCount
	device.BatteryHealthPercent = spec.BatteryHealthPercent
	device.StorageHealthPercent = spec.StorageHealthPercent
	device.OS = spec.OSName
	device.BIOSSerial = spec.BIOSSerial

	if hw == nil {
		return
	}
	if device.Model == "" && hw.Model != "" {
		device.Model = hw.Model
	}
	if device.Manufacturer == "" && hw.Manufacturer != "" {
		device.Manufacturer = hw.Manufacturer
	}
	if device.SerialNumber == "" && hw.SerialNumber != "" {
		device.SerialNumber = hw.SerialNumber
	}
}
