package application

import (
	"context"
	"database/sql"
	"errors"

	"refurb-cloud/internal/auth"
	diagnostics "refurb-cloud/internal/diagnostics/domain"
	diagnosticsrepo "refurb-cloud/internal/diagnostics/infrastructure/postgres"
)

// ReportView bundles one report with its detail rows.
type ReportView struct {
	Report   *diagnostics.DiagnosticReport
	Results  []diagnostics.TestResult
	Hardware *diagnostics.HardwareSpec
}

// QueryService serves read access to stored reports.
type QueryService struct {
	reports *diagnosticsrepo.ReportRepository
	results *diagnosticsrepo.TestResultRepository
	specs   *diagnosticsrepo.HardwareSpecRepository
}

// NewQueryService constructs a query service.
func NewQueryService(db *sql.DB) (*QueryService, error) {
	if db == nil {
		return nil, errors.New("diagnostics query: nil db")
	}
	return &QueryService{
		reports: diagnosticsrepo.NewReportRepository(db),
		results: diagnosticsrepo.NewTestResultRepository(db),
		specs:   diagnosticsrepo.NewHardwareSpecRepository(db),
	}, nil
}

// Get loads one report with test results and the hardware snapshot.
func (s *QueryService) Get(ctx context.Context, id string) (*ReportView, error) {
	companyID := auth.CompanyIDFromContext(ctx)
	if companyID == "" {
		return nil, auth.ErrUnauthorized
	}
	report, err := s.reports.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	results, err := s.results.ListByReport(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	hardware, err := s.specs.GetByReport(ctx, report.ID)
	if err != nil && !errors.Is(err, diagnostics.ErrReportNotFound) {
		return nil, err
	}
	return &ReportView{Report: report, Results: results, Hardware: hardware}, nil
}

// ListByDevice loads report summaries for one device, newest first.
func (s *QueryService) ListByDevice(ctx context.Context, deviceID string) ([]diagnostics.DiagnosticReport, error) {
	companyID := auth.CompanyIDFromContext(ctx)
	if companyID == "" {
		return nil, auth.ErrUnauthorized
	}
	return s.reports.ListByDevice(ctx, companyID, deviceID)
}
