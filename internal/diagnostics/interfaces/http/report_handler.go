package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	diagapp "refurb-cloud/internal/diagnostics/application"
	diagnostics "refurb-cloud/internal/diagnostics/domain"
	"refurb-cloud/internal/diagnostics/interfaces"
	"refurb-cloud/internal/observability/metrics"
)

const reportsPrefix = "/api/v1/diagnostic-reports"

// ReportHandler serves stored diagnostic reports.
type ReportHandler struct {
	service *diagapp.QueryService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(service *diagapp.QueryService) (*ReportHandler, error) {
	if service == nil {
		return nil, errors.New("report handler: nil service")
	}
	return &ReportHandler{service: service}, nil
}

// ServeHTTP handles /api/v1/diagnostic-reports and subroutes.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch {
	case r.URL.Path == reportsPrefix:
		h.handleList(w, r)
	case strings.HasPrefix(r.URL.Path, reportsPrefix+"/"):
		h.handleGet(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ReportHandler) handleList(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		http.Error(w, "device_id is required", http.StatusBadRequest)
		return
	}
	reports, err := h.service.ListByDevice(r.Context(), deviceID)
	if err != nil {
		respondReportError(w, err)
		return
	}
	summaries := make([]reportSummaryJSON, 0, len(reports))
	for i := range reports {
		summaries = append(summaries, toReportSummary(&reports[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summaries)
}

func (h *ReportHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, reportsPrefix+"/")
	parts := strings.Split(rest, "/")

	switch len(parts) {
	case 1:
		view, err := h.service.Get(r.Context(), parts[0])
		if err != nil {
			respondReportError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toReportDetail(view))
	case 2:
		h.handleExport(w, r, parts[0], parts[1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ReportHandler) handleExport(w http.ResponseWriter, r *http.Request, id, format string) {
	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondReportError(w, err)
		return
	}
	switch format {
	case "export.pdf":
		data, err := interfaces.BuildReportPDF(view)
		if err != nil {
			metrics.IncExport("pdf", metrics.ResultError)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.IncExport("pdf", metrics.ResultSuccess)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="report-`+id+`.pdf"`)
		_, _ = w.Write(data)
	case "export.xlsx":
		data, err := interfaces.BuildReportXLSX(view)
		if err != nil {
			metrics.IncExport("xlsx", metrics.ResultError)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.IncExport("xlsx", metrics.ResultSuccess)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="report-`+id+`.xlsx"`)
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func respondReportError(w http.ResponseWriter, err error) {
	if errors.Is(err, diagnostics.ErrReportNotFound) {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

type reportSummaryJSON struct {
	ID           string     `json:"id"`
	ReportID     string     `json:"report_id"`
	AssetID      string     `json:"asset_id"`
	DeviceID     string     `json:"device_id"`
	ScorePercent int        `json:"score_percent"`
	TotalTests   int        `json:"total_tests"`
	PassedTests  int        `json:"passed_tests"`
	FailedTests  int        `json:"failed_tests"`
	WarnedTests  int        `json:"warned_tests"`
	AgentVersion string     `json:"agent_version"`
	CreatedAt    time.Time  `json:"created_at"`
	ScanStarted  *time.Time `json:"scan_started_at,omitempty"`
}

func toReportSummary(report *diagnostics.DiagnosticReport) reportSummaryJSON {
	return reportSummaryJSON{
		ID:           report.ID,
		ReportID:     report.ReportID,
		AssetID:      report.AssetID,
		DeviceID:     report.DeviceID,
		ScorePercent: report.ScorePercent,
		TotalTests:   report.TotalTests,
		PassedTests:  report.PassedTests,
		FailedTests:  report.FailedTests,
		WarnedTests:  report.WarnedTests,
		AgentVersion: report.AgentVersion,
		CreatedAt:    report.CreatedAt,
		ScanStarted:  report.ScanStartedAt,
	}
}

type reportDetailJSON struct {
	reportSummaryJSON
	CosmeticGrade    string            `json:"cosmetic_grade"`
	CosmeticComments string            `json:"cosmetic_comments,omitempty"`
	Warnings         []string          `json:"warnings"`
	Results          []testResultJSON  `json:"results"`
	Hardware         *hardwareSpecJSON `json:"hardware,omitempty"`
}

type testResultJSON struct {
	TestID   string          `json:"test_id"`
	TestName string          `json:"test_name"`
	Status   string          `json:"status"`
	Message  string          `json:"message,omitempty"`
	Details  json.RawMessage `json:"details,omitempty"`
}

type hardwareSpecJSON struct {
	CPUModel             string          `json:"cpu_model"`
	CPUCores             int             `json:"cpu_cores"`
	CPUThreads           int             `json:"cpu_threads"`
	RAMTotalGB           int             `json:"ram_total_gb"`
	RAMType              string          `json:"ram_type"`
	RAMSlotCount         int             `json:"ram_slot_count"`
	GPUModel             string          `json:"gpu_model"`
	StorageTotalGB       int             `json:"storage_total_gb"`
	StorageCount         int             `json:"storage_count"`
	StorageHealthPercent int             `json:"storage_health_percent"`
	BatteryHealthPercent int             `json:"battery_health_percent"`
	BatteryCycleCount    int             `json:"battery_cycle_count"`
	OSName               string          `json:"os_name"`
	BIOSSerial           string          `json:"bios_serial"`
	Storage              json.RawMessage `json:"storage,omitempty"`
	GPUs                 json.RawMessage `json:"gpus,omitempty"`
}

func toReportDetail(view *diagapp.ReportView) reportDetailJSON {
	detail := reportDetailJSON{
		reportSummaryJSON: toReportSummary(view.Report),
		CosmeticGrade:     view.Report.CosmeticGrade,
		CosmeticComments:  view.Report.CosmeticComments,
		Warnings:          view.Report.Warnings,
		Results:           make([]testResultJSON, 0, len(view.Results)),
	}
	for _, result := range view.Results {
		detail.Results = append(detail.Results, testResultJSON{
			TestID:   result.TestID,
			TestName: result.TestName,
			Status:   string(result.Status),
			Message:  result.Message,
			Details:  result.Details,
		})
	}
	if hw := view.Hardware; hw != nil {
		detail.Hardware = &hardwareSpecJSON{
			CPUModel:             hw.CPUModel,
			CPUCores:             hw.CPUCores,
			CPUThreads:           hw.CPUThreads,
			RAMTotalGB:           hw.RAMTotalGB,
			RAMType:              hw.RAMType,
			RAMSlotCount:         hw.RAMSlotCount,
			GPUModel:             hw.GPUModel,
			StorageTotalGB:       hw.StorageTotalGB,
			StorageCount:         hw.StorageCount,
			StorageHealthPercent: hw.StorageHealthPercent,
			BatteryHealthPercent: hw.BatteryHealthPercent,
			BatteryCycleCount:    hw.BatteryCycleCount,
			OSName:               hw.OSName,
			BIOSSerial:           hw.BIOSSerial,
			Storage:              hw.StorageDevices,
			GPUs:                 hw.GPUs,
		}
	}
	return detail
}
