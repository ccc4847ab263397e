package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"refurb-cloud/internal/auth"
	diagapp "refurb-cloud/internal/diagnostics/application"
	diagnostics "refurb-cloud/internal/diagnostics/domain"
	registry "refurb-cloud/internal/registry/domain"
)

const uploadPrefix = "/agent/diagnostic-reports/upload/"

// apiUploadPrefix is the JWT-authenticated alias for back-office uploads.
const apiUploadPrefix = "/api/v1/diagnostic-reports/upload/"

// maxUploadBytes caps agent payloads at 16 MiB.
const maxUploadBytes = 16 << 20

// UploadHandler accepts raw agent payloads.
type UploadHandler struct {
	service *diagapp.IngestService
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(service *diagapp.IngestService) (*UploadHandler, error) {
	if service == nil {
		return nil, errors.New("upload handler: nil service")
	}
	return &UploadHandler{service: service}, nil
}

// ServeHTTP handles POST /agent/diagnostic-reports/upload/{asset_id} and
// its authenticated alias under /api/v1.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var assetID string
	switch {
	case strings.HasPrefix(r.URL.Path, uploadPrefix):
		assetID = strings.TrimPrefix(r.URL.Path, uploadPrefix)
	case strings.HasPrefix(r.URL.Path, apiUploadPrefix):
		assetID = strings.TrimPrefix(r.URL.Path, apiUploadPrefix)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if assetID == "" || strings.Contains(assetID, "/") {
		writeUploadError(w, http.StatusNotFound, "unknown asset id")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		writeUploadError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(body) > maxUploadBytes {
		writeUploadError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	result, err := h.service.Ingest(r.Context(), assetID, body)
	if err != nil {
		status, message := uploadErrorStatus(err)
		writeUploadError(w, status, message)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":       true,
		"report_id":     result.ReportID,
		"device_id":     result.DeviceID,
		"asset_id":      result.AssetID,
		"device_status": result.DeviceStatus,
		"summary": map[string]int{
			"total":  result.Summary.Total,
			"passed": result.Summary.Passed,
			"failed": result.Summary.Failed,
			"warned": result.Summary.Warned,
			"score":  result.Summary.Score,
		},
	})
}

func uploadErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, diagnostics.ErrMalformedPayload):
		return http.StatusBadRequest, "malformed payload"
	case errors.Is(err, diagnostics.ErrMissingSections):
		return http.StatusUnprocessableEntity, "payload missing required sections"
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound, "unknown asset id"
	case errors.Is(err, auth.ErrCompanyMismatch):
		return http.StatusForbidden, "device belongs to another company"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "missing identity"
	case errors.Is(err, diagnostics.ErrReportExists):
		return http.StatusConflict, "report already ingested"
	case errors.Is(err, registry.ErrInvalidTransition):
		return http.StatusConflict, "device state does not accept reports"
	default:
		return http.StatusInternalServerError, "ingest failed"
	}
}

func writeUploadError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}
