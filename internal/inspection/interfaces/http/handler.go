package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"refurb-cloud/internal/auth"
	inspectionapp "refurb-cloud/internal/inspection/application"
	registry "refurb-cloud/internal/registry/domain"
)

const inspectionsPrefix = "/api/v1/inspections/"

// Handler provides the inspection workflow HTTP endpoints.
type Handler struct {
	service *inspectionapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *inspectionapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("inspection handler: nil service")
	}
	return &Handler{service: service}, nil
}

type physicalStartJSON struct {
	Location *string `json:"location"`
}

type physicalRecordJSON struct {
	Notes *string `json:"notes"`
}

type technicalRecordJSON struct {
	ReadyForSale bool    `json:"ready_for_sale"`
	Notes        *string `json:"notes"`
}

type reviewJSON struct {
	Decision string  `json:"decision"`
	Notes    *string `json:"notes"`
}

// ServeHTTP handles /api/v1/inspections/{asset_id}/... routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	companyID := auth.CompanyIDFromContext(r.Context())
	if companyID == "" {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	if !strings.HasPrefix(r.URL.Path, inspectionsPrefix) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, inspectionsPrefix), "/")
	if len(parts) < 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	assetID := parts[0]
	action := strings.Join(parts[1:], "/")

	var (
		device *registry.Device
		err    error
	)
	switch action {
	case "physical/start":
		var body physicalStartJSON
		if !decodeBody(w, r, &body) {
			return
		}
		device, err = h.service.StartPhysical(r.Context(), companyID, assetID, body.Location)
	case "physical":
		var body physicalRecordJSON
		if !decodeBody(w, r, &body) {
			return
		}
		device, err = h.service.RecordPhysical(r.Context(), companyID, assetID, body.Notes)
	case "technical":
		var body technicalRecordJSON
		if !decodeBody(w, r, &body) {
			return
		}
		device, err = h.service.RecordTechnical(r.Context(), companyID, assetID, body.ReadyForSale, body.Notes)
	case "review":
		var body reviewJSON
		if !decodeBody(w, r, &body) {
			return
		}
		device, err = h.service.Review(r.Context(), companyID, assetID, body.Decision, body.Notes)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		respondInspectionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"asset_id": device.AssetID,
		"status":   string(device.Status),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func respondInspectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		http.Error(w, "device not found", http.StatusNotFound)
	case errors.Is(err, registry.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, inspectionapp.ErrUnknownDecision):
		http.Error(w, "unknown decision", http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
