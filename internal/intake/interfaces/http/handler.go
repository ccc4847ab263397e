package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"refurb-cloud/internal/auth"
	intakeapp "refurb-cloud/internal/intake/application"
	registry "refurb-cloud/internal/registry/domain"
)

const importPath = "/api/v1/shipments/import"

// maxManifestBytes caps manifest uploads at 8 MiB.
const maxManifestBytes = 8 << 20

// Handler provides the shipment import endpoint.
type Handler struct {
	service *intakeapp.ImportService
}

// NewHandler constructs a handler.
func NewHandler(service *intakeapp.ImportService) (*Handler, error) {
	if service == nil {
		return nil, errors.New("intake handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles POST /api/v1/shipments/import?vendor=...
// with an XLSX manifest as request body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != importPath {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	vendor := r.URL.Query().Get("vendor")
	body := http.MaxBytesReader(w, r.Body, maxManifestBytes)
	result, err := h.service.Import(r.Context(), vendor, body)
	if err != nil {
		respondImportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result)
}

func respondImportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		http.Error(w, "missing identity", http.StatusUnauthorized)
	case errors.Is(err, intakeapp.ErrVendorRequired),
		errors.Is(err, intakeapp.ErrEmptyManifest),
		errors.Is(err, intakeapp.ErrManifestTooLarge):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, registry.ErrDuplicateSerial):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
