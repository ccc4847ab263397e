package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"refurb-cloud/internal/auth"
	registryapp "refurb-cloud/internal/registry/application"
	registry "refurb-cloud/internal/registry/domain"
	"refurb-cloud/internal/registry/interfaces"

	"github.com/jackc/pgx/v5/pgconn"
)

const devicesPrefix = "/api/v1/devices"

// exportRowLimit caps the inventory export.
const exportRowLimit = 500

// DeviceHandler provides device registry HTTP endpoints.
type DeviceHandler struct {
	service *registryapp.Service
}

// NewDeviceHandler constructs a handler.
func NewDeviceHandler(service *registryapp.Service) (*DeviceHandler, error) {
	if service == nil {
		return nil, errors.New("device handler: nil service")
	}
	return &DeviceHandler{service: service}, nil
}

// ServeHTTP handles /api/v1/devices and subroutes.
func (h *DeviceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	companyID := auth.CompanyIDFromContext(r.Context())
	if companyID == "" {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	switch {
	case r.URL.Path == devicesPrefix:
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r, companyID)
		case http.MethodPost:
			h.handleCreate(w, r, companyID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, devicesPrefix+"/"):
		h.handleItem(w, r, companyID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *DeviceHandler) handleItem(w http.ResponseWriter, r *http.Request, companyID string) {
	rest := strings.TrimPrefix(r.URL.Path, devicesPrefix+"/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] == "export.xlsx":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r, companyID)
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, companyID, parts[0])
		case http.MethodPatch:
			h.handlePatch(w, r, companyID, parts[0])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "transition":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleTransition(w, r, companyID, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *DeviceHandler) handleExport(w http.ResponseWriter, r *http.Request, companyID string) {
	devices, err := h.service.List(r.Context(), companyID, registry.Filter{Limit: exportRowLimit})
	if err != nil {
		respondDeviceError(w, err)
		return
	}
	data, err := interfaces.BuildDeviceListXLSX(devices)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="devices.xlsx"`)
	_, _ = w.Write(data)
}

func (h *DeviceHandler) handleCreate(w http.ResponseWriter, r *http.Request, companyID string) {
	var input registryapp.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	device, err := h.service.Create(r.Context(), companyID, input)
	if err != nil {
		respondDeviceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toDeviceJSON(device))
}

func (h *DeviceHandler) handleList(w http.ResponseWriter, r *http.Request, companyID string) {
	filter := registry.Filter{
		BranchID: r.URL.Query().Get("branch_id"),
		Search:   r.URL.Query().Get("search"),
		Sort:     r.URL.Query().Get("sort"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		normalized, ok := registry.NormalizeStatus(status)
		if !ok {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}
		filter.Status = normalized
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		value, err := strconv.Atoi(limit)
		if err != nil || value < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = value
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		value, err := strconv.Atoi(offset)
		if err != nil || value < 0 {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}
		filter.Offset = value
	}

	devices, err := h.service.List(r.Context(), companyID, filter)
	if err != nil {
		respondDeviceError(w, err)
		return
	}
	list := make([]deviceJSON, 0, len(devices))
	for i := range devices {
		list = append(list, toDeviceJSON(&devices[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *DeviceHandler) handleGet(w http.ResponseWriter, r *http.Request, companyID, id string) {
	device, err := h.service.Get(r.Context(), companyID, id)
	if errors.Is(err, registry.ErrNotFound) {
		// Fall back to asset id lookup so both identifiers work.
		device, err = h.service.GetByAssetID(r.Context(), companyID, id)
	}
	if err != nil {
		respondDeviceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDeviceJSON(device))
}

func (h *DeviceHandler) handlePatch(w http.ResponseWriter, r *http.Request, companyID, id string) {
	var body devicePatchJSON
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	device, err := h.service.Update(r.Context(), companyID, id, body.toPatch())
	if err != nil {
		respondDeviceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDeviceJSON(device))
}

func (h *DeviceHandler) handleTransition(w http.ResponseWriter, r *http.Request, companyID, id string) {
	var body transitionJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	next, ok := registry.NormalizeStatus(body.Status)
	if !ok {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}
	// Sale and branch moves are back-office decisions.
	if next == registry.StatusSold || next == registry.StatusInBranch {
		if !auth.RoleAtLeast(auth.RoleFromContext(r.Context()), auth.RoleManager) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}
	side := registryapp.SideEffects{
		CurrentLocation: body.CurrentLocation,
		BranchID:        body.BranchID,
		AssignedTo:      body.AssignedTo,
		Notes:           body.Notes,
	}
	device, err := h.service.Transition(r.Context(), companyID, id, next, registry.Trigger(body.Trigger), side)
	if errors.Is(err, registry.ErrNotFound) {
		device, err = h.service.TransitionByAssetID(r.Context(), companyID, id, next, registry.Trigger(body.Trigger), side)
	}
	if err != nil {
		respondDeviceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDeviceJSON(device))
}

// pgUniqueViolation is the Postgres unique_violation SQLSTATE.
const pgUniqueViolation = "23505"

func respondDeviceError(w http.ResponseWriter, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		http.Error(w, "device not found", http.StatusNotFound)
	case errors.Is(err, registry.ErrDuplicateSerial):
		http.Error(w, "serial number already registered", http.StatusConflict)
	case errors.Is(err, registry.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, registry.ErrUnknownStatus):
		http.Error(w, "unknown status", http.StatusBadRequest)
	case errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation:
		http.Error(w, "device identifiers already registered", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type deviceJSON struct {
	ID              string `json:"id"`
	AssetID         string `json:"asset_id"`
	SerialNumber    string `json:"serial_number"`
	Model           string `json:"model"`
	Manufacturer    string `json:"manufacturer,omitempty"`
	Status          string `json:"status"`
	CurrentLocation string `json:"current_location,omitempty"`
	BranchID        string `json:"branch_id,omitempty"`
	AssignedTo      string `json:"assigned_to,omitempty"`
	Notes           string `json:"notes,omitempty"`

	LatestReportID   *string    `json:"latest_report_id,omitempty"`
	LastDiagnosticAt *time.Time `json:"last_diagnostic_at,omitempty"`
	DiagnosticScore  int        `json:"diagnostic_score"`

	CPUModel             string `json:"cpu_model,omitempty"`
	GPUModel             string `json:"gpu_model,omitempty"`
	RAMSizeGB            int    `json:"ram_size_gb,omitempty"`
	RAMCount             int    `json:"ram_count,omitempty"`
	StorageSizeGB        int    `json:"storage_size_gb,omitempty"`
	StorageCount         int    `json:"storage_count,omitempty"`
	BatteryHealthPercent int    `json:"battery_health_percent,omitempty"`
	StorageHealthPercent int    `json:"storage_health_percent,omitempty"`
	OS                   string `json:"os,omitempty"`
	BIOSSerial           string `json:"bios_serial,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toDeviceJSON(device *registry.Device) deviceJSON {
	return deviceJSON{
		ID:                   device.ID,
		AssetID:              device.AssetID,
		SerialNumber:         device.SerialNumber,
		Model:                device.Model,
		Manufacturer:         device.Manufacturer,
		Status:               string(device.Status),
		CurrentLocation:      device.CurrentLocation,
		BranchID:             device.BranchID,
		AssignedTo:           device.AssignedTo,
		Notes:                device.Notes,
		LatestReportID:       device.LatestReportID,
		LastDiagnosticAt:     device.LastDiagnosticAt,
		DiagnosticScore:      device.DiagnosticScore,
		CPUModel:             device.CPUModel,
		GPUModel:             device.GPUModel,
		RAMSizeGB:            device.RAMSizeGB,
		RAMCount:             device.RAMCount,
		StorageSizeGB:        device.StorageSizeGB,
		StorageCount:         device.StorageCount,
		BatteryHealthPercent: device.BatteryHealthPercent,
		StorageHealthPercent: device.StorageHealthPercent,
		OS:                   device.OS,
		BIOSSerial:           device.BIOSSerial,
		CreatedAt:            device.CreatedAt,
		UpdatedAt:            device.UpdatedAt,
	}
}

// devicePatchJSON mirrors the typed patch allow-list. Status and company
// scope are not accepted here; unknown fields are rejected.
type devicePatchJSON struct {
	SerialNumber    *string `json:"serial_number"`
	Model           *string `json:"model"`
	Manufacturer    *string `json:"manufacturer"`
	CurrentLocation *string `json:"current_location"`
	BranchID        *string `json:"branch_id"`
	AssignedTo      *string `json:"assigned_to"`
	Notes           *string `json:"notes"`

	CPUModel             *string `json:"cpu_model"`
	GPUModel             *string `json:"gpu_model"`
	RAMSizeGB            *int    `json:"ram_size_gb"`
	RAMCount             *int    `json:"ram_count"`
	StorageSizeGB        *int    `json:"storage_size_gb"`
	StorageCount         *int    `json:"storage_count"`
	BatteryHealthPercent *int    `json:"battery_health_percent"`
	StorageHealthPercent *int    `json:"storage_health_percent"`
	OS                   *string `json:"os"`
	BIOSSerial           *string `json:"bios_serial"`
}

func (p devicePatchJSON) toPatch() registry.Patch {
	return registry.Patch{
		SerialNumber:         p.SerialNumber,
		Model:                p.Model,
		Manufacturer:         p.Manufacturer,
		CurrentLocation:      p.CurrentLocation,
		BranchID:             p.BranchID,
		AssignedTo:           p.AssignedTo,
		Notes:                p.Notes,
		CPUModel:             p.CPUModel,
		GPUModel:             p.GPUModel,
		RAMSizeGB:            p.RAMSizeGB,
		RAMCount:             p.RAMCount,
		StorageSizeGB:        p.StorageSizeGB,
		StorageCount:         p.StorageCount,
		BatteryHealthPercent: p.BatteryHealthPercent,
		StorageHealthPercent: p.StorageHealthPercent,
		OS:                   p.OS,
		BIOSSerial:           p.BIOSSerial,
	}
}

type transitionJSON struct {
	Status  string `json:"status"`
	Trigger string `json:"trigger"`

	CurrentLocation *string `json:"current_location"`
	BranchID        *string `json:"branch_id"`
	AssignedTo      *string `json:"assigned_to"`
	Notes           *string `json:"notes"`
}
