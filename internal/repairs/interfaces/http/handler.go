package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"refurb-cloud/internal/auth"
	registry "refurb-cloud/internal/registry/domain"
	repairapp "refurb-cloud/internal/repairs/application"
	repairs "refurb-cloud/internal/repairs/domain"
)

const repairsPrefix = "/api/v1/repairs"

// Handler provides the repair workflow HTTP endpoints.
type Handler struct {
	service *repairapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *repairapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("repairs handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/v1/repairs and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == repairsPrefix:
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleOpen(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, repairsPrefix+"/"):
		h.handleItem(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleItem(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, repairsPrefix+"/"), "/")
	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleGet(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "transition":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleTransition(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "parts":
		switch r.Method {
		case http.MethodGet:
			h.handleListParts(w, r, parts[0])
		case http.MethodPost:
			h.handleRequestPart(w, r, parts[0])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 4 && parts[1] == "parts" && parts[3] == "status":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleDecidePart(w, r, parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		http.Error(w, "device_id is required", http.StatusBadRequest)
		return
	}
	list, err := h.service.ListByDevice(r.Context(), deviceID)
	if err != nil {
		respondRepairError(w, err)
		return
	}
	out := make([]repairJSON, 0, len(list))
	for i := range list {
		out = append(out, toRepairJSON(&list[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeviceID string `json:"device_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.DeviceID == "" {
		http.Error(w, "device_id is required", http.StatusBadRequest)
		return
	}
	repair, err := h.service.GetForDevice(r.Context(), body.DeviceID)
	if err != nil {
		respondRepairError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toRepairJSON(repair))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	repair, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondRepairError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toRepairJSON(repair))
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Status     string `json:"status"`
		Technician string `json:"technician"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	next, ok := repairs.NormalizeRepairStatus(body.Status)
	if !ok {
		http.Error(w, "unknown repair status", http.StatusBadRequest)
		return
	}
	repair, err := h.service.Transition(r.Context(), id, next, body.Technician)
	if err != nil {
		respondRepairError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toRepairJSON(repair))
}

func (h *Handler) handleListParts(w http.ResponseWriter, r *http.Request, repairID string) {
	list, err := h.service.ListParts(r.Context(), repairID)
	if err != nil {
		respondRepairError(w, err)
		return
	}
	out := make([]partJSON, 0, len(list))
	for i := range list {
		out = append(out, toPartJSON(&list[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *Handler) handleRequestPart(w http.ResponseWriter, r *http.Request, repairID string) {
	var input repairapp.PartInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	part, err := h.service.RequestPart(r.Context(), repairID, input)
	if err != nil {
		respondRepairError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toPartJSON(part))
}

func (h *Handler) handleDecidePart(w http.ResponseWriter, r *http.Request, partID string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	next, ok := repairs.NormalizePartStatus(body.Status)
	if !ok {
		http.Error(w, "unknown part status", http.StatusBadRequest)
		return
	}
	part, err := h.service.DecidePart(r.Context(), partID, next)
	if err != nil {
		respondRepairError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toPartJSON(part))
}

func respondRepairError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		http.Error(w, "missing identity", http.StatusUnauthorized)
	case errors.Is(err, repairs.ErrRepairNotFound), errors.Is(err, repairs.ErrPartNotFound),
		errors.Is(err, registry.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, repairs.ErrInvalidRepairTransition), errors.Is(err, repairs.ErrRepairClosed),
		errors.Is(err, repairs.ErrOpenRepairExists), errors.Is(err, repairs.ErrInvalidPartStatus),
		errors.Is(err, registry.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, repairs.ErrUnknownRepairStatus):
		http.Error(w, "unknown repair status", http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type repairJSON struct {
	ID            string                 `json:"id"`
	DeviceID      string                 `json:"device_id"`
	Status        string                 `json:"status"`
	Description   string                 `json:"description,omitempty"`
	Technician    string                 `json:"technician,omitempty"`
	StatusHistory []repairs.HistoryEntry `json:"status_history"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	ClosedAt      *time.Time             `json:"closed_at,omitempty"`
}

func toRepairJSON(repair *repairs.Repair) repairJSON {
	return repairJSON{
		ID:            repair.ID,
		DeviceID:      repair.DeviceID,
		Status:        string(repair.Status),
		Description:   repair.Description,
		Technician:    repair.Technician,
		StatusHistory: repair.StatusHistory,
		CreatedAt:     repair.CreatedAt,
		UpdatedAt:     repair.UpdatedAt,
		ClosedAt:      repair.ClosedAt,
	}
}

type partJSON struct {
	ID          string    `json:"id"`
	RepairID    string    `json:"repair_id"`
	PartName    string    `json:"part_name"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	RequestedBy string    `json:"requested_by,omitempty"`
	DecidedBy   string    `json:"decided_by,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toPartJSON(part *repairs.SparePartsRequest) partJSON {
	return partJSON{
		ID:          part.ID,
		RepairID:    part.RepairID,
		PartName:    part.PartName,
		Quantity:    part.Quantity,
		Status:      string(part.Status),
		RequestedBy: part.RequestedBy,
		DecidedBy:   part.DecidedBy,
		Notes:       part.Notes,
		CreatedAt:   part.CreatedAt,
	}
}
