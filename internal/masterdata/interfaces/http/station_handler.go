package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"airmon-cloud/internal/audit"
	"airmon-cloud/internal/auth"
	masterapp "airmon-cloud/internal/masterdata/application"
	masterdata "airmon-cloud/internal/masterdata/domain"
	"airmon-cloud/internal/observability/metrics"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// StationHandler provides station registry endpoints under /api/v1/stations.
type StationHandler struct {
	service     *masterapp.StationService
	auditLogger audit.Logger
}

// NewStationHandler constructs a handler. The audit logger may be nil.
func NewStationHandler(service *masterapp.StationService, auditLogger audit.Logger) (*StationHandler, error) {
	if service == nil {
		return nil, errors.New("station handler: nil service")
	}
	return &StationHandler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes station requests.
func (h *StationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/stations" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	rest := strings.TrimPrefix(path, "/api/v1/stations/")
	if rest == path || rest == "" || strings.Contains(rest, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch rest {
	case "available":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleAvailable(w, r)
		return
	case "assign":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleAssign(w, r)
		return
	case "release":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleRelease(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, rest)
	case http.MethodPut:
		h.handleUpdate(w, r, rest)
	case http.MethodDelete:
		h.handleDelete(w, r, rest)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type stationRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RegionID  string  `json:"regionId"`
}

func (h *StationHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	station, err := h.service.Create(r.Context(), req.Name, req.Latitude, req.Longitude, req.RegionID)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(stationToDTO(*station))
	h.logAudit(r, "station.create", station.ID, map[string]any{
		"name":      station.Name,
		"region_id": station.RegionID,
	})
}

func (h *StationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	result, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	writeJSON(w, stationPageToDTO(result))
}

func (h *StationHandler) handleAvailable(w http.ResponseWriter, r *http.Request) {
	stations, err := h.service.ListAvailable(r.Context())
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	writeJSON(w, stationsToDTO(stations))
}

func (h *StationHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	station, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	writeJSON(w, stationToDTO(*station))
}

func (h *StationHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	current, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	current.Name = req.Name
	current.Latitude = req.Latitude
	current.Longitude = req.Longitude
	current.RegionID = req.RegionID
	updated, err := h.service.Update(r.Context(), current)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	writeJSON(w, stationToDTO(*updated))
	h.logAudit(r, "station.update", id, map[string]any{
		"name":      updated.Name,
		"region_id": updated.RegionID,
	})
}

func (h *StationHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	policy, err := masterdata.ParseDeletePolicy(r.URL.Query().Get("policy"))
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, policy); err != nil {
		respondMasterdataError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, "station.delete", id, map[string]any{"policy": string(policy)})
}

func (h *StationHandler) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationID string `json:"stationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.service.Assign(r.Context(), req.StationID); err != nil {
		if errors.Is(err, masterdata.ErrAlreadyAssigned) {
			metrics.IncAssignConflict()
		}
		respondMasterdataError(w, err)
		return
	}
	writeJSON(w, map[string]any{"stationId": req.StationID, "assigned": true})
	h.logAudit(r, "station.assign", req.StationID, nil)
}

func (h *StationHandler) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationID string `json:"stationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.service.Release(r.Context(), req.StationID); err != nil {
		respondMasterdataError(w, err)
		return
	}
	writeJSON(w, map[string]any{"stationId": req.StationID, "assigned": false})
	h.logAudit(r, "station.release", req.StationID, nil)
}

func (h *StationHandler) logAudit(r *http.Request, action, stationID string, meta map[string]any) {
	logAudit(h.auditLogger, r, action, "station", stationID, stationID, meta)
}

func pageParams(r *http.Request) (int, int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func logAudit(logger audit.Logger, r *http.Request, action, resourceType, resourceID, stationID string, meta map[string]any) {
	if logger == nil {
		return
	}
	var payload json.RawMessage
	if meta != nil {
		payload, _ = json.Marshal(meta)
	}
	_ = logger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		StationID:    stationID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
