package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"airmon-cloud/internal/audit"
	masterapp "airmon-cloud/internal/masterdata/application"
)

// RegionHandler provides region registry endpoints under /api/v1/regions.
type RegionHandler struct {
	regions     *masterapp.RegionService
	stations    *masterapp.StationService
	auditLogger audit.Logger
}

// NewRegionHandler constructs a handler. The audit logger may be nil.
func NewRegionHandler(regions *masterapp.RegionService, stations *masterapp.StationService, auditLogger audit.Logger) (*RegionHandler, error) {
	if regions == nil {
		return nil, errors.New("region handler: nil region service")
	}
	if stations == nil {
		return nil, errors.New("region handler: nil station service")
	}
	return &RegionHandler{regions: regions, stations: stations, auditLogger: auditLogger}, nil
}

// ServeHTTP routes region requests.
func (h *RegionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/regions" {
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
	rest := strings.TrimPrefix(path, "/api/v1/regions/")
	if rest == path || rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if rest == "search" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleSearch(w, r)
		return
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, parts[0])
		case http.MethodPut:
			h.handleUpdate(w, r, parts[0])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "stations":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleStations(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type regionRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *RegionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	region, err := h.regions.Create(r.Context(), req.Name, req.Latitude, req.Longitude)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(regionToDTO(*region))
	logAudit(h.auditLogger, r, "region.create", "region", region.ID, "", map[string]any{
		"name": region.Name,
	})
}

func (h *RegionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	regions, err := h.regions.List(r.Context())
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	writeJSON(w, regionsToDTO(regions))
}

func (h *RegionHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	result, err := h.regions.Search(r.Context(), r.URL.Query().Get("term"), page, limit)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	writeJSON(w, regionPageToDTO(result))
}

func (h *RegionHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	region, err := h.regions.Get(r.Context(), id)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	writeJSON(w, regionToDTO(*region))
}

func (h *RegionHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req regionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	current, err := h.regions.Get(r.Context(), id)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	current.Name = req.Name
	current.Latitude = req.Latitude
	current.Longitude = req.Longitude
	updated, err := h.regions.Update(r.Context(), current)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	writeJSON(w, regionToDTO(*updated))
	logAudit(h.auditLogger, r, "region.update", "region", id, "", map[string]any{
		"name": updated.Name,
	})
}

func (h *RegionHandler) handleStations(w http.ResponseWriter, r *http.Request, id string) {
	stations, err := h.stations.ListByRegion(r.Context(), id)
	if err != nil {
		respondMasterdataError(w, err)
		return
	}
	writeJSON(w, stationsToDTO(stations))
}
