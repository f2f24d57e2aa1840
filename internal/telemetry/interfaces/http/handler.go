package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	masterdata "airmon-cloud/internal/masterdata/domain"
	telemetryapp "airmon-cloud/internal/telemetry/application"
	telemetry "airmon-cloud/internal/telemetry/domain"
)

const timeLayout = time.RFC3339

// Handler provides sensor reading endpoints under /api/v1/sensors.
type Handler struct {
	service *telemetryapp.IngestService
}

// NewHandler constructs a handler.
func NewHandler(service *telemetryapp.IngestService) (*Handler, error) {
	if service == nil {
		return nil, errors.New("sensor handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP routes sensor requests. Supported paths:
//
//	POST /api/v1/sensors/{stationId}
//	GET  /api/v1/sensors/{stationId}?from=&to=
//	GET  /api/v1/sensors/{stationId}/latest
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sensors/")
	if rest == r.URL.Path || rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodPost:
			h.handleIngest(w, r, parts[0])
		case http.MethodGet:
			h.handleHistory(w, r, parts[0])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "latest":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleLatest(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type ingestRequest struct {
	telemetry.Fields
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request, stationID string) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	var at time.Time
	if req.Timestamp != nil {
		at = *req.Timestamp
	}
	reading, err := h.service.Ingest(r.Context(), stationID, req.Fields, at)
	if err != nil {
		respondSensorError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(readingToDTO(*reading))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, stationID string) {
	var from, to time.Time
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.Parse(timeLayout, raw)
		if err != nil {
			http.Error(w, "invalid from timestamp", http.StatusBadRequest)
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err = time.Parse(timeLayout, raw)
		if err != nil {
			http.Error(w, "invalid to timestamp", http.StatusBadRequest)
			return
		}
	}
	readings, err := h.service.History(r.Context(), stationID, from, to)
	if err != nil {
		respondSensorError(w, err)
		return
	}
	out := make([]readingDTO, 0, len(readings))
	for _, reading := range readings {
		out = append(out, readingToDTO(reading))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request, stationID string) {
	reading, err := h.service.Latest(r.Context(), stationID)
	if err != nil {
		respondSensorError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(readingToDTO(*reading))
}

type readingDTO struct {
	ID        string    `json:"id"`
	StationID string    `json:"stationId"`
	Timestamp time.Time `json:"timestamp"`
	telemetry.Fields
}

func readingToDTO(reading telemetry.Reading) readingDTO {
	return readingDTO{
		ID:        reading.ID,
		StationID: reading.StationID,
		Timestamp: reading.Timestamp,
		Fields:    reading.Fields,
	}
}

func respondSensorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, masterdata.ErrStationNotFound):
		http.Error(w, "station not found", http.StatusNotFound)
	case errors.Is(err, telemetry.ErrReadingNotFound):
		http.Error(w, "no readings", http.StatusNotFound)
	case errors.Is(err, telemetry.ErrInvalidRange):
		http.Error(w, "invalid range", http.StatusBadRequest)
	case errors.Is(err, telemetry.ErrPartialWrite):
		http.Error(w, "partial write", http.StatusInternalServerError)
	case errors.Is(err, telemetry.ErrStoreUnavailable):
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
