package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	analyticsapp "airmon-cloud/internal/analytics/application"
	analytics "airmon-cloud/internal/analytics/domain"
	masterdata "airmon-cloud/internal/masterdata/domain"
	"airmon-cloud/internal/observability/metrics"
)

// AggregatesService answers windowed and regional aggregate queries.
type AggregatesService interface {
	StationAverages(ctx context.Context, stationID string, window analytics.Window) (*analytics.Averages, error)
	RegionAverages(ctx context.Context, regionID string) (*analytics.Averages, error)
}

var _ AggregatesService = (*analyticsapp.MetricsService)(nil)

// Handler provides metric HTTP endpoints under /api/v1/metrics.
type Handler struct {
	service AggregatesService
}

// NewHandler constructs a handler.
func NewHandler(service AggregatesService) (*Handler, error) {
	if service == nil {
		return nil, errors.New("metrics handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP routes metric requests. Supported paths:
//
//	GET /api/v1/metrics/region/{regionId}
//	GET /api/v1/metrics/{stationId}/{window}
//	GET /api/v1/metrics/{stationId}/{window}/export.{csv|xlsx|pdf}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/metrics/")
	if rest == r.URL.Path || rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	if parts[0] == "region" && len(parts) == 2 {
		h.handleRegion(w, r, parts[1])
		return
	}
	switch len(parts) {
	case 2:
		h.handleStation(w, r, parts[0], parts[1])
	case 3:
		h.handleExport(w, r, parts[0], parts[1], parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleStation(w http.ResponseWriter, r *http.Request, stationID, windowName string) {
	window, err := analytics.ParseWindow(windowName)
	if err != nil {
		respondError(w, err)
		return
	}
	result, err := h.service.StationAverages(r.Context(), stationID, window)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, struct {
		StationID string `json:"stationId"`
		Window    string `json:"window"`
		*analytics.Averages
	}{StationID: stationID, Window: string(window), Averages: result})
}

func (h *Handler) handleRegion(w http.ResponseWriter, r *http.Request, regionID string) {
	result, err := h.service.RegionAverages(r.Context(), regionID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, struct {
		RegionID string `json:"regionId"`
		*analytics.Averages
	}{RegionID: regionID, Averages: result})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, stationID, windowName, file string) {
	format, ok := strings.CutPrefix(file, "export.")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	window, err := analytics.ParseWindow(windowName)
	if err != nil {
		metrics.ObserveExport(format, false)
		respondError(w, err)
		return
	}
	result, err := h.service.StationAverages(r.Context(), stationID, window)
	if err != nil {
		metrics.ObserveExport(format, false)
		respondError(w, err)
		return
	}

	var data []byte
	var contentType string
	switch format {
	case "csv":
		data, err = BuildAveragesCSV(stationID, window, result)
		contentType = "text/csv"
	case "xlsx":
		data, err = BuildAveragesXLSX(stationID, window, result)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		data, err = BuildAveragesPDF(stationID, window, result)
		contentType = "application/pdf"
	default:
		metrics.ObserveExport(format, false)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		metrics.ObserveExport(format, false)
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(format, true)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%s.%s", stationID, window, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidWindow):
		http.Error(w, "unknown window", http.StatusBadRequest)
	case errors.Is(err, masterdata.ErrStationNotFound):
		http.Error(w, "station not found", http.StatusNotFound)
	case errors.Is(err, masterdata.ErrRegionNotFound):
		http.Error(w, "region not found", http.StatusNotFound)
	case errors.Is(err, analytics.ErrNoData):
		http.Error(w, "no readings in window", http.StatusNotFound)
	case errors.Is(err, analytics.ErrStoreUnavailable):
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
