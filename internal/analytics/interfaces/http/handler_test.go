package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	analytics "airmon-cloud/internal/analytics/domain"
	masterdata "airmon-cloud/internal/masterdata/domain"
	telemetry "airmon-cloud/internal/telemetry/domain"
)

type stubService struct {
	station map[string]*analytics.Averages
	region  map[string]*analytics.Averages
}

func (s *stubService) StationAverages(_ context.Context, stationID string, _ analytics.Window) (*analytics.Averages, error) {
	result, ok := s.station[stationID]
	if !ok {
		return nil, masterdata.ErrStationNotFound
	}
	return result, nil
}

func (s *stubService) RegionAverages(_ context.Context, regionID string) (*analytics.Averages, error) {
	result, ok := s.region[regionID]
	if !ok {
		return nil, masterdata.ErrRegionNotFound
	}
	return result, nil
}

func averagesFixture(t *testing.T) *analytics.Averages {
	t.Helper()
	temp := 21.5
	o3 := 0.04
	return &analytics.Averages{
		Fields:  telemetry.Fields{Temp: &temp, O3: &o3},
		Counts:  map[string]int{"temp": 4, "o3": 3},
		Samples: 4,
	}
}

func newTestHandler(t *testing.T, service AggregatesService) *Handler {
	t.Helper()
	handler, err := NewHandler(service)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return handler
}

func TestHandler_StationAverages(t *testing.T) {
	handler := newTestHandler(t, &stubService{station: map[string]*analytics.Averages{
		"st-1": averagesFixture(t),
	}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics/st-1/day", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		StationID string             `json:"stationId"`
		Window    string             `json:"window"`
		Averages  map[string]float64 `json:"averages"`
		Samples   int                `json:"samples"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.StationID != "st-1" || resp.Window != "day" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Averages["temp"] != 21.5 {
		t.Fatalf("temp = %v, want 21.5", resp.Averages["temp"])
	}
	if resp.Samples != 4 {
		t.Fatalf("samples = %d, want 4", resp.Samples)
	}
}

func TestHandler_UnknownWindow(t *testing.T) {
	handler := newTestHandler(t, &stubService{station: map[string]*analytics.Averages{
		"st-1": averagesFixture(t),
	}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics/st-1/fortnight", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_StationNotFound(t *testing.T) {
	handler := newTestHandler(t, &stubService{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics/st-missing/hour", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandler_RegionAverages(t *testing.T) {
	handler := newTestHandler(t, &stubService{region: map[string]*analytics.Averages{
		"rg-1": averagesFixture(t),
	}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics/region/rg-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		RegionID string `json:"regionId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RegionID != "rg-1" {
		t.Fatalf("regionId = %q, want rg-1", resp.RegionID)
	}
}

func TestHandler_ExportCSV(t *testing.T) {
	handler := newTestHandler(t, &stubService{station: map[string]*analytics.Averages{
		"st-1": averagesFixture(t),
	}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics/st-1/week/export.csv", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %q, want text/csv", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "station,window,field,average,samples") {
		t.Fatalf("missing header row in %q", body)
	}
	if !strings.Contains(body, "st-1,week,temp,21.5,4") {
		t.Fatalf("missing temp row in %q", body)
	}
}

func TestHandler_ExportUnknownFormat(t *testing.T) {
	handler := newTestHandler(t, &stubService{station: map[string]*analytics.Averages{
		"st-1": averagesFixture(t),
	}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics/st-1/week/export.doc", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandler_ExportBinaryFormats(t *testing.T) {
	handler := newTestHandler(t, &stubService{station: map[string]*analytics.Averages{
		"st-1": averagesFixture(t),
	}})

	cases := map[string]string{
		"export.xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"export.pdf":  "application/pdf",
	}
	for file, wantType := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics/st-1/month/"+file, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", file, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != wantType {
			t.Fatalf("%s: content type = %q, want %q", file, ct, wantType)
		}
		if rec.Body.Len() == 0 {
			t.Fatalf("%s: empty body", file)
		}
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, &stubService{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/metrics/st-1/day", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
