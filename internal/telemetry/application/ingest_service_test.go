package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"airmon-cloud/internal/eventing/eventbus"
	masterdata "airmon-cloud/internal/masterdata/domain"
	"airmon-cloud/internal/telemetry/application/events"
	telemetry "airmon-cloud/internal/telemetry/domain"
)

func ptr(v float64) *float64 { return &v }

type stubStations struct {
	known map[string]bool
}

func (s stubStations) Get(_ context.Context, id string) (*masterdata.Station, error) {
	if !s.known[id] {
		return nil, masterdata.ErrStationNotFound
	}
	return &masterdata.Station{ID: id, Name: "s", Latitude: 0, Longitude: 0, RegionID: "rg-1"}, nil
}

type memLiveRepo struct {
	mu        sync.Mutex
	readings  []telemetry.Reading
	insertErr error
}

func (m *memLiveRepo) Insert(_ context.Context, reading *telemetry.Reading) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, *reading)
	return nil
}

func (m *memLiveRepo) Latest(_ context.Context, stationID string) (*telemetry.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *telemetry.Reading
	for i := range m.readings {
		r := m.readings[i]
		if r.StationID != stationID {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			copied := r
			latest = &copied
		}
	}
	if latest == nil {
		return nil, telemetry.ErrReadingNotFound
	}
	return latest, nil
}

func (m *memLiveRepo) LatestPerStation(ctx context.Context, stationIDs []string) ([]telemetry.Reading, error) {
	result := make([]telemetry.Reading, 0)
	for _, id := range stationIDs {
		if latest, err := m.Latest(ctx, id); err == nil {
			result = append(result, *latest)
		}
	}
	return result, nil
}

func (m *memLiveRepo) PurgeStation(_ context.Context, stationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.readings[:0]
	for _, r := range m.readings {
		if r.StationID != stationID {
			kept = append(kept, r)
		}
	}
	m.readings = kept
	return nil
}

type memHistoryRepo struct {
	mu        sync.Mutex
	readings  []telemetry.Reading
	appendErr error
}

func (m *memHistoryRepo) Append(_ context.Context, reading *telemetry.Reading) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, *reading)
	return nil
}

func (m *memHistoryRepo) Query(_ context.Context, stationIDs []string, from, to time.Time) ([]telemetry.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(stationIDs))
	for _, id := range stationIDs {
		wanted[id] = true
	}
	matched := make([]telemetry.Reading, 0)
	for _, r := range m.readings {
		if wanted[r.StationID] && !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func (m *memHistoryRepo) QueryRange(ctx context.Context, stationID string, from, to time.Time) ([]telemetry.Reading, error) {
	return m.Query(ctx, []string{stationID}, from, to)
}

func (m *memHistoryRepo) PurgeExpired(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	kept := m.readings[:0]
	for _, r := range m.readings {
		if r.Timestamp.Before(cutoff) && purged < int64(limit) {
			purged++
			continue
		}
		kept = append(kept, r)
	}
	m.readings = kept
	return purged, nil
}

func (m *memHistoryRepo) PurgeStation(_ context.Context, stationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.readings[:0]
	for _, r := range m.readings {
		if r.StationID != stationID {
			kept = append(kept, r)
		}
	}
	m.readings = kept
	return nil
}

func newTestIngestService(t *testing.T, live *memLiveRepo, history *memHistoryRepo, bus *eventbus.Bus) *IngestService {
	t.Helper()
	service, err := NewIngestService(stubStations{known: map[string]bool{"st-1": true}}, live, history, bus, nil)
	if err != nil {
		t.Fatalf("new ingest service: %v", err)
	}
	return service
}

func TestIngest_UnknownStation(t *testing.T) {
	service := newTestIngestService(t, &memLiveRepo{}, &memHistoryRepo{}, nil)
	_, err := service.Ingest(context.Background(), "st-missing", telemetry.Fields{Temp: ptr(20)}, time.Time{})
	if !errors.Is(err, masterdata.ErrStationNotFound) {
		t.Fatalf("expected ErrStationNotFound, got %v", err)
	}
}

func TestIngest_SanitizesBothRecords(t *testing.T) {
	live := &memLiveRepo{}
	history := &memHistoryRepo{}
	service := newTestIngestService(t, live, history, nil)

	fields := telemetry.Fields{Temp: ptr(21), NO2: ptr(-7), PM10: ptr(0), O3: ptr(0.05)}
	reading, err := service.Ingest(context.Background(), "st-1", fields, time.Time{})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if reading.NO2 != nil || reading.PM10 != nil {
		t.Fatalf("non-positive fields must be absent from the returned reading")
	}
	if len(live.readings) != 1 || len(history.readings) != 1 {
		t.Fatalf("expected one record in each store, got live=%d history=%d", len(live.readings), len(history.readings))
	}
	if live.readings[0].NO2 != nil || history.readings[0].NO2 != nil {
		t.Fatalf("dropped field leaked into persistence")
	}
	if live.readings[0].Temp == nil || *live.readings[0].Temp != 21 {
		t.Fatalf("valid field lost during ingestion")
	}
	if reading.Timestamp.IsZero() {
		t.Fatalf("ingestion must default the timestamp")
	}
}

func TestIngest_PartialWriteSurfaced(t *testing.T) {
	live := &memLiveRepo{insertErr: errors.New("disk full")}
	history := &memHistoryRepo{}
	service := newTestIngestService(t, live, history, nil)

	_, err := service.Ingest(context.Background(), "st-1", telemetry.Fields{Temp: ptr(20)}, time.Time{})
	if !errors.Is(err, telemetry.ErrPartialWrite) {
		t.Fatalf("expected ErrPartialWrite, got %v", err)
	}
	if len(history.readings) != 1 {
		t.Fatalf("history append should have happened before the failure")
	}
}

func TestIngest_HistoryFailureAbortsBeforeLiveWrite(t *testing.T) {
	live := &memLiveRepo{}
	history := &memHistoryRepo{appendErr: errors.New("timeout")}
	service := newTestIngestService(t, live, history, nil)

	_, err := service.Ingest(context.Background(), "st-1", telemetry.Fields{Temp: ptr(20)}, time.Time{})
	if err == nil {
		t.Fatalf("expected ingestion failure")
	}
	if len(live.readings) != 0 {
		t.Fatalf("live write must not happen when the history append failed")
	}
}

func TestIngest_PublishesTelemetryReceived(t *testing.T) {
	bus := eventbus.NewBus()
	var received []events.TelemetryReceived
	eventbus.Subscribe(bus, events.TopicTelemetryReceived, func(_ context.Context, event events.TelemetryReceived) error {
		received = append(received, event)
		return nil
	})
	service := newTestIngestService(t, &memLiveRepo{}, &memHistoryRepo{}, bus)

	if _, err := service.Ingest(context.Background(), "st-1", telemetry.Fields{CO: ptr(0.4)}, time.Time{}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected one TelemetryReceived event, got %d", len(received))
	}
	if received[0].StationID != "st-1" {
		t.Fatalf("event carries wrong station %q", received[0].StationID)
	}
	if received[0].Reading.CO == nil || *received[0].Reading.CO != 0.4 {
		t.Fatalf("event payload should carry the live reading")
	}
}

func TestIngest_BroadcastFailureDoesNotFailIngestion(t *testing.T) {
	bus := eventbus.NewBus()
	eventbus.Subscribe(bus, events.TopicTelemetryReceived, func(context.Context, events.TelemetryReceived) error {
		return errors.New("subscriber exploded")
	})
	service := newTestIngestService(t, &memLiveRepo{}, &memHistoryRepo{}, bus)

	if _, err := service.Ingest(context.Background(), "st-1", telemetry.Fields{CO: ptr(0.4)}, time.Time{}); err != nil {
		t.Fatalf("broadcast failure must not fail the ingest call: %v", err)
	}
}

func TestIngest_HistoryRoundTrip(t *testing.T) {
	live := &memLiveRepo{}
	history := &memHistoryRepo{}
	service := newTestIngestService(t, live, history, nil)

	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	reading, err := service.Ingest(context.Background(), "st-1", telemetry.Fields{Temp: ptr(19)}, at)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	got, err := service.History(context.Background(), "st-1", at.Add(-time.Second), at.Add(time.Second))
	if err != nil {
		t.Fatalf("history query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly the ingested entry, got %d", len(got))
	}
	if got[0].ID != reading.ID {
		t.Fatalf("round trip returned a different entry")
	}
}

func TestHistory_InvalidRange(t *testing.T) {
	service := newTestIngestService(t, &memLiveRepo{}, &memHistoryRepo{}, nil)
	now := time.Now()
	_, err := service.History(context.Background(), "st-1", now, now.Add(-time.Hour))
	if !errors.Is(err, telemetry.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestRetentionSweeper_PurgesOldEntries(t *testing.T) {
	history := &memHistoryRepo{}
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	old := telemetry.Reading{ID: "rd-old", StationID: "st-1", Timestamp: now.AddDate(0, 0, -61)}
	fresh := telemetry.Reading{ID: "rd-new", StationID: "st-1", Timestamp: now.AddDate(0, 0, -1)}
	_ = history.Append(context.Background(), &old)
	_ = history.Append(context.Background(), &fresh)

	sweeper, err := NewRetentionSweeper(history, RetentionConfig{RetentionDays: 60, SweepInterval: time.Minute, BatchSize: 10}, nil)
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	sweeper.now = func() time.Time { return now }

	purged, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged entry, got %d", purged)
	}
	if len(history.readings) != 1 || history.readings[0].ID != "rd-new" {
		t.Fatalf("fresh entry should survive the sweep")
	}
}
