package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"airmon-cloud/internal/eventing/eventbus"
	masterdata "airmon-cloud/internal/masterdata/domain"
	"airmon-cloud/internal/observability/metrics"
	"airmon-cloud/internal/telemetry/application/events"
	telemetry "airmon-cloud/internal/telemetry/domain"
)

// StationResolver checks that a station exists before accepting readings.
type StationResolver interface {
	Get(ctx context.Context, id string) (*masterdata.Station, error)
}

// IngestService is the sanitizing dual-write ingestion path: one live record
// plus one historical entry per accepted reading.
type IngestService struct {
	stations     StationResolver
	live         telemetry.LiveRepository
	history      telemetry.HistoryRepository
	bus          *eventbus.Bus
	logger       *slog.Logger
	storeTimeout time.Duration
}

// IngestOption configures the service.
type IngestOption func(*IngestService)

// WithIngestStoreTimeout bounds each store round trip.
func WithIngestStoreTimeout(timeout time.Duration) IngestOption {
	return func(s *IngestService) {
		s.storeTimeout = timeout
	}
}

// NewIngestService constructs an ingest service.
func NewIngestService(stations StationResolver, live telemetry.LiveRepository, history telemetry.HistoryRepository, bus *eventbus.Bus, logger *slog.Logger, opts ...IngestOption) (*IngestService, error) {
	if stations == nil {
		return nil, errors.New("ingest service: nil station resolver")
	}
	if live == nil {
		return nil, errors.New("ingest service: nil live repository")
	}
	if history == nil {
		return nil, errors.New("ingest service: nil history repository")
	}
	if logger == nil {
		logger = slog.Default()
	}
	service := &IngestService{stations: stations, live: live, history: history, bus: bus, logger: logger}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Ingest sanitizes and persists one reading. The historical append and the
// live insert are independent writes; if the second fails after the first
// succeeded the caller is told the ingestion is partial. The broadcast is
// fire-and-forget and never fails the call.
func (s *IngestService) Ingest(ctx context.Context, stationID string, fields telemetry.Fields, at time.Time) (*telemetry.Reading, error) {
	start := time.Now()
	reading, err := s.ingest(ctx, stationID, fields, at)
	metrics.ObserveIngest(err == nil, time.Since(start))
	return reading, err
}

func (s *IngestService) ingest(ctx context.Context, stationID string, fields telemetry.Fields, at time.Time) (*telemetry.Reading, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.stations.Get(ctx, stationID); err != nil {
		return nil, storeErr(err)
	}

	sanitized, dropped := fields.Sanitize()
	if len(dropped) > 0 {
		metrics.AddDroppedFields(len(dropped))
		s.logger.Debug("dropped non-positive sensor values", "station", stationID, "fields", dropped)
	}
	if at.IsZero() {
		at = time.Now()
	}

	reading := &telemetry.Reading{
		ID:        newReadingID(),
		StationID: stationID,
		Timestamp: at.UTC(),
		Fields:    sanitized,
	}

	if err := s.history.Append(ctx, reading); err != nil {
		return nil, storeErr(err)
	}
	if err := s.live.Insert(ctx, reading); err != nil {
		// History already holds the entry; surface the partial state.
		return nil, fmt.Errorf("%w: live insert after history append: %v", telemetry.ErrPartialWrite, storeErr(err))
	}

	s.publish(ctx, reading)
	return reading, nil
}

func (s *IngestService) publish(ctx context.Context, reading *telemetry.Reading) {
	if s.bus == nil {
		return
	}
	event := events.TelemetryReceived{
		StationID:  reading.StationID,
		Reading:    *reading,
		ReceivedAt: time.Now().UTC(),
	}
	if err := eventbus.Publish(ctx, s.bus, events.TopicTelemetryReceived, event); err != nil {
		s.logger.Warn("telemetry broadcast failed", "station", reading.StationID, "err", err)
	}
}

// Latest returns the most recent live reading for a station.
func (s *IngestService) Latest(ctx context.Context, stationID string) (*telemetry.Reading, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if _, err := s.stations.Get(ctx, stationID); err != nil {
		return nil, storeErr(err)
	}
	reading, err := s.live.Latest(ctx, stationID)
	if err != nil {
		return nil, storeErr(err)
	}
	return reading, nil
}

// History returns one station's historical entries in [from, to], newest first.
func (s *IngestService) History(ctx context.Context, stationID string, from, to time.Time) ([]telemetry.Reading, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if to.Before(from) {
		return nil, telemetry.ErrInvalidRange
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if _, err := s.stations.Get(ctx, stationID); err != nil {
		return nil, storeErr(err)
	}
	readings, err := s.history.QueryRange(ctx, stationID, from, to)
	if err != nil {
		return nil, storeErr(err)
	}
	return readings, nil
}

func (s *IngestService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return telemetry.ErrStoreUnavailable
	}
	return err
}

func newReadingID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return "rd-" + hex.EncodeToString(buf)
}
