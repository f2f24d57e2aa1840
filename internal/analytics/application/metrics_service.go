package application

import (
	"context"
	"errors"
	"time"

	analytics "airmon-cloud/internal/analytics/domain"
	masterdata "airmon-cloud/internal/masterdata/domain"
	"airmon-cloud/internal/observability/metrics"
	telemetry "airmon-cloud/internal/telemetry/domain"
)

// StationDirectory resolves stations for aggregation requests.
type StationDirectory interface {
	Get(ctx context.Context, id string) (*masterdata.Station, error)
	ListByRegion(ctx context.Context, regionID string) ([]masterdata.Station, error)
}

// RegionDirectory resolves regions for rollup requests.
type RegionDirectory interface {
	Get(ctx context.Context, id string) (*masterdata.Region, error)
}

// HistoryReader loads historical readings for windowed aggregation.
type HistoryReader interface {
	Query(ctx context.Context, stationIDs []string, from, to time.Time) ([]telemetry.Reading, error)
}

// LatestReader loads the most recent live reading per station.
type LatestReader interface {
	LatestPerStation(ctx context.Context, stationIDs []string) ([]telemetry.Reading, error)
}

// MetricsService answers windowed aggregate queries.
type MetricsService struct {
	stations     StationDirectory
	regions      RegionDirectory
	history      HistoryReader
	live         LatestReader
	storeTimeout time.Duration
	now          func() time.Time
}

// MetricsOption configures the service.
type MetricsOption func(*MetricsService)

// WithMetricsStoreTimeout bounds each store round trip.
func WithMetricsStoreTimeout(timeout time.Duration) MetricsOption {
	return func(s *MetricsService) {
		s.storeTimeout = timeout
	}
}

// NewMetricsService constructs a metrics service.
func NewMetricsService(stations StationDirectory, regions RegionDirectory, history HistoryReader, live LatestReader, opts ...MetricsOption) (*MetricsService, error) {
	if stations == nil {
		return nil, errors.New("metrics service: nil station directory")
	}
	if regions == nil {
		return nil, errors.New("metrics service: nil region directory")
	}
	if history == nil {
		return nil, errors.New("metrics service: nil history reader")
	}
	if live == nil {
		return nil, errors.New("metrics service: nil latest reader")
	}
	service := &MetricsService{
		stations: stations,
		regions:  regions,
		history:  history,
		live:     live,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// StationAverages computes per-field means over one station's historical
// entries inside the named window.
func (s *MetricsService) StationAverages(ctx context.Context, stationID string, window analytics.Window) (*analytics.Averages, error) {
	start := time.Now()
	result, err := s.stationAverages(ctx, stationID, window)
	metrics.ObserveAggregation(err == nil, time.Since(start))
	return result, err
}

func (s *MetricsService) stationAverages(ctx context.Context, stationID string, window analytics.Window) (*analytics.Averages, error) {
	now := s.now()
	windowStart, err := window.Start(now)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if _, err := s.stations.Get(ctx, stationID); err != nil {
		return nil, storeErr(err)
	}

	readings, err := s.history.Query(ctx, []string{stationID}, windowStart, now)
	if err != nil {
		return nil, storeErr(err)
	}
	return analytics.Aggregate(readings)
}

// RegionAverages rolls up one region: the single most recent live reading of
// each station, averaged across stations. This is a station-level mean, not
// a mean over historical entries.
func (s *MetricsService) RegionAverages(ctx context.Context, regionID string) (*analytics.Averages, error) {
	start := time.Now()
	result, err := s.regionAverages(ctx, regionID)
	metrics.ObserveAggregation(err == nil, time.Since(start))
	return result, err
}

func (s *MetricsService) regionAverages(ctx context.Context, regionID string) (*analytics.Averages, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if _, err := s.regions.Get(ctx, regionID); err != nil {
		return nil, storeErr(err)
	}

	stations, err := s.stations.ListByRegion(ctx, regionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if len(stations) == 0 {
		return nil, analytics.ErrNoData
	}

	ids := make([]string, 0, len(stations))
	for _, station := range stations {
		ids = append(ids, station.ID)
	}
	latest, err := s.live.LatestPerStation(ctx, ids)
	if err != nil {
		return nil, storeErr(err)
	}
	return analytics.Aggregate(latest)
}

func (s *MetricsService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
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
		return analytics.ErrStoreUnavailable
	}
	return err
}
