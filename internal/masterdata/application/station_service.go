package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	masterdata "airmon-cloud/internal/masterdata/domain"
)

// ReadingPurger removes a station's readings when the delete policy cascades.
type ReadingPurger interface {
	PurgeStation(ctx context.Context, stationID string) error
}

// StationService coordinates station registry operations.
type StationService struct {
	stations     masterdata.StationRepository
	regions      masterdata.RegionRepository
	purger       ReadingPurger
	storeTimeout time.Duration
}

// StationServiceOption configures the service.
type StationServiceOption func(*StationService)

// WithStationStoreTimeout bounds each store round trip.
func WithStationStoreTimeout(timeout time.Duration) StationServiceOption {
	return func(s *StationService) {
		s.storeTimeout = timeout
	}
}

// NewStationService constructs a station service.
func NewStationService(stations masterdata.StationRepository, regions masterdata.RegionRepository, purger ReadingPurger, opts ...StationServiceOption) (*StationService, error) {
	if stations == nil {
		return nil, errors.New("station service: nil station repository")
	}
	if regions == nil {
		return nil, errors.New("station service: nil region repository")
	}
	service := &StationService{stations: stations, regions: regions, purger: purger}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Create registers a new station in the given region, unassigned.
func (s *StationService) Create(ctx context.Context, name string, latitude, longitude float64, regionID string) (*masterdata.Station, error) {
	station := &masterdata.Station{
		ID:        NewID("st"),
		Name:      name,
		Latitude:  latitude,
		Longitude: longitude,
		RegionID:  regionID,
		Assigned:  false,
	}
	if err := station.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if _, err := s.regions.Get(ctx, regionID); err != nil {
		return nil, storeErr(err)
	}
	if err := s.stations.Create(ctx, station); err != nil {
		return nil, storeErr(err)
	}
	return station, nil
}

// Get loads one station.
func (s *StationService) Get(ctx context.Context, id string) (*masterdata.Station, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	station, err := s.stations.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return station, nil
}

// List returns a page of stations.
func (s *StationService) List(ctx context.Context, page, limit int) (*masterdata.StationPage, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	result, err := s.stations.List(ctx, page, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return result, nil
}

// ListAvailable returns stations not yet held by a collector. Each call
// re-queries current state.
func (s *StationService) ListAvailable(ctx context.Context) ([]masterdata.Station, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	stations, err := s.stations.ListAvailable(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return stations, nil
}

// ListByRegion returns the stations of one region.
func (s *StationService) ListByRegion(ctx context.Context, regionID string) ([]masterdata.Station, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if _, err := s.regions.Get(ctx, regionID); err != nil {
		return nil, storeErr(err)
	}
	stations, err := s.stations.ListByRegion(ctx, regionID)
	if err != nil {
		return nil, storeErr(err)
	}
	return stations, nil
}

// Update rewrites station fields; the assignment flag is not touched here.
func (s *StationService) Update(ctx context.Context, station *masterdata.Station) (*masterdata.Station, error) {
	if station == nil {
		return nil, errors.New("station service: nil station")
	}
	if err := station.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if _, err := s.regions.Get(ctx, station.RegionID); err != nil {
		return nil, storeErr(err)
	}
	if err := s.stations.Update(ctx, station); err != nil {
		return nil, storeErr(err)
	}
	return station, nil
}

// Delete removes a station under an explicit policy: cascade also purges the
// station's live and historical readings, orphan leaves them to retention.
func (s *StationService) Delete(ctx context.Context, id string, policy masterdata.DeletePolicy) error {
	switch policy {
	case masterdata.OnDeleteOrphan, masterdata.OnDeleteCascade:
	default:
		return masterdata.ErrInvalidDeletePolicy
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.stations.Delete(ctx, id); err != nil {
		return storeErr(err)
	}
	if policy == masterdata.OnDeleteCascade && s.purger != nil {
		if err := s.purger.PurgeStation(ctx, id); err != nil {
			return storeErr(err)
		}
	}
	return nil
}

// Assign dedicates the station to exactly one collector.
func (s *StationService) Assign(ctx context.Context, id string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return storeErr(s.stations.Assign(ctx, id))
}

// Release returns the station to the unassigned pool.
func (s *StationService) Release(ctx context.Context, id string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return storeErr(s.stations.Release(ctx, id))
}

func (s *StationService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
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
		return masterdata.ErrStoreUnavailable
	}
	return err
}

// NewID generates a random identifier with the given prefix.
func NewID(prefix string) string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return prefix + "-" + hex.EncodeToString(buf)
}
