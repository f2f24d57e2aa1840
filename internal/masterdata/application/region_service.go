package application

import (
	"context"
	"errors"
	"time"

	masterdata "airmon-cloud/internal/masterdata/domain"
)

// RegionService coordinates region operations.
type RegionService struct {
	regions      masterdata.RegionRepository
	storeTimeout time.Duration
}

// RegionServiceOption configures the service.
type RegionServiceOption func(*RegionService)

// WithRegionStoreTimeout bounds each store round trip.
func WithRegionStoreTimeout(timeout time.Duration) RegionServiceOption {
	return func(s *RegionService) {
		s.storeTimeout = timeout
	}
}

// NewRegionService constructs a region service.
func NewRegionService(regions masterdata.RegionRepository, opts ...RegionServiceOption) (*RegionService, error) {
	if regions == nil {
		return nil, errors.New("region service: nil repository")
	}
	service := &RegionService{regions: regions}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Create registers a new region.
func (s *RegionService) Create(ctx context.Context, name string, latitude, longitude float64) (*masterdata.Region, error) {
	region := &masterdata.Region{
		ID:        NewID("rg"),
		Name:      name,
		Latitude:  latitude,
		Longitude: longitude,
	}
	if err := region.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.regions.Create(ctx, region); err != nil {
		return nil, storeErr(err)
	}
	return region, nil
}

// Get loads one region.
func (s *RegionService) Get(ctx context.Context, id string) (*masterdata.Region, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	region, err := s.regions.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return region, nil
}

// List returns every region.
func (s *RegionService) List(ctx context.Context) ([]masterdata.Region, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	regions, err := s.regions.List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return regions, nil
}

// Search returns a filtered page of regions.
func (s *RegionService) Search(ctx context.Context, term string, page, limit int) (*masterdata.RegionPage, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	result, err := s.regions.Search(ctx, term, page, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return result, nil
}

// Update rewrites region fields.
func (s *RegionService) Update(ctx context.Context, region *masterdata.Region) (*masterdata.Region, error) {
	if region == nil {
		return nil, errors.New("region service: nil region")
	}
	if err := region.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.regions.Update(ctx, region); err != nil {
		return nil, storeErr(err)
	}
	return region, nil
}

func (s *RegionService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
