package masterdata

import "context"

// Region groups stations under a municipality-level area.
type Region struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
}

// Validate checks region invariants.
func (r Region) Validate() error {
	if r.Name == "" {
		return ErrEmptyName
	}
	if r.Latitude < -90 || r.Latitude > 90 {
		return ErrInvalidLocation
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return ErrInvalidLocation
	}
	return nil
}

// RegionPage is a paginated region listing.
type RegionPage struct {
	Regions    []Region
	Total      int
	TotalPages int
	Page       int
}

// RegionRepository manages region persistence.
type RegionRepository interface {
	Create(ctx context.Context, region *Region) error
	Get(ctx context.Context, id string) (*Region, error)
	List(ctx context.Context) ([]Region, error)
	Search(ctx context.Context, term string, page, limit int) (*RegionPage, error)
	Update(ctx context.Context, region *Region) error
}
