package masterdata

import (
	"context"
	"time"
)

// Station is a physical sensor installation tied to a region.
type Station struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	RegionID  string
	Assigned  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks station invariants.
func (s Station) Validate() error {
	if s.Name == "" {
		return ErrEmptyName
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return ErrInvalidLocation
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return ErrInvalidLocation
	}
	if s.RegionID == "" {
		return ErrRegionNotFound
	}
	return nil
}

// DeletePolicy names what happens to a station's readings on delete.
type DeletePolicy string

const (
	// OnDeleteOrphan leaves historical readings in place until retention expires them.
	OnDeleteOrphan DeletePolicy = "orphan"
	// OnDeleteCascade removes the station's live and historical readings.
	OnDeleteCascade DeletePolicy = "cascade"
)

// ParseDeletePolicy validates a delete policy keyword.
func ParseDeletePolicy(value string) (DeletePolicy, error) {
	switch DeletePolicy(value) {
	case OnDeleteOrphan, OnDeleteCascade:
		return DeletePolicy(value), nil
	case "":
		return OnDeleteOrphan, nil
	default:
		return "", ErrInvalidDeletePolicy
	}
}

// StationPage is a paginated station listing.
type StationPage struct {
	Stations   []Station
	Total      int
	TotalPages int
	Page       int
}

// StationRepository manages station persistence.
type StationRepository interface {
	Create(ctx context.Context, station *Station) error
	Get(ctx context.Context, id string) (*Station, error)
	List(ctx context.Context, page, limit int) (*StationPage, error)
	ListAvailable(ctx context.Context) ([]Station, error)
	ListByRegion(ctx context.Context, regionID string) ([]Station, error)
	Update(ctx context.Context, station *Station) error
	Delete(ctx context.Context, id string) error
	// Assign flips the assignment flag false -> true as a single conditional
	// update; at most one concurrent caller observes success.
	Assign(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
}
