package masterdata

import "errors"

var (
	// ErrStationNotFound is returned when a station does not exist.
	ErrStationNotFound = errors.New("masterdata: station not found")
	// ErrRegionNotFound is returned when a region does not exist.
	ErrRegionNotFound = errors.New("masterdata: region not found")
	// ErrAlreadyAssigned is returned when a station is already held by a collector.
	ErrAlreadyAssigned = errors.New("masterdata: station already assigned")
	// ErrNotAssigned is returned when releasing a station that is not assigned.
	ErrNotAssigned = errors.New("masterdata: station not assigned")
	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("masterdata: invalid location")
	// ErrEmptyName is returned when a name is missing.
	ErrEmptyName = errors.New("masterdata: empty name")
	// ErrDuplicateRegionName guards the unique region name constraint.
	ErrDuplicateRegionName = errors.New("masterdata: duplicate region name")
	// ErrInvalidDeletePolicy is returned for an unknown station delete policy.
	ErrInvalidDeletePolicy = errors.New("masterdata: invalid delete policy")
	// ErrStoreUnavailable is returned when the store misses its deadline; retryable.
	ErrStoreUnavailable = errors.New("masterdata: store unavailable")
)
