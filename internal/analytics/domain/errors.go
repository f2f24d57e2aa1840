package analytics

import "errors"

var (
	// ErrInvalidWindow is returned for an unknown window keyword.
	ErrInvalidWindow = errors.New("analytics: invalid window")
	// ErrNoData is returned when an aggregation window holds no entries.
	ErrNoData = errors.New("analytics: no data in window")
	// ErrStoreUnavailable is returned when the store misses its deadline; retryable.
	ErrStoreUnavailable = errors.New("analytics: store unavailable")
)
