package telemetry

import "errors"

var (
	// ErrReadingNotFound is returned when a station has no live reading.
	ErrReadingNotFound = errors.New("telemetry: reading not found")
	// ErrPartialWrite is returned when one of the dual ingestion writes failed;
	// the ingestion must not be reported as successful.
	ErrPartialWrite = errors.New("telemetry: partial ingestion write")
	// ErrStoreUnavailable is returned when the store misses its deadline; retryable.
	ErrStoreUnavailable = errors.New("telemetry: store unavailable")
	// ErrInvalidRange is returned when a query range is inverted.
	ErrInvalidRange = errors.New("telemetry: invalid time range")
)
