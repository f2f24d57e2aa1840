package telemetry

import (
	"context"
	"time"
)

// Reading is one sanitized measurement set for a station. The same shape is
// stored twice on ingestion: once in the live table and once in the
// append-only history log.
type Reading struct {
	ID        string    `json:"id"`
	StationID string    `json:"station_id"`
	Timestamp time.Time `json:"timestamp"`
	Fields
}

// LiveRepository persists the per-ingestion live records. "Current" reads
// take the most recent row by timestamp.
type LiveRepository interface {
	Insert(ctx context.Context, reading *Reading) error
	Latest(ctx context.Context, stationID string) (*Reading, error)
	// LatestPerStation returns at most one most-recent reading for each of
	// the given stations; stations without readings are simply absent.
	LatestPerStation(ctx context.Context, stationIDs []string) ([]Reading, error)
	PurgeStation(ctx context.Context, stationID string) error
}

// HistoryRepository is the append-only, time-indexed reading log.
type HistoryRepository interface {
	Append(ctx context.Context, reading *Reading) error
	// Query returns entries for the given stations with timestamp in
	// [from, to], in no guaranteed order.
	Query(ctx context.Context, stationIDs []string, from, to time.Time) ([]Reading, error)
	// QueryRange is the single-station variant sorted newest first, matching
	// the sensor read endpoint.
	QueryRange(ctx context.Context, stationID string, from, to time.Time) ([]Reading, error)
	// PurgeExpired deletes up to limit entries older than cutoff and reports
	// how many were removed.
	PurgeExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error)
	PurgeStation(ctx context.Context, stationID string) error
}
