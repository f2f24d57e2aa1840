package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	telemetry "airmon-cloud/internal/telemetry/domain"
)

const defaultLiveTable = "sensor_live"

// LiveRepository is a Postgres implementation of the live reading store.
type LiveRepository struct {
	db    DBTX
	table string
}

// NewLiveRepository constructs a repository with default table name.
func NewLiveRepository(db DBTX, opts ...LiveOption) *LiveRepository {
	repo := &LiveRepository{db: db, table: defaultLiveTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// LiveOption configures the repository.
type LiveOption func(*LiveRepository)

// WithLiveTable overrides the default table name.
func WithLiveTable(table string) LiveOption {
	return func(repo *LiveRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Insert persists one live reading. Every ingestion is a new row; "current"
// reads take the most recent by timestamp.
func (r *LiveRepository) Insert(ctx context.Context, reading *telemetry.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("live repo: nil db")
	}
	if reading == nil {
		return errors.New("live repo: nil reading")
	}
	if reading.ID == "" || reading.StationID == "" || reading.Timestamp.IsZero() {
		return errors.New("live repo: invalid reading")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES (%s)`, r.table, readingColumnList(), readingPlaceholders())

	_, err := r.db.ExecContext(ctx, query, readingArgs(reading)...)
	return err
}

// Latest returns the most recent reading for a station by timestamp.
func (r *LiveRepository) Latest(ctx context.Context, stationID string) (*telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("live repo: nil db")
	}
	if stationID == "" {
		return nil, telemetry.ErrReadingNotFound
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE station_id = $1
ORDER BY ts DESC
LIMIT 1`, readingColumnList(), r.table)

	var reading telemetry.Reading
	if err := scanReading(r.db.QueryRowContext(ctx, query, stationID), &reading); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, telemetry.ErrReadingNotFound
		}
		return nil, err
	}
	return &reading, nil
}

// LatestPerStation returns the single most recent reading for each station
// that has one.
func (r *LiveRepository) LatestPerStation(ctx context.Context, stationIDs []string) ([]telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("live repo: nil db")
	}
	if len(stationIDs) == 0 {
		return []telemetry.Reading{}, nil
	}

	query := fmt.Sprintf(`
SELECT DISTINCT ON (station_id) %s
FROM %s
WHERE station_id IN (%s)
ORDER BY station_id, ts DESC`, readingColumnList(), r.table, inPlaceholders(1, len(stationIDs)))

	args := make([]any, 0, len(stationIDs))
	for _, id := range stationIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReadings(rows)
}

// PurgeStation removes all live rows of one station.
func (r *LiveRepository) PurgeStation(ctx context.Context, stationID string) error {
	if r == nil || r.db == nil {
		return errors.New("live repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE station_id = $1", r.table), stationID)
	return err
}
