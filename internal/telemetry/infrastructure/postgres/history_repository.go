package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	telemetry "airmon-cloud/internal/telemetry/domain"
)

const defaultHistoryTable = "sensor_history"

// HistoryRepository is a Postgres implementation of the append-only
// historical reading log.
type HistoryRepository struct {
	db    DBTX
	table string
}

// NewHistoryRepository constructs a repository with default table name.
func NewHistoryRepository(db DBTX, opts ...HistoryOption) *HistoryRepository {
	repo := &HistoryRepository{db: db, table: defaultHistoryTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// HistoryOption configures the repository.
type HistoryOption func(*HistoryRepository)

// WithHistoryTable overrides the default table name.
func WithHistoryTable(table string) HistoryOption {
	return func(repo *HistoryRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Append persists one historical entry.
func (r *HistoryRepository) Append(ctx context.Context, reading *telemetry.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("history repo: nil db")
	}
	if reading == nil {
		return errors.New("history repo: nil reading")
	}
	if reading.ID == "" || reading.StationID == "" || reading.Timestamp.IsZero() {
		return errors.New("history repo: invalid reading")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES (%s)`, r.table, readingColumnList(), readingPlaceholders())

	_, err := r.db.ExecContext(ctx, query, readingArgs(reading)...)
	return err
}

// Query returns entries for the given stations with ts in [from, to].
// Aggregation is order-independent so no ordering is imposed.
func (r *HistoryRepository) Query(ctx context.Context, stationIDs []string, from, to time.Time) ([]telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("history repo: nil db")
	}
	if len(stationIDs) == 0 {
		return []telemetry.Reading{}, nil
	}
	if to.Before(from) {
		return nil, telemetry.ErrInvalidRange
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE station_id IN (%s)
	AND ts >= $%d
	AND ts <= $%d`, readingColumnList(), r.table, inPlaceholders(1, len(stationIDs)), len(stationIDs)+1, len(stationIDs)+2)

	args := make([]any, 0, len(stationIDs)+2)
	for _, id := range stationIDs {
		args = append(args, id)
	}
	args = append(args, from, to)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReadings(rows)
}

// QueryRange returns one station's entries newest first.
func (r *HistoryRepository) QueryRange(ctx context.Context, stationID string, from, to time.Time) ([]telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("history repo: nil db")
	}
	if stationID == "" {
		return []telemetry.Reading{}, nil
	}
	if to.Before(from) {
		return nil, telemetry.ErrInvalidRange
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE station_id = $1
	AND ts >= $2
	AND ts <= $3
ORDER BY ts DESC`, readingColumnList(), r.table)

	rows, err := r.db.QueryContext(ctx, query, stationID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReadings(rows)
}

// PurgeExpired deletes up to limit entries older than cutoff. Deleting by
// ctid keeps each sweep batch small so the table never locks up against
// concurrent appends.
func (r *HistoryRepository) PurgeExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("history repo: nil db")
	}
	if limit <= 0 {
		limit = 1000
	}

	query := fmt.Sprintf(`
DELETE FROM %s
WHERE ctid IN (
	SELECT ctid FROM %s
	WHERE ts < $1
	LIMIT $2
)`, r.table, r.table)

	result, err := r.db.ExecContext(ctx, query, cutoff, limit)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PurgeStation removes all history of one station.
func (r *HistoryRepository) PurgeStation(ctx context.Context, stationID string) error {
	if r == nil || r.db == nil {
		return errors.New("history repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE station_id = $1", r.table), stationID)
	return err
}
