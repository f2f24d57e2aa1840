package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "airmon-cloud/internal/masterdata/domain"
)

const defaultStationsTable = "stations"

// StationRepository is a Postgres implementation for stations.
type StationRepository struct {
	db    DBTX
	table string
}

// NewStationRepository constructs a repository.
func NewStationRepository(db DBTX, opts ...StationOption) *StationRepository {
	repo := &StationRepository{db: db, table: defaultStationsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// StationOption configures the repository.
type StationOption func(*StationRepository)

// WithStationTable overrides the default table name.
func WithStationTable(table string) StationOption {
	return func(repo *StationRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const stationColumns = "id, name, latitude, longitude, region_id, assigned, created_at, updated_at"

// Create inserts a new station.
func (r *StationRepository) Create(ctx context.Context, station *masterdata.Station) error {
	if r == nil || r.db == nil {
		return errors.New("station repo: nil db")
	}
	if station == nil {
		return errors.New("station repo: nil station")
	}
	if err := station.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	name,
	latitude,
	longitude,
	region_id,
	assigned
) VALUES (
	$1, $2, $3, $4, $5, $6
)
RETURNING created_at, updated_at`, r.table)

	// The row timestamps come from the database defaults, so the create
	// response matches what a later Get returns.
	row := r.db.QueryRowContext(
		ctx,
		query,
		station.ID,
		station.Name,
		station.Latitude,
		station.Longitude,
		station.RegionID,
		station.Assigned,
	)
	return row.Scan(&station.CreatedAt, &station.UpdatedAt)
}

// Get loads a station by id.
func (r *StationRepository) Get(ctx context.Context, id string) (*masterdata.Station, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}
	if id == "" {
		return nil, masterdata.ErrStationNotFound
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE id = $1
LIMIT 1`, stationColumns, r.table)

	var station masterdata.Station
	if err := scanStation(r.db.QueryRowContext(ctx, query, id), &station); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, masterdata.ErrStationNotFound
		}
		return nil, err
	}
	return &station, nil
}

// List returns a page of stations ordered by name.
func (r *StationRepository) List(ctx context.Context, page, limit int) (*masterdata.StationPage, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
ORDER BY name ASC, id ASC
LIMIT $1 OFFSET $2`, stationColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations, err := collectStations(rows)
	if err != nil {
		return nil, err
	}
	totalPages := (total + limit - 1) / limit
	return &masterdata.StationPage{Stations: stations, Total: total, TotalPages: totalPages, Page: page}, nil
}

// ListAvailable returns stations with the assignment flag unset.
func (r *StationRepository) ListAvailable(ctx context.Context) ([]masterdata.Station, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE NOT assigned
ORDER BY name ASC, id ASC`, stationColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStations(rows)
}

// ListByRegion returns all stations belonging to a region.
func (r *StationRepository) ListByRegion(ctx context.Context, regionID string) ([]masterdata.Station, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}
	if regionID == "" {
		return nil, masterdata.ErrRegionNotFound
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE region_id = $1
ORDER BY name ASC, id ASC`, stationColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, regionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStations(rows)
}

// Update rewrites mutable station fields.
func (r *StationRepository) Update(ctx context.Context, station *masterdata.Station) error {
	if r == nil || r.db == nil {
		return errors.New("station repo: nil db")
	}
	if station == nil {
		return errors.New("station repo: nil station")
	}
	if err := station.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
UPDATE %s
SET name = $2,
	latitude = $3,
	longitude = $4,
	region_id = $5,
	updated_at = NOW()
WHERE id = $1
RETURNING updated_at`, r.table)

	row := r.db.QueryRowContext(ctx, query, station.ID, station.Name, station.Latitude, station.Longitude, station.RegionID)
	if err := row.Scan(&station.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return masterdata.ErrStationNotFound
		}
		return err
	}
	return nil
}

// Delete removes a station row. Reading cleanup is decided by the caller's
// delete policy and happens outside this repository.
func (r *StationRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("station repo: nil db")
	}
	if id == "" {
		return masterdata.ErrStationNotFound
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return masterdata.ErrStationNotFound
	}
	return nil
}

// Assign flips the assignment flag with a conditional update so that at most
// one concurrent caller wins.
func (r *StationRepository) Assign(ctx context.Context, id string) error {
	return r.setAssigned(ctx, id, true)
}

// Release returns a station to the unassigned pool.
func (r *StationRepository) Release(ctx context.Context, id string) error {
	return r.setAssigned(ctx, id, false)
}

func (r *StationRepository) setAssigned(ctx context.Context, id string, assigned bool) error {
	if r == nil || r.db == nil {
		return errors.New("station repo: nil db")
	}
	if id == "" {
		return masterdata.ErrStationNotFound
	}

	query := fmt.Sprintf(`
UPDATE %s
SET assigned = $2,
	updated_at = NOW()
WHERE id = $1
	AND assigned = NOT $2`, r.table)

	result, err := r.db.ExecContext(ctx, query, id, assigned)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// Zero rows: either the station is missing or the flag already holds
	// the requested value. Disambiguate with a plain read.
	existsQuery := fmt.Sprintf("SELECT 1 FROM %s WHERE id = $1", r.table)
	var one int
	if err := r.db.QueryRowContext(ctx, existsQuery, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return masterdata.ErrStationNotFound
		}
		return err
	}
	if assigned {
		return masterdata.ErrAlreadyAssigned
	}
	return masterdata.ErrNotAssigned
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner, station *masterdata.Station) error {
	if err := row.Scan(
		&station.ID,
		&station.Name,
		&station.Latitude,
		&station.Longitude,
		&station.RegionID,
		&station.Assigned,
		&station.CreatedAt,
		&station.UpdatedAt,
	); err != nil {
		return err
	}
	station.CreatedAt = station.CreatedAt.UTC()
	station.UpdatedAt = station.UpdatedAt.UTC()
	return nil
}

func collectStations(rows *sql.Rows) ([]masterdata.Station, error) {
	stations := make([]masterdata.Station, 0)
	for rows.Next() {
		var station masterdata.Station
		if err := scanStation(rows, &station); err != nil {
			return nil, err
		}
		stations = append(stations, station)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stations, nil
}
