package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	masterdata "airmon-cloud/internal/masterdata/domain"
)

const defaultRegionsTable = "regions"

// RegionRepository is a Postgres implementation for regions.
type RegionRepository struct {
	db    DBTX
	table string
}

// NewRegionRepository constructs a repository.
func NewRegionRepository(db DBTX, opts ...RegionOption) *RegionRepository {
	repo := &RegionRepository{db: db, table: defaultRegionsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RegionOption configures the repository.
type RegionOption func(*RegionRepository)

// WithRegionTable overrides the default table name.
func WithRegionTable(table string) RegionOption {
	return func(repo *RegionRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Create inserts a new region; the unique name constraint surfaces as
// ErrDuplicateRegionName.
func (r *RegionRepository) Create(ctx context.Context, region *masterdata.Region) error {
	if r == nil || r.db == nil {
		return errors.New("region repo: nil db")
	}
	if region == nil {
		return errors.New("region repo: nil region")
	}
	if err := region.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, name, latitude, longitude)
VALUES ($1, $2, $3, $4)`, r.table)

	if _, err := r.db.ExecContext(ctx, query, region.ID, region.Name, region.Latitude, region.Longitude); err != nil {
		if isUniqueViolation(err) {
			return masterdata.ErrDuplicateRegionName
		}
		return err
	}
	return nil
}

// Get loads a region by id.
func (r *RegionRepository) Get(ctx context.Context, id string) (*masterdata.Region, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("region repo: nil db")
	}
	if id == "" {
		return nil, masterdata.ErrRegionNotFound
	}

	query := fmt.Sprintf(`
SELECT id, name, latitude, longitude
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var region masterdata.Region
	err := r.db.QueryRowContext(ctx, query, id).Scan(&region.ID, &region.Name, &region.Latitude, &region.Longitude)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, masterdata.ErrRegionNotFound
		}
		return nil, err
	}
	return &region, nil
}

// List returns every region ordered by name.
func (r *RegionRepository) List(ctx context.Context) ([]masterdata.Region, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("region repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, name, latitude, longitude
FROM %s
ORDER BY name ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegions(rows)
}

// Search returns a filtered page of regions matched on name.
func (r *RegionRepository) Search(ctx context.Context, term string, page, limit int) (*masterdata.RegionPage, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("region repo: nil db")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	pattern := "%" + term + "%"

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE name ILIKE $1", r.table)
	if err := r.db.QueryRowContext(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT id, name, latitude, longitude
FROM %s
WHERE name ILIKE $1
ORDER BY name ASC
LIMIT $2 OFFSET $3`, r.table)

	rows, err := r.db.QueryContext(ctx, query, pattern, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regions, err := collectRegions(rows)
	if err != nil {
		return nil, err
	}
	totalPages := (total + limit - 1) / limit
	return &masterdata.RegionPage{Regions: regions, Total: total, TotalPages: totalPages, Page: page}, nil
}

// Update rewrites region fields.
func (r *RegionRepository) Update(ctx context.Context, region *masterdata.Region) error {
	if r == nil || r.db == nil {
		return errors.New("region repo: nil db")
	}
	if region == nil {
		return errors.New("region repo: nil region")
	}
	if err := region.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
UPDATE %s
SET name = $2,
	latitude = $3,
	longitude = $4
WHERE id = $1`, r.table)

	result, err := r.db.ExecContext(ctx, query, region.ID, region.Name, region.Latitude, region.Longitude)
	if err != nil {
		if isUniqueViolation(err) {
			return masterdata.ErrDuplicateRegionName
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return masterdata.ErrRegionNotFound
	}
	return nil
}

func collectRegions(rows *sql.Rows) ([]masterdata.Region, error) {
	regions := make([]masterdata.Region, 0)
	for rows.Next() {
		var region masterdata.Region
		if err := rows.Scan(&region.ID, &region.Name, &region.Latitude, &region.Longitude); err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}

// isUniqueViolation reports Postgres error 23505 without importing the
// driver's error type into every call site.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key")
}
