package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	telemetry "airmon-cloud/internal/telemetry/domain"
)

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sensorColumns is the reading column list shared by the live and history
// tables, in schema order after id, station_id and ts.
func sensorColumns() []string {
	return telemetry.FieldNames()
}

func readingColumnList() string {
	return "id, station_id, ts, " + strings.Join(sensorColumns(), ", ")
}

func readingPlaceholders() string {
	total := 3 + len(sensorColumns())
	parts := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		parts = append(parts, fmt.Sprintf("$%d", i))
	}
	return strings.Join(parts, ", ")
}

func readingArgs(reading *telemetry.Reading) []any {
	args := []any{reading.ID, reading.StationID, reading.Timestamp}
	for _, slot := range reading.SlotValues() {
		args = append(args, slot)
	}
	return args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner, reading *telemetry.Reading) error {
	slots := make([]sql.NullFloat64, len(sensorColumns()))
	dest := []any{&reading.ID, &reading.StationID, &reading.Timestamp}
	for i := range slots {
		dest = append(dest, &slots[i])
	}
	if err := row.Scan(dest...); err != nil {
		return err
	}
	values := make([]*float64, len(slots))
	for i, slot := range slots {
		if slot.Valid {
			v := slot.Float64
			values[i] = &v
		}
	}
	reading.SetSlotValues(values)
	reading.Timestamp = reading.Timestamp.UTC()
	return nil
}

func collectReadings(rows *sql.Rows) ([]telemetry.Reading, error) {
	readings := make([]telemetry.Reading, 0)
	for rows.Next() {
		var reading telemetry.Reading
		if err := scanReading(rows, &reading); err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}

// inPlaceholders renders "$start, $start+1, ..." for an IN clause.
func inPlaceholders(start, count int) string {
	parts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		parts = append(parts, fmt.Sprintf("$%d", start+i))
	}
	return strings.Join(parts, ", ")
}
