package analytics

import (
	telemetry "airmon-cloud/internal/telemetry/domain"
)

// Averages is the per-field arithmetic mean over a set of readings. Fields
// with no contributing values stay absent; counts record the denominator
// actually used for each field.
type Averages struct {
	Fields telemetry.Fields `json:"averages"`
	Counts map[string]int   `json:"counts"`
	// Samples is the number of readings that entered the aggregation.
	Samples int `json:"samples"`
}

// Aggregate computes per-field means over the given readings. A reading
// contributes to a field's numerator and denominator only when the field is
// present; sanitized-away values never count as zero. Returns ErrNoData when
// there are no readings at all.
func Aggregate(readings []telemetry.Reading) (*Averages, error) {
	if len(readings) == 0 {
		return nil, ErrNoData
	}

	sums := make(map[string]float64, 17)
	counts := make(map[string]int, 17)
	names := telemetry.FieldNames()
	for i := range readings {
		for _, name := range names {
			value, ok := readings[i].Value(name)
			if !ok {
				continue
			}
			sums[name] += value
			counts[name]++
		}
	}

	result := &Averages{Counts: counts, Samples: len(readings)}
	for _, name := range names {
		if counts[name] == 0 {
			continue
		}
		result.Fields.Set(name, sums[name]/float64(counts[name]))
	}
	return result, nil
}
