package metrics

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "airmon_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec
	droppedFields  prometheus.Counter

	broadcastDeliveries prometheus.Counter
	broadcastDropped    prometheus.Counter

	aggregationRequests *prometheus.CounterVec
	aggregationLatency  *prometheus.HistogramVec

	assignConflicts prometheus.Counter
	purgedReadings  prometheus.Counter

	exportRequests *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *slog.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		droppedFields = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_dropped_fields_total",
				Help: "Sensor fields dropped by sanitization",
			},
		)

		broadcastDeliveries = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "broadcast_deliveries_total",
				Help: "Readings delivered to realtime subscribers",
			},
		)
		broadcastDropped = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "broadcast_dropped_total",
				Help: "Deliveries skipped because a subscriber channel was full",
			},
		)

		aggregationRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aggregation_requests_total",
				Help: "Total aggregation queries by result",
			},
			[]string{"result"},
		)
		aggregationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "aggregation_latency_seconds",
				Help:    "Aggregation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		assignConflicts = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "station_assign_conflicts_total",
				Help: "Assignment attempts rejected because the station was held",
			},
		)
		purgedReadings = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "history_purged_readings_total",
				Help: "Historical readings removed by the retention sweeper",
			},
		)

		exportRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "metric_exports_total",
				Help: "Total metric export downloads by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestLatency,
			droppedFields,
			broadcastDeliveries,
			broadcastDropped,
			aggregationRequests,
			aggregationLatency,
			assignConflicts,
			purgedReadings,
			exportRequests,
		)

		registerDBMetrics(db, logger)
	})
}

// ObserveIngest records one ingest call.
func ObserveIngest(ok bool, elapsed time.Duration) {
	if ingestRequests == nil {
		return
	}
	result := resultSuccess
	if !ok {
		result = resultError
	}
	ingestRequests.WithLabelValues(result).Inc()
	ingestLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

// AddDroppedFields counts sanitized-away fields.
func AddDroppedFields(count int) {
	if droppedFields == nil || count <= 0 {
		return
	}
	droppedFields.Add(float64(count))
}

// AddBroadcastDeliveries counts realtime deliveries.
func AddBroadcastDeliveries(count int) {
	if broadcastDeliveries == nil || count <= 0 {
		return
	}
	broadcastDeliveries.Add(float64(count))
}

// AddBroadcastDropped counts skipped deliveries.
func AddBroadcastDropped(count int) {
	if broadcastDropped == nil || count <= 0 {
		return
	}
	broadcastDropped.Add(float64(count))
}

// ObserveAggregation records one aggregation query.
func ObserveAggregation(ok bool, elapsed time.Duration) {
	if aggregationRequests == nil {
		return
	}
	result := resultSuccess
	if !ok {
		result = resultError
	}
	aggregationRequests.WithLabelValues(result).Inc()
	aggregationLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

// IncAssignConflict counts a lost assignment race.
func IncAssignConflict() {
	if assignConflicts == nil {
		return
	}
	assignConflicts.Inc()
}

// ObserveExport records one export download.
func ObserveExport(format string, ok bool) {
	if exportRequests == nil {
		return
	}
	result := resultSuccess
	if !ok {
		result = resultError
	}
	exportRequests.WithLabelValues(format, result).Inc()
}

// AddPurgedReadings counts retention deletions.
func AddPurgedReadings(count int64) {
	if purgedReadings == nil || count <= 0 {
		return
	}
	purgedReadings.Add(float64(count))
}
