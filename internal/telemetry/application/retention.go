package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"airmon-cloud/internal/observability/metrics"
	telemetry "airmon-cloud/internal/telemetry/domain"
)

// RetentionSweeper removes historical entries older than the retention
// window. It runs as a background goroutine and deletes in small batches so
// a sweep never blocks ingestion or queries.
type RetentionSweeper struct {
	history telemetry.HistoryRepository
	cfg     RetentionConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewRetentionSweeper constructs a sweeper.
func NewRetentionSweeper(history telemetry.HistoryRepository, cfg RetentionConfig, logger *slog.Logger) (*RetentionSweeper, error) {
	if history == nil {
		return nil, errors.New("retention: nil history repository")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionSweeper{history: history, cfg: cfg, logger: logger, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *RetentionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("retention sweep failed", "err", err)
				continue
			}
			if purged > 0 {
				s.logger.Info("retention sweep", "purged", purged)
			}
		}
	}
}

// Sweep deletes expired entries batch by batch and returns the total purged.
func (s *RetentionSweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.Retention())
	var total int64
	for {
		purged, err := s.history.PurgeExpired(ctx, cutoff, s.cfg.BatchSize)
		if err != nil {
			return total, err
		}
		total += purged
		metrics.AddPurgedReadings(purged)
		if purged < int64(s.cfg.BatchSize) {
			return total, nil
		}
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}
	}
}
