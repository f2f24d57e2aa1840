package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	analyticsapp "airmon-cloud/internal/analytics/application"
	analyticshttp "airmon-cloud/internal/analytics/interfaces/http"
	"airmon-cloud/internal/audit"
	"airmon-cloud/internal/auth"
	"airmon-cloud/internal/eventing/eventbus"
	masterapp "airmon-cloud/internal/masterdata/application"
	masterpg "airmon-cloud/internal/masterdata/infrastructure/postgres"
	masterhttp "airmon-cloud/internal/masterdata/interfaces/http"
	"airmon-cloud/internal/observability/metrics"
	"airmon-cloud/internal/realtime"
	telemetryapp "airmon-cloud/internal/telemetry/application"
	telemetrypg "airmon-cloud/internal/telemetry/infrastructure/postgres"
	telemetryhttp "airmon-cloud/internal/telemetry/interfaces/http"
)

func main() {
	cfg := loadConfig()
	logger := newLogger(cfg)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("db open", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("db ping", "error", err)
		os.Exit(1)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	stationRepo := masterpg.NewStationRepository(db)
	regionRepo := masterpg.NewRegionRepository(db)
	liveRepo := telemetrypg.NewLiveRepository(db)
	historyRepo := telemetrypg.NewHistoryRepository(db)

	stationService, err := masterapp.NewStationService(
		stationRepo,
		regionRepo,
		readingStores{live: liveRepo, history: historyRepo},
		masterapp.WithStationStoreTimeout(cfg.StoreTimeout),
	)
	if err != nil {
		logger.Error("station service", "error", err)
		os.Exit(1)
	}
	regionService, err := masterapp.NewRegionService(regionRepo, masterapp.WithRegionStoreTimeout(cfg.StoreTimeout))
	if err != nil {
		logger.Error("region service", "error", err)
		os.Exit(1)
	}

	bus := eventbus.NewBus()
	ingestService, err := telemetryapp.NewIngestService(
		stationRepo,
		liveRepo,
		historyRepo,
		bus,
		logger,
		telemetryapp.WithIngestStoreTimeout(cfg.StoreTimeout),
	)
	if err != nil {
		logger.Error("ingest service", "error", err)
		os.Exit(1)
	}

	metricsService, err := analyticsapp.NewMetricsService(
		stationRepo,
		regionRepo,
		historyRepo,
		liveRepo,
		analyticsapp.WithMetricsStoreTimeout(cfg.StoreTimeout),
	)
	if err != nil {
		logger.Error("metrics service", "error", err)
		os.Exit(1)
	}

	broker := realtime.NewBroker()
	consumer, err := realtime.NewConsumer(broker, logger)
	if err != nil {
		logger.Error("realtime consumer", "error", err)
		os.Exit(1)
	}
	consumer.Register(bus)

	retentionCfg, err := telemetryapp.LoadRetentionConfig()
	if err != nil {
		logger.Error("retention config", "error", err)
		os.Exit(1)
	}
	sweeper, err := telemetryapp.NewRetentionSweeper(historyRepo, retentionCfg, logger)
	if err != nil {
		logger.Error("retention sweeper", "error", err)
		os.Exit(1)
	}
	go sweeper.Run(context.Background())

	stationHandler, err := masterhttp.NewStationHandler(stationService, auditRepo)
	if err != nil {
		logger.Error("station handler", "error", err)
		os.Exit(1)
	}
	regionHandler, err := masterhttp.NewRegionHandler(regionService, stationService, auditRepo)
	if err != nil {
		logger.Error("region handler", "error", err)
		os.Exit(1)
	}
	sensorHandler, err := telemetryhttp.NewHandler(ingestService)
	if err != nil {
		logger.Error("sensor handler", "error", err)
		os.Exit(1)
	}
	metricsHandler, err := analyticshttp.NewHandler(metricsService)
	if err != nil {
		logger.Error("metrics handler", "error", err)
		os.Exit(1)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/api/v1/sensors/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestSignature := auth.NewIngestSignature([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)
	ingestGate := auth.NewIngestGate([]byte(cfg.JWTSecret), ingestSignature)

	// Sensor reads stay open. Ingestion POSTs carry either a collector
	// bearer token or a signature from the collection scripts.
	gatedIngest := ingestGate.Wrap(sensorHandler)
	sensorsRoute := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			gatedIngest.ServeHTTP(w, r)
			return
		}
		sensorHandler.ServeHTTP(w, r)
	})

	mux := http.NewServeMux()
	mux.Handle("/api/v1/stations", stationHandler)
	mux.Handle("/api/v1/stations/", stationHandler)
	mux.Handle("/api/v1/regions", regionHandler)
	mux.Handle("/api/v1/regions/", regionHandler)
	mux.Handle("/api/v1/sensors/", sensorsRoute)
	mux.Handle("/api/v1/metrics/", metricsHandler)
	mux.Handle("/api/v1/stream", realtime.NewStreamHandler(broker))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Info("http listening", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil {
		logger.Error("http server", "error", err)
		os.Exit(1)
	}
}

// readingStores fans a cascade purge out to both reading stores.
type readingStores struct {
	live    *telemetrypg.LiveRepository
	history *telemetrypg.HistoryRepository
}

func (s readingStores) PurgeStation(ctx context.Context, stationID string) error {
	if err := s.history.PurgeStation(ctx, stationID); err != nil {
		return err
	}
	return s.live.PurgeStation(ctx, stationID)
}

type config struct {
	DatabaseURL       string
	HTTPAddr          string
	JWTSecret         string
	IngestSecret      string
	IngestSkewSeconds int
	StoreTimeout      time.Duration
	LogLevel          slog.Level
	LogFormat         string
}

func loadConfig() config {
	return config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
		StoreTimeout:      getenvDuration("STORE_TIMEOUT", 5*time.Second),
		LogLevel:          parseLogLevel(getenvDefault("LOG_LEVEL", "info")),
		LogFormat:         getenvDefault("LOG_FORMAT", "text"),
	}
}

func newLogger(cfg config) *slog.Logger {
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: time.Kitchen,
	}))
}

func parseLogLevel(value string) slog.Level {
	switch value {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvIntDefault(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "status", resp.status, "elapsed", time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps SSE streaming working through the logging wrapper.
func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
