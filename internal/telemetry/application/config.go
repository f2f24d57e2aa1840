package application

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// RetentionConfig tunes the history sweeper. Defaults keep entries for 60
// days and sweep every ten minutes in batches of one thousand rows.
type RetentionConfig struct {
	RetentionDays int           `yaml:"retention_days"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	BatchSize     int           `yaml:"batch_size"`
}

// LoadRetentionConfig loads retention settings from yaml or env.
func LoadRetentionConfig() (RetentionConfig, error) {
	cfg := RetentionConfig{
		RetentionDays: getenvIntDefault("HISTORY_RETENTION_DAYS", 60),
		SweepInterval: getenvDuration("HISTORY_SWEEP_INTERVAL", 10*time.Minute),
		BatchSize:     getenvIntDefault("HISTORY_SWEEP_BATCH", 1000),
	}

	if path := os.Getenv("RETENTION_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.RetentionDays <= 0 {
		return cfg, errors.New("retention: retention_days must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return cfg, errors.New("retention: sweep_interval must be positive")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return cfg, nil
}

// Retention returns the retention window as a duration.
func (c RetentionConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
