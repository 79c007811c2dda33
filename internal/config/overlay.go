// Package config provides environment-variable configuration loading plus
// an optional YAML overlay for tuning knobs an operator wants to change
// without a redeploy - consumer batching and the read API's rate limits.
package config

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// KafkaOverlay carries the subset of KafkaConfig an operator may want to
	// retune file-side. Zero values mean "use the environment default".
	KafkaOverlay struct {
		MaxPollRecords int           `yaml:"max_poll_records"`
		FetchMaxWait   time.Duration `yaml:"fetch_max_wait"`
		SessionTimeout time.Duration `yaml:"session_timeout"`
	}

	// RateLimitOverlay carries the read API's token-bucket thresholds.
	RateLimitOverlay struct {
		GlobalRPS int `yaml:"global_rps"`
		PerIPRPS  int `yaml:"per_ip_rps"`
		Burst     int `yaml:"burst"`
	}

	// WarehouseOverlay is the optional YAML document loaded from
	// WAREHOUSE_CONFIG_PATH, merged over the environment-derived defaults.
	WarehouseOverlay struct {
		Kafka     KafkaOverlay     `yaml:"kafka"`
		RateLimit RateLimitOverlay `yaml:"rate_limit"`
	}
)

const (
	// DefaultOverlayPath mirrors the teacher's dotfile convention.
	DefaultOverlayPath = ".warehouse.yaml"

	// OverlayPathEnvVar names the environment variable carrying a custom
	// overlay path.
	OverlayPathEnvVar = "WAREHOUSE_CONFIG_PATH"
)

// LoadOverlay loads the YAML overlay at path. A missing file is not an
// error - the overlay is optional, so the service starts fine on env vars
// alone. An invalid file logs a warning and falls back to an empty overlay,
// the same graceful-degradation behavior the teacher's aliasing config uses.
func LoadOverlay(path string) (*WarehouseOverlay, error) {
	overlay := &WarehouseOverlay{}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("warehouse config overlay not found, using environment defaults",
				slog.String("path", path))

			return overlay, nil
		}

		slog.Warn("failed to read warehouse config overlay, using environment defaults",
			slog.String("path", path), slog.String("error", err.Error()))

		return overlay, nil
	}

	if len(data) == 0 {
		return overlay, nil
	}

	if err := yaml.Unmarshal(data, overlay); err != nil {
		slog.Warn("failed to parse warehouse config overlay, using environment defaults",
			slog.String("path", path), slog.String("error", err.Error()))

		return &WarehouseOverlay{}, nil
	}

	return overlay, nil
}

// LoadOverlayFromEnv loads the overlay from the path in WAREHOUSE_CONFIG_PATH,
// defaulting to DefaultOverlayPath in the current directory.
func LoadOverlayFromEnv() (*WarehouseOverlay, error) {
	path := GetEnvStr(OverlayPathEnvVar, DefaultOverlayPath)

	return LoadOverlay(path)
}
