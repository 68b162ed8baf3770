// Package config reads process settings from the environment. Binaries call
// godotenv.Load first so a local .env file can supply the same variables.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/tendant/simple-translator/internal/poller"
)

type Config struct {
	ServiceURL  string
	HTTPTimeout time.Duration
	Poll        poller.Config

	NATSURL      string
	EventSubject string
	MetricsAddr  string
	ServerAddr   string
	ErrorRate    float64
	LogLevel     string
}

func Load() (Config, error) {
	cfg := Config{
		ServiceURL:   getenv("JOB_SERVICE_URL", "http://localhost:8000"),
		NATSURL:      getenv("NATS_URL", ""),
		EventSubject: getenv("SUBJECT_JOB_EVENTS", "jobs.translation"),
		MetricsAddr:  getenv("METRICS_ADDR", ""),
		ServerAddr:   getenv("JOBSERVER_ADDR", ":8000"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
	}

	defaults := poller.DefaultConfig()
	var err error

	if cfg.HTTPTimeout, err = parseSeconds(getenv("HTTP_TIMEOUT", "30"), "HTTP_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.Poll.InitialDelay, err = parseSeconds(getenv("POLL_INITIAL_DELAY", formatSeconds(defaults.InitialDelay)), "POLL_INITIAL_DELAY"); err != nil {
		return Config{}, err
	}
	if cfg.Poll.MaxDelay, err = parseSeconds(getenv("POLL_MAX_DELAY", formatSeconds(defaults.MaxDelay)), "POLL_MAX_DELAY"); err != nil {
		return Config{}, err
	}
	if cfg.Poll.Timeout, err = parseSeconds(getenv("POLL_TIMEOUT", formatSeconds(defaults.Timeout)), "POLL_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.Poll.BackoffFactor, err = parseFloat(getenv("POLL_BACKOFF_FACTOR", strconv.FormatFloat(defaults.BackoffFactor, 'f', -1, 64)), "POLL_BACKOFF_FACTOR"); err != nil {
		return Config{}, err
	}
	if cfg.Poll.MaxRetries, err = parsePositiveInt(getenv("POLL_MAX_RETRIES", strconv.Itoa(defaults.MaxRetries)), "POLL_MAX_RETRIES"); err != nil {
		return Config{}, err
	}
	if cfg.ErrorRate, err = parseFloat(getenv("JOBSERVER_ERROR_RATE", "0.1"), "JOBSERVER_ERROR_RATE"); err != nil {
		return Config{}, err
	}
	if cfg.ErrorRate < 0 || cfg.ErrorRate > 1 {
		return Config{}, fmt.Errorf("JOBSERVER_ERROR_RATE must be within [0, 1] (got %v)", cfg.ErrorRate)
	}

	if err := cfg.Poll.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid polling settings: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func parsePositiveInt(value string, name string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %d)", name, v)
	}
	return v, nil
}

func parseFloat(value string, name string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s: %q is not a finite number", name, value)
	}
	return v, nil
}

// parseSeconds reads a positive, possibly fractional, number of seconds.
func parseSeconds(value string, name string) (time.Duration, error) {
	v, err := parseFloat(value, name)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %v)", name, v)
	}
	return time.Duration(v * float64(time.Second)), nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
