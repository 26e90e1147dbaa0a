package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Time sources for the regular tick.
const (
	// TimeSourceLocal advances the scheduler by wall-clock ticker deltas.
	TimeSourceLocal = "local"
	// TimeSourceSnapshot advances the scheduler to the global time carried by
	// the latest subject snapshot, so every instance agrees on elapsed time.
	TimeSourceSnapshot = "snapshot"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	KafkaEnabled     bool
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Scheduler configuration.
	SessionSeed       int64
	Weathers          []domain.Weather
	TickInterval      time.Duration
	FixedTickInterval time.Duration
	TimeSource        string
	DayLength         time.Duration
	Profile           Profile
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	seed, err := strconv.ParseInt(sharedcfg.EnvOrDefault("SESSION_SEED", "1"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid SESSION_SEED")
	}

	tickInterval, err := parseInterval("TICK_INTERVAL", "50ms")
	if err != nil {
		return nil, err
	}
	fixedInterval, err := parseInterval("FIXED_TICK_INTERVAL", "20ms")
	if err != nil {
		return nil, err
	}

	dayLength, err := parseInterval("DAY_LENGTH", "10m")
	if err != nil {
		return nil, err
	}

	weathers, err := ParseWeathers(sharedcfg.EnvOrDefault("WEATHER_KINDS", "blizzard,cold"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_KINDS: %w", err)
	}

	profile, err := LoadProfile(os.Getenv("WEATHER_PROFILE"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_PROFILE: %w", err)
	}

	kafkaEnabled := true
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "subject-snapshots"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "weather-events"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-data-scheduler"),
		KafkaEnabled:       kafkaEnabled,
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		SessionSeed:       seed,
		Weathers:          weathers,
		TickInterval:      tickInterval,
		FixedTickInterval: fixedInterval,
		TimeSource:        sharedcfg.EnvOrDefault("TIME_SOURCE", TimeSourceLocal),
		DayLength:         dayLength,
		Profile:           profile,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if cfg.TimeSource != TimeSourceLocal && cfg.TimeSource != TimeSourceSnapshot {
		return nil, fmt.Errorf("invalid TIME_SOURCE %q", cfg.TimeSource)
	}
	if cfg.TimeSource == TimeSourceSnapshot && !cfg.KafkaEnabled {
		return nil, errors.New("TIME_SOURCE=snapshot requires KAFKA_ENABLED")
	}

	return cfg, nil
}

// ParseWeathers splits a comma-separated list of weather names. Duplicates are dropped.
func ParseWeathers(s string) ([]domain.Weather, error) {
	var out []domain.Weather
	seen := make(map[domain.Weather]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		w, err := domain.ParseWeather(part)
		if err != nil {
			return nil, err
		}
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out, nil
}

func parseInterval(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
