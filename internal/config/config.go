package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers         []string
	KafkaSourceTopic     string
	KafkaSinkTopic       string
	// High and critical notifications are also published here when set.
	KafkaEscalationTopic string
	KafkaGroupID         string
	HTTPAddr             string
	LogLevel             string
	LogFormat            string
	ShutdownTimeout      time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Learner state persistence.
	StoreDriver string
	StorePath   string
	RedisAddr   string
	StoreTTL    time.Duration

	FeedCapacity int

	// Hazard alert validity windows, per rule.
	StormWindow         time.Duration
	WindWindow          time.Duration
	PrecipitationWindow time.Duration
	WinterWindow        time.Duration

	// Demo sample generator.
	SimulateFeed     bool
	SimulateInterval time.Duration
	SimulateSeed     uint64
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

	storeTTL, err := parsePositiveDuration("STORE_TTL", "3h")
	if err != nil {
		return nil, err
	}

	windows := map[string]time.Duration{}
	for key, def := range map[string]string{
		"HAZARD_STORM_WINDOW":         "2h",
		"HAZARD_WIND_WINDOW":          "6h",
		"HAZARD_PRECIPITATION_WINDOW": "6h",
		"HAZARD_WINTER_WINDOW":        "12h",
	} {
		d, err := parsePositiveDuration(key, def)
		if err != nil {
			return nil, err
		}
		windows[key] = d
	}

	simulateInterval, err := parsePositiveDuration("SIMULATE_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}

	feedCapacity, err := parsePositiveInt("FEED_CAPACITY", 20)
	if err != nil {
		return nil, err
	}

	simulateSeed, err := parsePositiveInt("SIMULATE_SEED", 1)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:     sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "weather-samples"),
		KafkaSinkTopic:       sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "safety-notifications"),
		KafkaEscalationTopic: os.Getenv("KAFKA_ESCALATION_TOPIC"),
		KafkaGroupID:         sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-safety-training"),
		HTTPAddr:             sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:             sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:      shutdownTimeout,
		BatchSize:            batchSize,
		BatchFlushInterval:   flushInterval,

		StoreDriver: sharedcfg.EnvOrDefault("STORE_DRIVER", StoreMemory),
		StorePath:   sharedcfg.EnvOrDefault("STORE_PATH", "data/learners.db"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		StoreTTL:    storeTTL,

		FeedCapacity: feedCapacity,

		StormWindow:         windows["HAZARD_STORM_WINDOW"],
		WindWindow:          windows["HAZARD_WIND_WINDOW"],
		PrecipitationWindow: windows["HAZARD_PRECIPITATION_WINDOW"],
		WinterWindow:        windows["HAZARD_WINTER_WINDOW"],

		SimulateFeed:     os.Getenv("SIMULATE_FEED") == "true",
		SimulateInterval: simulateInterval,
		SimulateSeed:     uint64(simulateSeed),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	switch cfg.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("STORE_DRIVER is redis but REDIS_ADDR is not set")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, strconv.Itoa(def)))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
