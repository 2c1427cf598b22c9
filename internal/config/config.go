package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Optional overrides of the trained model and the embedded tables.
	ModelPath         string
	CatalogPath       string
	EncodingTablePath string

	// Planner tuning.
	GridSpacingDeg     float64
	OptimizerCacheTTL  time.Duration
	OptimizerCacheSize int
	RankTypes          []string
	// SimulationSeed fixes simulator noise; 0 draws a random seed at startup.
	SimulationSeed uint64
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

	spacing, err := parseGridSpacing()
	if err != nil {
		return nil, err
	}

	rawTTL := sharedcfg.EnvOrDefault("OPTIMIZER_CACHE_TTL", "5m")
	cacheTTL, err := time.ParseDuration(rawTTL)
	if err != nil || cacheTTL < 0 {
		return nil, fmt.Errorf("invalid OPTIMIZER_CACHE_TTL %q", rawTTL)
	}

	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}

	seed, err := parseSeed()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "climate-observations"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "intervention-recommendations"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "climate-intervention-planner"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ModelPath:         os.Getenv("MODEL_PATH"),
		CatalogPath:       os.Getenv("CATALOG_PATH"),
		EncodingTablePath: os.Getenv("ENCODING_TABLE_PATH"),

		GridSpacingDeg:     spacing,
		OptimizerCacheTTL:  cacheTTL,
		OptimizerCacheSize: cacheSize,
		RankTypes:          parseList(os.Getenv("RANK_TYPES")),
		SimulationSeed:     seed,
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

	return cfg, nil
}

func parseGridSpacing() (float64, error) {
	s := sharedcfg.EnvOrDefault("GRID_SPACING_DEG", "0.5")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v > 10 {
		return 0, fmt.Errorf("invalid GRID_SPACING_DEG %q: must be in (0, 10]", s)
	}
	return v, nil
}

// parseCacheSize returns OPTIMIZER_CACHE_SIZE, 128 when unset. 0 disables the
// plan cache.
func parseCacheSize() (int, error) {
	s := os.Getenv("OPTIMIZER_CACHE_SIZE")
	if s == "" {
		return 128, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid OPTIMIZER_CACHE_SIZE %q", s)
	}
	return n, nil
}

func parseSeed() (uint64, error) {
	s := os.Getenv("SIMULATION_SEED")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid SIMULATION_SEED %q", s)
	}
	return v, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
