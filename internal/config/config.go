// Package config loads the server configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/healthbridge/healthbridge/internal/database"
	"github.com/healthbridge/healthbridge/internal/healthdata"
)

// Config is the full server configuration.
type Config struct {
	Port        string
	Env         string
	Platform    healthdata.Platform
	HistorySize int
	RequireTLS  bool

	// SimulateInterval, when positive, makes the simulated platform emit
	// synthetic samples at this interval.
	SimulateInterval time.Duration

	OTelEnabled  bool
	OTLPEndpoint string

	DBEnabled bool
	Database  database.Config

	// JWTSigningKey enables bearer authentication when set.
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// PubSubProjectID switches live observations to Pub/Sub when set.
	PubSubProjectID          string
	PubSubSubscriptionPrefix string

	// PubSubTopicPrefix names the topics the worker relays samples to, one
	// per data type.
	PubSubTopicPrefix string

	// RelayDataTypes are the data types the worker relays.
	RelayDataTypes []healthdata.DataType

	AdapterMaxRetries uint64
	AdapterTimeout    time.Duration
}

// IsProduction reports whether the server runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads a .env file from the working directory if there is one, then
// builds the configuration from the environment. Variables already set in
// the environment win over the file.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit .env path. A missing file is ignored.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading %s: %w", path, err)
	}

	p := parser{}
	retries := p.int("ADAPTER_MAX_RETRIES", 3)
	cfg := Config{
		Port:        getEnvOrDefault("APP_PORT", "8080"),
		Env:         getEnvOrDefault("APP_ENV", "development"),
		Platform:    healthdata.Platform(getEnvOrDefault("HB_PLATFORM", string(healthdata.PlatformHealthKit))),
		HistorySize: p.int("HB_HISTORY_SIZE", 20),
		RequireTLS:  p.bool("HB_REQUIRE_TLS", false),

		SimulateInterval: p.duration("HB_SIMULATE_INTERVAL", 0),

		OTelEnabled:  p.bool("OTEL_ENABLED", false),
		OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		DBEnabled: p.bool("DB_ENABLED", false),
		Database:  database.ConfigFromEnv(),

		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:     getEnvOrDefault("JWT_ISSUER", "healthbridge"),
		JWTAudience:   getEnvOrDefault("JWT_AUDIENCE", "healthbridge-api"),

		PubSubProjectID:          os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscriptionPrefix: getEnvOrDefault("PUBSUB_SUBSCRIPTION_PREFIX", "healthbridge-live"),
		PubSubTopicPrefix:        getEnvOrDefault("PUBSUB_TOPIC_PREFIX", "healthbridge-live"),
		RelayDataTypes:           p.dataTypes("HB_RELAY_DATA_TYPES", []healthdata.DataType{healthdata.HeartRate, healthdata.Steps}),

		AdapterMaxRetries: uint64(max(retries, 0)), //nolint:gosec // clamped to non-negative
		AdapterTimeout:    p.duration("ADAPTER_TIMEOUT", 10*time.Second),
	}

	if !slices.Contains(healthdata.SupportedPlatforms(), cfg.Platform) {
		p.errs = append(p.errs, fmt.Errorf("HB_PLATFORM: unsupported platform %q", cfg.Platform))
	}
	if cfg.HistorySize <= 0 {
		p.errs = append(p.errs, errors.New("HB_HISTORY_SIZE: must be positive"))
	}
	if retries < 0 {
		p.errs = append(p.errs, errors.New("ADAPTER_MAX_RETRIES: must not be negative"))
	}
	if cfg.IsProduction() && cfg.JWTSigningKey == "" {
		p.errs = append(p.errs, errors.New("JWT_SIGNING_KEY: required in production"))
	}

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parser collects parse errors so every bad variable is reported at once.
type parser struct {
	errs []error
}

func (p *parser) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) bool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

// dataTypes parses a comma separated list of data type names.
func (p *parser) dataTypes(key string, def []healthdata.DataType) []healthdata.DataType {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var out []healthdata.DataType
	for _, name := range strings.Split(raw, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		dt, err := healthdata.ParseDataType(name)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %q: %w", key, name, err))
			continue
		}
		if !slices.Contains(out, dt) {
			out = append(out, dt)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
