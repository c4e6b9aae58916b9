package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrMissingCredential indicates a required credential is not configured.
var ErrMissingCredential = errors.New("missing required credential")

// Cache backends.
const (
	CacheBackendFile     = "file"
	CacheBackendPostgres = "postgres"
	CacheBackendGCS      = "gcs"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	MintEmail    string
	MintPassword string
	MintMFAToken string

	UpstreamURL            string
	UpstreamRetryMax       int
	UpstreamRetryBaseDelay time.Duration
	UpstreamTimeout        time.Duration

	MQTTBrokerURL string
	MQTTClientID  string
	MQTTUsername  string
	MQTTPassword  string

	DiscoveryPrefix string
	StatePrefix     string

	CacheBackend string
	CachePath    string
	DatabaseURL  string
	GCSBucket    string
	GCSObject    string
	MaxAgeHours  int

	RefreshInterval time.Duration
	PublishInterval time.Duration

	HTTPPort    string
	AdminAPIKey string

	ExportXLSXPath        string
	SheetsSpreadsheetID   string
	GoogleCredentialsJSON string

	LogLevel  string
	LogPretty bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		MintEmail:    os.Getenv("MINT_EMAIL"),
		MintPassword: os.Getenv("MINT_PASSWORD"),
		MintMFAToken: os.Getenv("MINT_MFA_TOKEN"),

		UpstreamURL:            envOrDefault("UPSTREAM_URL", "http://localhost:8000"),
		UpstreamRetryMax:       envOrDefaultInt("UPSTREAM_RETRY_MAX", 5),
		UpstreamRetryBaseDelay: envOrDefaultDuration("UPSTREAM_RETRY_BASE_DELAY", 2*time.Second),
		UpstreamTimeout:        envOrDefaultDuration("UPSTREAM_TIMEOUT", 5*time.Minute),

		MQTTBrokerURL: envOrDefault("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:  envOrDefault("MQTT_CLIENT_ID", "mintbridge"),
		MQTTUsername:  os.Getenv("MQTT_USERNAME"),
		MQTTPassword:  os.Getenv("MQTT_PASSWORD"),

		DiscoveryPrefix: envOrDefault("DISCOVERY_PREFIX", "homeassistant"),
		StatePrefix:     envOrDefault("STATE_PREFIX", "mint/data"),

		CacheBackend: envOrDefault("CACHE_BACKEND", CacheBackendFile),
		CachePath:    envOrDefault("CACHE_PATH", "mint.json"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		GCSBucket:    os.Getenv("GCS_BUCKET"),
		GCSObject:    envOrDefault("GCS_OBJECT", "mint.json"),
		MaxAgeHours:  envOrDefaultInt("MAX_AGE_HOURS", 4),

		RefreshInterval: envOrDefaultDuration("REFRESH_INTERVAL", 1*time.Hour),
		PublishInterval: envOrDefaultDuration("PUBLISH_INTERVAL", 1*time.Hour),

		HTTPPort:    os.Getenv("HTTP_PORT"),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		ExportXLSXPath:        os.Getenv("EXPORT_XLSX_PATH"),
		SheetsSpreadsheetID:   os.Getenv("SHEETS_SPREADSHEET_ID"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogPretty: envOrDefaultBool("LOG_PRETTY", false),
	}
}

// Validate reports every missing credential and invalid backend setting.
// It is meant to run once at startup, before anything is scheduled.
func (c Config) Validate() error {
	var errs []error
	for key, val := range map[string]string{
		"MINT_EMAIL":     c.MintEmail,
		"MINT_PASSWORD":  c.MintPassword,
		"MINT_MFA_TOKEN": c.MintMFAToken,
	} {
		if val == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingCredential, key))
		}
	}

	if err := c.ValidateStore(); err != nil {
		errs = append(errs, err)
	}

	if c.SheetsSpreadsheetID != "" && c.GoogleCredentialsJSON == "" {
		errs = append(errs, errors.New("GOOGLE_CREDENTIALS_JSON is required when SHEETS_SPREADSHEET_ID is set"))
	}

	return errors.Join(errs...)
}

// ValidateStore checks only the cache backend settings. Commands that read
// the cache without contacting the upstream need nothing more.
func (c Config) ValidateStore() error {
	switch c.CacheBackend {
	case CacheBackendFile:
		if c.CachePath == "" {
			return errors.New("CACHE_PATH is required for the file cache backend")
		}
	case CacheBackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres cache backend")
		}
	case CacheBackendGCS:
		if c.GCSBucket == "" {
			return errors.New("GCS_BUCKET is required for the gcs cache backend")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Warn().Str("key", key).Str("value", v).Int("default", defaultVal).Msg("invalid integer env var, using default")
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Warn().Str("key", key).Str("value", v).Dur("default", defaultVal).Msg("invalid duration env var, using default")
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Warn().Str("key", key).Str("value", v).Bool("default", defaultVal).Msg("invalid boolean env var, using default")
			return defaultVal
		}
		return b
	}
	return defaultVal
}
