package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/hubcap/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Blobstore     BlobstoreConfig
	Redis         RedisConfig
	Signing       SigningConfig
	Events        EventsConfig
	Cleanup       CleanupConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Timeout  time.Duration
}

// BlobstoreConfig holds blob storage configuration. The private store keeps
// unsigned uploads, the public store keeps signed artifacts.
type BlobstoreConfig struct {
	// Type is "filesystem" or "s3"
	Type string

	// Filesystem roots
	PrivateRoot string
	PublicRoot  string

	// S3 settings
	S3Endpoint      string
	S3Region        string
	S3PrivateBucket string
	S3PublicBucket  string
	S3AccessKey     string
	S3SecretKey     string
	S3UsePathStyle  bool
}

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	CacheEnabled bool
	L1CacheSize  int
	TTL          time.Duration
}

// SigningConfig holds signing service configuration
type SigningConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// EventsConfig holds lifecycle event delivery configuration
type EventsConfig struct {
	WebhookURL    string
	WebhookSecret string
	Timeout       time.Duration
}

// CleanupConfig holds the blob cleanup sweeper configuration
type CleanupConfig struct {
	Enabled  bool
	Schedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("HUBCAP_HOST", "0.0.0.0"),
			Port:            getEnv("HUBCAP_PORT", "8080"),
			ReadTimeout:     getEnvDuration("HUBCAP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("HUBCAP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("HUBCAP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("HUBCAP_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxUploadBytes:  getEnvInt64("HUBCAP_MAX_UPLOAD_BYTES", 200*1024*1024),
			HealthPort:      getEnv("HUBCAP_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("HUBCAP_POSTGRES_URL", ""),
			MaxConns: getEnvInt("HUBCAP_POSTGRES_MAX_CONNS", 25),
			MinConns: getEnvInt("HUBCAP_POSTGRES_MIN_CONNS", 5),
			Timeout:  getEnvDuration("HUBCAP_POSTGRES_TIMEOUT", 5*time.Second),
		},
		Blobstore: BlobstoreConfig{
			Type:            getEnv("HUBCAP_BLOBSTORE_TYPE", "filesystem"),
			PrivateRoot:     getEnv("HUBCAP_BLOBSTORE_PRIVATE_ROOT", "/var/lib/hubcap/private"),
			PublicRoot:      getEnv("HUBCAP_BLOBSTORE_PUBLIC_ROOT", "/var/lib/hubcap/public"),
			S3Endpoint:      getEnv("HUBCAP_S3_ENDPOINT", ""),
			S3Region:        getEnv("HUBCAP_S3_REGION", "us-east-1"),
			S3PrivateBucket: getEnv("HUBCAP_S3_PRIVATE_BUCKET", "hubcap-private"),
			S3PublicBucket:  getEnv("HUBCAP_S3_PUBLIC_BUCKET", "hubcap-public"),
			S3AccessKey:     getEnv("HUBCAP_S3_ACCESS_KEY", ""),
			S3SecretKey:     getEnv("HUBCAP_S3_SECRET_KEY", ""),
			S3UsePathStyle:  getEnvBool("HUBCAP_S3_USE_PATH_STYLE", true),
		},
		Redis: RedisConfig{
			Addr:         getEnv("HUBCAP_REDIS_ADDR", ""),
			Password:     getEnv("HUBCAP_REDIS_PASSWORD", ""),
			DB:           getEnvInt("HUBCAP_REDIS_DB", 0),
			CacheEnabled: getEnvBool("HUBCAP_CACHE_ENABLED", true),
			L1CacheSize:  getEnvInt("HUBCAP_L1_CACHE_SIZE", 4096),
			TTL:          getEnvDuration("HUBCAP_CACHE_TTL", 24*time.Hour),
		},
		Signing: SigningConfig{
			Endpoint: getEnv("HUBCAP_SIGNING_ENDPOINT", ""),
			Timeout:  getEnvDuration("HUBCAP_SIGNING_TIMEOUT", 30*time.Second),
		},
		Events: EventsConfig{
			WebhookURL:    getEnv("HUBCAP_EVENTS_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("HUBCAP_EVENTS_WEBHOOK_SECRET", ""),
			Timeout:       getEnvDuration("HUBCAP_EVENTS_TIMEOUT", 10*time.Second),
		},
		Cleanup: CleanupConfig{
			Enabled:  getEnvBool("HUBCAP_CLEANUP_ENABLED", true),
			Schedule: getEnv("HUBCAP_CLEANUP_SCHEDULE", "@hourly"),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("HUBCAP_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("HUBCAP_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("HUBCAP_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("HUBCAP_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("HUBCAP_OTEL_SERVICE_NAME", "hubcap"),
			OTelServiceVersion: getEnv("HUBCAP_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("HUBCAP_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	switch c.Blobstore.Type {
	case "filesystem":
		if c.Blobstore.PrivateRoot == "" || c.Blobstore.PublicRoot == "" {
			return fmt.Errorf("filesystem roots are required for filesystem blobstore")
		}
		if c.Blobstore.PrivateRoot == c.Blobstore.PublicRoot {
			return fmt.Errorf("private and public blobstore roots must be different")
		}
	case "s3":
		if c.Blobstore.S3Endpoint == "" {
			return fmt.Errorf("S3 endpoint is required for s3 blobstore")
		}
		if c.Blobstore.S3PrivateBucket == "" || c.Blobstore.S3PublicBucket == "" {
			return fmt.Errorf("S3 buckets are required for s3 blobstore")
		}
		if c.Blobstore.S3PrivateBucket == c.Blobstore.S3PublicBucket {
			return fmt.Errorf("private and public S3 buckets must be different")
		}
	default:
		return fmt.Errorf("invalid blobstore type: %s (must be filesystem or s3)", c.Blobstore.Type)
	}

	if c.Signing.Endpoint == "" {
		return fmt.Errorf("signing endpoint is required")
	}

	if c.Cleanup.Enabled && c.Cleanup.Schedule == "" {
		return fmt.Errorf("cleanup schedule is required when cleanup is enabled")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
