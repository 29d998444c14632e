package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Ledger transports.
const (
	TransportLocal = "local"
	TransportSQS   = "sqs"
)

// Authorization policies.
const (
	PolicyAllowAll          = "allow-all"
	PolicyVerifierAllowlist = "verifier-allowlist"
)

// Trace exporters.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// EnvFilePath names the variable pointing at an optional .env file.
const EnvFilePath = "ENV_PATH"

// DefaultEnvFilePath is read when ENV_PATH is unset.
const DefaultEnvFilePath = ".env"

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	Database    DatabaseConfig
	Logger      LoggerConfig
	Auth        AuthConfig
	AWS         AWSConfig
	Ledger      LedgerConfig
	Steps       StepsConfig
	S3          S3Config
	Metrics     MetricsConfig
	Tracing     TracingConfig
	Idempotency IdempotencyConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// StoreConfig selects the registry persistence backend.
type StoreConfig struct {
	Backend        string // "memory" or "postgres"
	MigrateOnStart bool
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	URL             string // overrides the individual connection fields when set
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds

	// MaxConnIdleTime and HealthCheckPeriod tune idle connection reaping.
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication and authorization configuration.
type AuthConfig struct {
	APIKey    string
	Policy    string
	Verifiers []string
}

// AWSConfig holds settings shared by every AWS client.
type AWSConfig struct {
	Region   string
	Endpoint string // LocalStack or another compatible endpoint
}

// LedgerConfig selects the commit transport.
type LedgerConfig struct {
	Transport     string // "local" or "sqs"
	QueueURL      string
	CommitTimeout time.Duration
}

// StepsConfig configures the supply-chain step consumer.
type StepsConfig struct {
	ConsumerEnabled bool
	QueueURL        string
	WaitTimeSeconds int
	MaxMessages     int
}

// S3Config holds AWS S3 configuration for seed catalogues.
type S3Config struct {
	Enabled bool
	Bucket  string
	Prefix  string // Path prefix within bucket (e.g., "catalogues/")
}

// MetricsConfig holds Prometheus exporter configuration.
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds OpenTelemetry configuration.
type TracingConfig struct {
	Enabled     bool
	Exporter    string // "stdout" or "otlp"
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

// IdempotencyConfig holds the Idempotency-Key replay window.
type IdempotencyConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// ApplyEnvFile loads environment variables from the given .env files.
// Variables already present in the environment are not overridden.
func ApplyEnvFile(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load loads configuration from environment variables, after applying the
// optional .env file named by ENV_PATH.
func Load() (*Config, error) {
	envPath := getEnv(EnvFilePath, DefaultEnvFilePath)
	if err := ApplyEnvFile(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Backend:        getEnv("STORE_BACKEND", BackendMemory),
			MigrateOnStart: getEnvAsBool("STORE_MIGRATE_ON_START", true),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "greenzone"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),

			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", time.Minute),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey:    getEnv("API_KEY", ""),
			Policy:    getEnv("AUTH_POLICY", PolicyAllowAll),
			Verifiers: getEnvAsList("AUTH_VERIFIERS", nil),
		},
		AWS: AWSConfig{
			Region:   getEnv("AWS_REGION", "us-east-1"),
			Endpoint: getEnv("AWS_ENDPOINT", ""),
		},
		Ledger: LedgerConfig{
			Transport:     getEnv("LEDGER_TRANSPORT", TransportLocal),
			QueueURL:      getEnv("LEDGER_QUEUE_URL", ""),
			CommitTimeout: getEnvAsDuration("LEDGER_COMMIT_TIMEOUT", 5*time.Second),
		},
		Steps: StepsConfig{
			ConsumerEnabled: getEnvAsBool("STEPS_CONSUMER_ENABLED", false),
			QueueURL:        getEnv("STEPS_QUEUE_URL", ""),
			WaitTimeSeconds: getEnvAsInt("STEPS_WAIT_TIME_SECONDS", 20),
			MaxMessages:     getEnvAsInt("STEPS_MAX_MESSAGES", 10),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Prefix:  getEnv("S3_PREFIX", "catalogues/"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Port:    getEnvAsInt("METRICS_PORT", 9090),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("TRACING_ENABLED", false),
			Exporter:    getEnv("TRACING_EXPORTER", ExporterStdout),
			Endpoint:    getEnv("TRACING_ENDPOINT", "localhost:4317"),
			ServiceName: getEnv("TRACING_SERVICE_NAME", "greenzone"),
			SampleRatio: getEnvAsFloat("TRACING_SAMPLE_RATIO", 1.0),
		},
		Idempotency: IdempotencyConfig{
			TTL:             getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),
			CleanupInterval: getEnvAsDuration("IDEMPOTENCY_CLEANUP_INTERVAL", 10*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be memory or postgres)", c.Store.Backend)
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	switch c.Auth.Policy {
	case PolicyAllowAll:
	case PolicyVerifierAllowlist:
		if len(c.Auth.Verifiers) == 0 {
			return fmt.Errorf("at least one verifier is required for the %s policy", PolicyVerifierAllowlist)
		}
	default:
		return fmt.Errorf("invalid auth policy: %s (must be %s or %s)", c.Auth.Policy, PolicyAllowAll, PolicyVerifierAllowlist)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	switch c.Ledger.Transport {
	case TransportLocal:
	case TransportSQS:
		if c.Ledger.QueueURL == "" {
			return fmt.Errorf("ledger queue URL is required for the sqs transport")
		}
	default:
		return fmt.Errorf("invalid ledger transport: %s (must be local or sqs)", c.Ledger.Transport)
	}

	if c.Ledger.CommitTimeout <= 0 {
		return fmt.Errorf("ledger commit timeout must be positive")
	}

	if c.Steps.ConsumerEnabled {
		if c.Steps.QueueURL == "" {
			return fmt.Errorf("steps queue URL is required when the step consumer is enabled")
		}
		if c.Steps.MaxMessages < 1 || c.Steps.MaxMessages > 10 {
			return fmt.Errorf("steps max messages must be between 1 and 10")
		}
		if c.Steps.WaitTimeSeconds < 0 || c.Steps.WaitTimeSeconds > 20 {
			return fmt.Errorf("steps wait time must be between 0 and 20 seconds")
		}
	}

	if (c.Ledger.Transport == TransportSQS || c.Steps.ConsumerEnabled || c.S3.Enabled) && c.AWS.Region == "" {
		return fmt.Errorf("AWS region is required when an AWS integration is enabled")
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("S3 bucket is required when S3 is enabled")
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}

	if c.Metrics.Enabled && c.Metrics.Port == c.Server.Port {
		return fmt.Errorf("metrics port must differ from server port")
	}

	if c.Tracing.Enabled {
		if c.Tracing.Exporter != ExporterStdout && c.Tracing.Exporter != ExporterOTLP {
			return fmt.Errorf("invalid tracing exporter: %s (must be stdout or otlp)", c.Tracing.Exporter)
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			return fmt.Errorf("tracing sample ratio must be between 0 and 1")
		}
	}

	if c.Idempotency.TTL <= 0 {
		return fmt.Errorf("idempotency TTL must be positive")
	}

	return nil
}

// Validate validates the database connection settings.
func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		if c.Host == "" {
			return fmt.Errorf("database host is required")
		}

		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Port)
		}

		if c.User == "" {
			return fmt.Errorf("database user is required")
		}

		if c.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.MaxConnIdleTime < 0 || c.HealthCheckPeriod < 0 {
		return fmt.Errorf("database idle time and health check period cannot be negative")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Address returns the metrics listener address.
func (c *MetricsConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsDuration parses values such as "5s" or "250ms".
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
