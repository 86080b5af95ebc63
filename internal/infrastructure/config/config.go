package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Swagger   SwaggerConfig   `mapstructure:"swagger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Profiling ProfilingConfig `mapstructure:"profiling"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Printing  PrintingConfig  `mapstructure:"printing"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Import    ImportConfig    `mapstructure:"import"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, console
	Output     string `mapstructure:"output"` // stdout, stderr, or file path
	TimeFormat string `mapstructure:"time_format"`
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // in minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // in minutes
	AutoMigrate     bool   `mapstructure:"auto_migrate"`       // apply embedded migrations on startup
	MigrationsDir   string `mapstructure:"migrations_dir"`
	PreparedStmts   bool   `mapstructure:"prepared_statements"` // false behind transaction-mode poolers such as PgBouncer
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string        `mapstructure:"secret"`
	AccessTokenExpiration  time.Duration `mapstructure:"access_token_expiration"`
	RefreshTokenExpiration time.Duration `mapstructure:"refresh_token_expiration"`
	Issuer                 string        `mapstructure:"issuer"`
	RefreshSecret          string        `mapstructure:"refresh_secret"`
	MaxRefreshCount        int           `mapstructure:"max_refresh_count"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration `mapstructure:"read_timeout"`
	WriteTimeout          time.Duration `mapstructure:"write_timeout"`
	IdleTimeout           time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout       time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes        int           `mapstructure:"max_header_bytes"`
	MaxBodySize           int64         `mapstructure:"max_body_size"`
	RateLimitEnabled      bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests     int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow       time.Duration `mapstructure:"rate_limit_window"`
	AuthRateLimitEnabled  bool          `mapstructure:"auth_rate_limit_enabled"` // Stricter limit on /auth/login and /auth/register
	AuthRateLimitRequests int           `mapstructure:"auth_rate_limit_requests"`
	AuthRateLimitWindow   time.Duration `mapstructure:"auth_rate_limit_window"`
	CORSAllowOrigins      []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods      []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders      []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies        []string      `mapstructure:"trusted_proxies"`
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`     // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"` // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`            // Tee zap records into OTel logs
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`        // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`         // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"` // Slow query threshold for warnings (default: 200ms)
}

// ProfilingConfig holds Pyroscope continuous profiling configuration
type ProfilingConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	ServerAddress    string `mapstructure:"server_address"`
	ApplicationName  string `mapstructure:"application_name"`
	BasicAuthUser    string `mapstructure:"basic_auth_user"`
	BasicAuthPass    string `mapstructure:"basic_auth_password"`
	SpanProfiles     bool   `mapstructure:"span_profiles"` // Link profiles to trace spans
	MutexProfileRate int    `mapstructure:"mutex_profile_rate"`
	BlockProfileRate int    `mapstructure:"block_profile_rate"`
}

// StorageConfig holds object storage configuration for product images
type StorageConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"` // Custom endpoint for S3-compatible stores (MinIO)
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	PublicBaseURL   string `mapstructure:"public_base_url"` // Prefix for public object URLs
	MaxImageSize    int64  `mapstructure:"max_image_size"`
}

// PrintingConfig holds receipt rendering configuration
type PrintingConfig struct {
	ChromePath string        `mapstructure:"chrome_path"` // Empty = find Chrome on PATH
	RemoteURL  string        `mapstructure:"remote_url"`  // DevTools websocket of a running Chrome; skips the local launch
	NoSandbox  bool          `mapstructure:"no_sandbox"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CheckoutConfig holds checkout settings
type CheckoutConfig struct {
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// ImportConfig limits seller CSV uploads
type ImportConfig struct {
	MaxRows   int `mapstructure:"max_rows"`
	MaxErrors int `mapstructure:"max_errors"` // row errors reported back; the total is always counted
}

// OutboxConfig holds outbox processing configuration
type OutboxConfig struct {
	ProcessorEnabled bool          `mapstructure:"processor_enabled"`
	BatchSize        int           `mapstructure:"batch_size"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	ClaimLease       time.Duration `mapstructure:"claim_lease"` // PROCESSING entries older than this are reclaimed
	CleanupEnabled   bool          `mapstructure:"cleanup_enabled"`
	CleanupRetention time.Duration `mapstructure:"cleanup_retention"`
}

// Load reads config.toml from the working directory, ./config or
// /etc/marketplace, then overlays MKT_ environment variables
// (MKT_DATABASE_PASSWORD sets database.password). Missing keys keep the
// defaults below.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/marketplace")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("MKT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.App.Name
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaults lists every key the service reads. Keys must be registered here
// for environment overrides to reach Unmarshal.
var defaults = map[string]any{
	"app.name": "marketplace-backend",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":                "localhost",
	"database.port":                5432,
	"database.user":                "postgres",
	"database.password":            "",
	"database.dbname":              "marketplace",
	"database.sslmode":             "disable",
	"database.max_open_conns":      25,
	"database.max_idle_conns":      5,
	"database.conn_max_lifetime":   60,
	"database.conn_max_idle_time":  30,
	"database.auto_migrate":        false,
	"database.migrations_dir":      "",
	"database.prepared_statements": true,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret":                   "",
	"jwt.refresh_secret":           "",
	"jwt.access_token_expiration":  15 * time.Minute,
	"jwt.refresh_token_expiration": 7 * 24 * time.Hour,
	"jwt.issuer":                   "marketplace-backend",
	"jwt.max_refresh_count":        10,

	"log.level":       "info",
	"log.format":      "console",
	"log.output":      "stdout",
	"log.time_format": "2006-01-02T15:04:05.000Z07:00",

	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    30 * time.Second, // receipts render through Chrome
	"http.idle_timeout":     60 * time.Second,
	"http.shutdown_timeout": 10 * time.Second,
	"http.max_header_bytes": 1 << 20,
	"http.max_body_size":    10 << 20,

	"http.rate_limit_enabled":       false,
	"http.rate_limit_requests":      100,
	"http.rate_limit_window":        time.Minute,
	"http.auth_rate_limit_enabled":  false,
	"http.auth_rate_limit_requests": 5,
	"http.auth_rate_limit_window":   time.Minute,

	// no origins means no cross-origin requests
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"},
	"http.trusted_proxies":    []string{},

	"swagger.enabled": false,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,

	"profiling.enabled":             false,
	"profiling.server_address":      "http://localhost:4040",
	"profiling.application_name":    "",
	"profiling.basic_auth_user":     "",
	"profiling.basic_auth_password": "",
	"profiling.span_profiles":       false,
	"profiling.mutex_profile_rate":  0,
	"profiling.block_profile_rate":  0,

	"storage.enabled":           false,
	"storage.bucket":            "",
	"storage.region":            "us-east-1",
	"storage.endpoint":          "",
	"storage.access_key_id":     "",
	"storage.secret_access_key": "",
	"storage.use_path_style":    false,
	"storage.public_base_url":   "",
	"storage.max_image_size":    5 << 20,

	"printing.chrome_path": "",
	"printing.remote_url":  "",
	"printing.no_sandbox":  false,
	"printing.timeout":     20 * time.Second,

	"checkout.idempotency_ttl": 24 * time.Hour,

	"import.max_rows":   5000,
	"import.max_errors": 100,

	"outbox.processor_enabled": false,
	"outbox.batch_size":        100,
	"outbox.poll_interval":     5 * time.Second,
	"outbox.max_attempts":      5,
	"outbox.claim_lease":       2 * time.Minute,
	"outbox.cleanup_enabled":   false,
	"outbox.cleanup_retention": 7 * 24 * time.Hour,
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	var port int
	if _, err := fmt.Sscanf(c.App.Port, "%d", &port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("app.port must be a number between 1 and 65535, got %q", c.App.Port)
	}

	if c.IsProduction() {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	if c.Import.MaxRows <= 0 {
		return fmt.Errorf("import.max_rows must be positive")
	}

	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
