package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/bootstrap"
	"github.com/platinummonkey/tasklist/pkg/observability"
	"github.com/platinummonkey/tasklist/pkg/storage"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "TASKLIST"

// FileEnvVar names the optional YAML file loaded before the environment
const FileEnvVar = "TASKLIST_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" split_words:"true"`
	Storage       StorageConfig       `yaml:"storage" split_words:"true"`
	Redis         RedisConfig         `yaml:"redis" split_words:"true"`
	Auth          AuthConfig          `yaml:"auth" split_words:"true"`
	Seed          SeedConfig          `yaml:"seed" split_words:"true"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit" split_words:"true"`
	Maintenance   MaintenanceConfig   `yaml:"maintenance" split_words:"true"`
	Observability ObservabilityConfig `yaml:"observability" split_words:"true"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" split_words:"true"`
	Port            string        `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" split_words:"true"`
	CORSOrigins     []string      `yaml:"cors_origins" split_words:"true"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port" split_words:"true"`
}

// Addr returns the API listen address
func (s ServerConfig) Addr() string { return s.Host + ":" + s.Port }

// HealthAddr returns the health/metrics listen address
func (s ServerConfig) HealthAddr() string { return s.Host + ":" + s.HealthPort }

// StorageConfig selects and tunes the backend
type StorageConfig struct {
	Type        string        `yaml:"type" split_words:"true"`
	URL         string        `yaml:"url" split_words:"true"`
	ReplicaURLs []string      `yaml:"replica_urls" envconfig:"REPLICA_URLS"`
	MaxConns    int           `yaml:"max_conns" split_words:"true"`
	MinConns    int           `yaml:"min_conns" split_words:"true"`
	Timeout     time.Duration `yaml:"timeout" split_words:"true"`
	MaxLifetime time.Duration `yaml:"max_lifetime" split_words:"true"`
	MaxIdleTime time.Duration `yaml:"max_idle_time" split_words:"true"`

	CacheEnabled bool          `yaml:"cache_enabled" split_words:"true"`
	CacheTTL     time.Duration `yaml:"cache_ttl" split_words:"true"`
	CacheEntries int           `yaml:"cache_entries" split_words:"true"`
}

// RedisConfig is optional; an empty URL disables the shared cache and the
// distributed rate limiter.
type RedisConfig struct {
	URL        string `yaml:"url" split_words:"true"`
	Password   string `yaml:"password" split_words:"true"`
	DB         int    `yaml:"db" split_words:"true"`
	MaxRetries int    `yaml:"max_retries" split_words:"true"`
	PoolSize   int    `yaml:"pool_size" split_words:"true"`
}

// Enabled reports whether a Redis URL is configured
func (r RedisConfig) Enabled() bool { return r.URL != "" }

// AuthConfig holds token and password settings
type AuthConfig struct {
	SigningKey   string `yaml:"signing_key" split_words:"true"`
	Issuer       string `yaml:"issuer" split_words:"true"`
	Audience     string `yaml:"audience" split_words:"true"`
	PasswordHash string `yaml:"password_hash" split_words:"true"`
}

// SeedConfig names the administrator created at startup
type SeedConfig struct {
	Enabled       bool   `yaml:"enabled" split_words:"true"`
	AdminEmail    string `yaml:"admin_email" split_words:"true"`
	AdminUsername string `yaml:"admin_username" split_words:"true"`
	AdminPassword string `yaml:"admin_password" split_words:"true"`
}

// RateLimitConfig throttles the auth routes per client address and the
// bearer routes per identity
type RateLimitConfig struct {
	Enabled      bool          `yaml:"enabled" split_words:"true"`
	Distributed  bool          `yaml:"distributed" split_words:"true"`
	FailOpen     bool          `yaml:"fail_open" split_words:"true"`
	Window       time.Duration `yaml:"window" split_words:"true"`
	AuthRequests int           `yaml:"auth_requests" split_words:"true"`
	AuthBurst    int           `yaml:"auth_burst" split_words:"true"`
	APIRequests  int           `yaml:"api_requests" split_words:"true"`
	APIBurst     int           `yaml:"api_burst" split_words:"true"`
}

// MaintenanceConfig holds cron schedules for background jobs. An empty
// schedule disables the job.
type MaintenanceConfig struct {
	RateLimitCleanup string `yaml:"rate_limit_cleanup" split_words:"true"`
	ReplicaHealth    string `yaml:"replica_health" split_words:"true"`
	PoolStats        string `yaml:"pool_stats" split_words:"true"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel     string `yaml:"log_level" split_words:"true"`
	LogFile      string `yaml:"log_file" split_words:"true"`
	AuditLogFile string `yaml:"audit_log_file" split_words:"true"`

	MetricsEnabled bool `yaml:"metrics_enabled" split_words:"true"`

	OTelEnabled        bool    `yaml:"otel_enabled" envconfig:"OTEL_ENABLED"`
	OTelEndpoint       string  `yaml:"otel_endpoint" envconfig:"OTEL_ENDPOINT"`
	OTelServiceName    string  `yaml:"otel_service_name" envconfig:"OTEL_SERVICE_NAME"`
	OTelServiceVersion string  `yaml:"otel_service_version" envconfig:"OTEL_SERVICE_VERSION"`
	OTelInsecure       bool    `yaml:"otel_insecure" envconfig:"OTEL_INSECURE"`
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio" envconfig:"OTEL_SAMPLE_RATIO"`
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// OTel returns the tracing settings in the form InitOTel takes
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	st := storage.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			HealthPort:      "9090",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Storage: StorageConfig{
			Type:         st.Type,
			MaxConns:     st.MaxConns,
			MinConns:     st.MinConns,
			Timeout:      st.Timeout,
			MaxLifetime:  st.MaxLifetime,
			MaxIdleTime:  st.MaxIdleTime,
			CacheEnabled: st.CacheEnabled,
			CacheTTL:     st.CacheTTL,
			CacheEntries: st.L1CacheEntries,
		},
		Redis: RedisConfig{
			MaxRetries: st.RedisMaxRetries,
			PoolSize:   st.RedisPoolSize,
		},
		Auth: AuthConfig{
			Issuer:       "tasklist",
			Audience:     "tasklist-clients",
			PasswordHash: auth.HashBcrypt,
		},
		Seed: SeedConfig{
			Enabled:       true,
			AdminEmail:    bootstrap.DefaultAdminEmail,
			AdminUsername: bootstrap.DefaultAdminUsername,
			AdminPassword: bootstrap.DefaultAdminPassword,
		},
		RateLimit: RateLimitConfig{
			Enabled:      true,
			FailOpen:     true,
			Window:       time.Minute,
			AuthRequests: 10,
			AuthBurst:    5,
			APIRequests:  600,
			APIBurst:     50,
		},
		Maintenance: MaintenanceConfig{
			RateLimitCleanup: "@every 5m",
			ReplicaHealth:    "@every 30s",
			PoolStats:        "@every 15s",
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "tasklist",
			OTelServiceVersion: "dev",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
		},
	}
}

// Load reads the file named by TASKLIST_CONFIG_FILE, if any, then applies
// TASKLIST_* environment overrides and validates the result.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(FileEnvVar))
}

// LoadFile is Load with an explicit file path; an empty path skips the file
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// StorageConfig returns the backend settings in the form the storage layer takes
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Type:            c.Storage.Type,
		URL:             c.Storage.URL,
		ReplicaURLs:     c.Storage.ReplicaURLs,
		MaxConns:        c.Storage.MaxConns,
		MinConns:        c.Storage.MinConns,
		Timeout:         c.Storage.Timeout,
		MaxLifetime:     c.Storage.MaxLifetime,
		MaxIdleTime:     c.Storage.MaxIdleTime,
		RedisURL:        c.Redis.URL,
		RedisPassword:   c.Redis.Password,
		RedisDB:         c.Redis.DB,
		RedisMaxRetries: c.Redis.MaxRetries,
		RedisPoolSize:   c.Redis.PoolSize,
		CacheEnabled:    c.Storage.CacheEnabled,
		CacheTTL:        c.Storage.CacheTTL,
		L1CacheEntries:  c.Storage.CacheEntries,
	}
}

// TokenConfig returns the token manager settings
func (c *Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		SigningKey: []byte(c.Auth.SigningKey),
		Issuer:     c.Auth.Issuer,
		Audience:   c.Auth.Audience,
	}
}

// AdminConfig returns the seeded administrator settings
func (c *Config) AdminConfig() bootstrap.AdminConfig {
	return bootstrap.AdminConfig{
		Email:    c.Seed.AdminEmail,
		Username: c.Seed.AdminUsername,
		Password: c.Seed.AdminPassword,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if c.Server.HealthPort == "" {
		errs = append(errs, errors.New("health port is required"))
	}
	if c.Server.Port != "" && c.Server.Port == c.Server.HealthPort {
		errs = append(errs, errors.New("server port and health port must be different"))
	}

	if err := c.StorageConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Storage.CacheEnabled && c.Storage.CacheTTL <= 0 {
		errs = append(errs, errors.New("cache TTL must be positive when the cache is enabled"))
	}

	if len(c.Auth.SigningKey) < auth.MinSigningKeyLength {
		errs = append(errs, fmt.Errorf("auth signing key must be at least %d bytes", auth.MinSigningKeyLength))
	}
	if strings.TrimSpace(c.Auth.Issuer) == "" {
		errs = append(errs, errors.New("auth issuer is required"))
	}
	if strings.TrimSpace(c.Auth.Audience) == "" {
		errs = append(errs, errors.New("auth audience is required"))
	}
	if _, err := auth.NewPasswordHasher(c.Auth.PasswordHash); err != nil {
		errs = append(errs, err)
	}

	if c.Seed.Enabled && (c.Seed.AdminEmail == "" || c.Seed.AdminPassword == "") {
		errs = append(errs, errors.New("seed admin email and password are required when seeding is enabled"))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 || c.RateLimit.AuthRequests <= 0 || c.RateLimit.APIRequests <= 0 {
			errs = append(errs, errors.New("rate limit window and request budgets must be positive"))
		}
		if c.RateLimit.Distributed && !c.Redis.Enabled() {
			errs = append(errs, errors.New("distributed rate limiting requires a redis URL"))
		}
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"rate_limit_cleanup": c.Maintenance.RateLimitCleanup,
		"replica_health":     c.Maintenance.ReplicaHealth,
		"pool_stats":         c.Maintenance.PoolStats,
	} {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s schedule %q: %w", name, spec, err))
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			errs = append(errs, errors.New("OpenTelemetry endpoint is required when OTel is enabled"))
		}
		if c.Observability.OTelServiceName == "" {
			errs = append(errs, errors.New("OpenTelemetry service name is required when OTel is enabled"))
		}
	}

	return errors.Join(errs...)
}
