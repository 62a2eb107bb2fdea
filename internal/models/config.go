// Package models - Service configuration and operational settings.
// This file defines the configuration structures for every component of the
// web core: HTTP server, application registry, request counter store,
// API authentication window, static assets, logging and observability.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping
// - Defaults that run out of the box without external services
// - Validation catches misconfigurations before the server starts
package models

import (
	"errors"
	"fmt"
	"time"
)

// Registry type constants
const (
	RegistryTypeJSON     = "json"
	RegistryTypeMemory   = "memory"
	RegistryTypePostgres = "postgres"
	RegistryTypeSQLite   = "sqlite"
)

// Counter store type constants
const (
	CounterTypeMemory = "memory"
	CounterTypeRedis  = "redis"
)

// Config is the root configuration structure containing all service settings.
//
// Configuration Structure:
// - Server: HTTP server and network settings
// - Registry: where OAuth applications are looked up
// - Counter: where hourly request counts are kept
// - Auth: request freshness window for signed API calls
// - Static: asset and template locations
// - Security: anonymous rate limiting of the static surface
// - Logging, Metrics, Observability: operational output
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Registry      RegistryConfig      `yaml:"registry" json:"registry"`
	Counter       CounterConfig       `yaml:"counter" json:"counter"`
	Auth          AuthConfig          `yaml:"auth" json:"auth"`
	Static        StaticConfig        `yaml:"static" json:"static"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
}

type RegistryConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Path     string         `yaml:"path" json:"path"`
	Database DatabaseConfig `yaml:"database" json:"database"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// CounterConfig selects the store keeping per-application request counts.
// Window is the lifetime of a counter record, one hour unless overridden.
type CounterConfig struct {
	Type      string        `yaml:"type" json:"type"`
	KeyPrefix string        `yaml:"key_prefix" json:"key_prefix"`
	Window    time.Duration `yaml:"window" json:"window"`
	Redis     RedisConfig   `yaml:"redis" json:"redis"`
	Memory    MemoryConfig  `yaml:"memory" json:"memory"`
}

// RedisConfig accepts either a redis:// URL or discrete connection fields.
// The URL wins when both are set.
type RedisConfig struct {
	URL      string `yaml:"url" json:"url"`
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
}

type MemoryConfig struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// AuthConfig bounds the X-Timestamp header: a request is fresh when
// now-MaxAge < timestamp <= now+MaxSkew.
type AuthConfig struct {
	MaxAge  time.Duration `yaml:"max_age" json:"max_age"`
	MaxSkew time.Duration `yaml:"max_skew" json:"max_skew"`
}

type StaticConfig struct {
	Root       string `yaml:"root" json:"root"`
	SourceMaps bool   `yaml:"source_maps" json:"source_maps"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig configures the per-IP token bucket in front of the
// anonymous routes. API routes are governed by application quotas instead.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with defaults that need no
// external services: in-memory registry and counter store, JSON
// logging to stdout and metrics on :9090.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8000,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Registry: RegistryConfig{
			Type: RegistryTypeMemory,
			Path: "./data/applications.json",
			Database: DatabaseConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Counter: CounterConfig{
			Type:      CounterTypeMemory,
			KeyPrefix: "webcore:oauth:requests:",
			Window:    time.Hour,
			Memory: MemoryConfig{
				CleanupInterval: 5 * time.Minute,
			},
		},
		Auth: AuthConfig{
			MaxAge:  5 * time.Minute,
			MaxSkew: 10 * time.Second,
		},
		Static: StaticConfig{
			Root: "static",
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 600,
				BurstSize:         100,
				CleanupInterval:   5 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "webcore",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("invalid registry config: %w", err)
	}

	if err := c.Counter.Validate(); err != nil {
		return fmt.Errorf("invalid counter config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}

	if c.Static.Root == "" {
		return errors.New("invalid static config: root cannot be empty")
	}

	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 {
		return errors.New("read timeout cannot be negative")
	}

	if sc.WriteTimeout < 0 {
		return errors.New("write timeout cannot be negative")
	}

	if sc.IdleTimeout < 0 {
		return errors.New("idle timeout cannot be negative")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (rc *RegistryConfig) Validate() error {
	switch rc.Type {
	case RegistryTypeMemory:
		return nil
	case RegistryTypeJSON:
		if rc.Path == "" {
			return errors.New("path is required for JSON registry")
		}
	case RegistryTypePostgres, RegistryTypeSQLite:
		if rc.Database.DSN == "" {
			return errors.New("database DSN is required for database registry")
		}
	default:
		return fmt.Errorf("invalid registry type: %s", rc.Type)
	}

	if rc.Database.MaxOpenConns < 0 || rc.Database.MaxIdleConns < 0 {
		return errors.New("connection pool sizes cannot be negative")
	}

	return nil
}

func (cc *CounterConfig) Validate() error {
	switch cc.Type {
	case CounterTypeMemory:
		if cc.Memory.CleanupInterval <= 0 {
			return errors.New("memory cleanup interval must be positive")
		}
	case CounterTypeRedis:
		if cc.Redis.URL == "" && cc.Redis.Addr == "" {
			return errors.New("redis url or address is required when counter type is redis")
		}
		if cc.Redis.PoolSize < 0 {
			return errors.New("redis pool size cannot be negative")
		}
	default:
		return fmt.Errorf("invalid counter type: %s", cc.Type)
	}

	if cc.Window < time.Millisecond {
		return errors.New("counter window must be at least 1ms")
	}

	return nil
}

func (ac *AuthConfig) Validate() error {
	if ac.MaxAge <= 0 {
		return errors.New("max age must be positive")
	}
	if ac.MaxSkew < 0 {
		return errors.New("max skew cannot be negative")
	}
	return nil
}

func (sec *SecurityConfig) Validate() error {
	if sec.RateLimit.Enabled {
		if sec.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("requests per minute must be positive")
		}
		if sec.RateLimit.BurstSize <= 0 {
			return errors.New("burst size must be positive")
		}
		if sec.RateLimit.CleanupInterval <= 0 {
			return errors.New("cleanup interval must be positive")
		}
	}
	return nil
}

func (lc *LoggingConfig) Validate() error {
	if !oneOf(lc.Level, "debug", "info", "warn", "warning", "error") {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	if !oneOf(lc.Format, "json", "text") {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	if !oneOf(lc.Output, "stdout", "stderr", "file") {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if oc.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}

	if !oc.Tracing.Enabled {
		return nil
	}

	if !oneOf(oc.Tracing.Exporter, "stdout", "otlp") {
		return fmt.Errorf("invalid trace exporter: %s", oc.Tracing.Exporter)
	}

	if oc.Tracing.Exporter == "otlp" && oc.Tracing.OTLPEndpoint == "" {
		return errors.New("otlp endpoint is required for the otlp exporter")
	}

	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
