package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no path is supplied via flag or environment.
const DefaultConfigPath = "config.yaml"

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Steering SteeringConfig `yaml:"steering"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Listen string `yaml:"listen"` // Listen address, host:port.
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // Postgres DSN or SQLite path.
}

// RedisConfig configures the shared cache tier.
// An empty address disables the shared tier; the cache then runs local-only.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig tunes the request/response cache.
type CacheConfig struct {
	LocalMaxEntries     int     `yaml:"local-max-entries"`
	DefaultTTLSeconds   int     `yaml:"default-ttl-seconds"`
	SimilarityThreshold float64 `yaml:"similarity-threshold"`
}

// SteeringConfig tunes steering rule reloads.
type SteeringConfig struct {
	ReloadIntervalSeconds int `yaml:"reload-interval-seconds"`
}

// CatalogConfig tunes model catalog refreshes.
type CatalogConfig struct {
	RefreshIntervalSeconds int `yaml:"refresh-interval-seconds"`
}

// AuthConfig holds credentials for the API and admin surfaces.
type AuthConfig struct {
	JWTSecret    string   `yaml:"jwt-secret"`     // HMAC secret for admin tokens.
	APIKeyHashes []string `yaml:"api-key-hashes"` // bcrypt hashes of accepted API keys.
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // Empty writes to stderr.
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// ResolveConfigPath returns the effective config path, preferring the explicit
// argument, then the ROUTING_ENGINE_CONFIG environment variable.
func ResolveConfigPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed != "" {
		return filepath.Clean(trimmed)
	}
	if env := strings.TrimSpace(os.Getenv("ROUTING_ENGINE_CONFIG")); env != "" {
		return filepath.Clean(env)
	}
	return DefaultConfigPath
}

// Load reads, parses, and validates the configuration file.
func Load(path string) (*Config, error) {
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	cfg := &Config{}
	if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
	}
	cfg.applyDefaults()

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, fmt.Errorf("config: database.dsn is required")
	}
	return cfg, nil
}

// applyDefaults fills unset fields with safe defaults.
func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Server.Listen) == "" {
		c.Server.Listen = ":8318"
	}
	if c.Cache.LocalMaxEntries <= 0 {
		c.Cache.LocalMaxEntries = 1000
	}
	if c.Cache.DefaultTTLSeconds <= 0 {
		c.Cache.DefaultTTLSeconds = 3600
	}
	if c.Cache.SimilarityThreshold <= 0 || c.Cache.SimilarityThreshold > 1 {
		c.Cache.SimilarityThreshold = 0.92
	}
	if c.Steering.ReloadIntervalSeconds <= 0 {
		c.Steering.ReloadIntervalSeconds = 30
	}
	if c.Catalog.RefreshIntervalSeconds <= 0 {
		c.Catalog.RefreshIntervalSeconds = 60
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 14
	}
}
