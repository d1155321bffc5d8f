// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Providers ProvidersConfig `toml:"providers"`
	Requests  RequestsConfig  `toml:"requests"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// CatalogConfig points at the metadata catalog requests are validated against.
type CatalogConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

type ProvidersConfig struct {
	Radarr *ProviderConfig `toml:"radarr"`
	Sonarr *ProviderConfig `toml:"sonarr"`
}

type ProviderConfig struct {
	URL              string `toml:"url"`
	APIKey           string `toml:"api_key"`
	RootFolder       string `toml:"root_folder"`
	QualityProfileID int64  `toml:"quality_profile_id"`
}

// RequestsConfig tunes the approval flow's provider interaction.
type RequestsConfig struct {
	DetailAttempts        int           `toml:"detail_attempts"`
	DetailAttemptsCreated int           `toml:"detail_attempts_created"`
	DetailDelay           time.Duration `toml:"detail_delay"`
}

type SchedulerConfig struct {
	Tick     time.Duration        `toml:"tick"`
	LeaseTTL time.Duration        `toml:"lease_ttl"`
	Jobs     map[string]JobConfig `toml:"jobs"`
}

type JobConfig struct {
	Schedule         string        `toml:"schedule"`
	IntervalFallback time.Duration `toml:"interval_fallback"`
	Enabled          bool          `toml:"enabled"`
	RunOnStart       bool          `toml:"run_on_start"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Substitute environment variables
	content := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8686
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/fetcharr.db"
	}
	if cfg.Scheduler.Tick == 0 {
		cfg.Scheduler.Tick = 15 * time.Second
	}
	if cfg.Scheduler.LeaseTTL == 0 {
		cfg.Scheduler.LeaseTTL = time.Minute
	}

	return &cfg, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match // Leave unchanged if not found
	})
}
