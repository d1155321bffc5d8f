package config

import (
	"fmt"
	"net/url"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// At least one provider required
	if c.Providers.Radarr == nil && c.Providers.Sonarr == nil {
		errs = append(errs, "providers: at least one provider (radarr or sonarr) must be configured")
	}

	// Server validation
	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	// Catalog validation
	if c.Catalog.URL == "" {
		errs = append(errs, "catalog.url: required")
	} else if _, err := url.Parse(c.Catalog.URL); err != nil {
		errs = append(errs, fmt.Sprintf("catalog.url: %v", err))
	}

	// Provider validation
	if c.Providers.Radarr != nil {
		errs = append(errs, validateProvider("radarr", c.Providers.Radarr)...)
	}
	if c.Providers.Sonarr != nil {
		errs = append(errs, validateProvider("sonarr", c.Providers.Sonarr)...)
	}

	// Scheduler job validation
	for name, job := range c.Scheduler.Jobs {
		if job.Schedule == "" && job.IntervalFallback == 0 {
			errs = append(errs, fmt.Sprintf("scheduler.jobs.%s: a schedule or interval_fallback is required", name))
		}
	}

	return errs
}

func validateProvider(name string, p *ProviderConfig) []string {
	var errs []string
	if p.URL == "" {
		errs = append(errs, fmt.Sprintf("providers.%s.url: required when %s is configured", name, name))
	}
	if p.APIKey == "" {
		errs = append(errs, fmt.Sprintf("providers.%s.api_key: required when %s is configured", name, name))
	}
	return errs
}
