package config

import (
	"fmt"
	"strings"
)

// ConfigError collects everything wrong with a loaded configuration so the
// operator gets one complete report instead of a single failure per restart.
type ConfigError struct {
	Path    string
	Missing []string // ${VAR} references with no value in the environment
	Errors  []string // accumulated validation failures
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "missing environment variables: %s", strings.Join(e.Missing, ", "))
	}
	if len(e.Errors) > 0 {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("validation failed:")
		for _, msg := range e.Errors {
			b.WriteString("\n  - ")
			b.WriteString(msg)
		}
	}
	return b.String()
}

// HasErrors reports whether the error carries anything worth failing on.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}
