package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverEnvVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\n"), 0644))
	t.Setenv("FETCHARR_CONFIG", path)

	got, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestDiscoverEnvVarMissingFile(t *testing.T) {
	t.Setenv("FETCHARR_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))

	_, err := Discover()
	assert.Error(t, err, "an explicit path that does not exist is an error, not a fallthrough")
}

func TestDiscoverCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[server]\n"), 0644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("FETCHARR_CONFIG", "")

	got, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, "./config.toml", got)
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Providers.Radarr)
	require.NotNil(t, cfg.Providers.Sonarr)
	assert.Empty(t, cfg.Validate(), "the shipped default config must validate")

	err = WriteDefault(path)
	require.Error(t, err, "an existing config is never clobbered")
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigErrorReport(t *testing.T) {
	err := &ConfigError{
		Path:    "/etc/fetcharr/config.toml",
		Missing: []string{"RADARR_API_KEY"},
		Errors:  []string{"catalog.url is required", "server.port out of range"},
	}
	require.True(t, err.HasErrors())

	msg := err.Error()
	assert.Contains(t, msg, "missing environment variables: RADARR_API_KEY")
	assert.Contains(t, msg, "validation failed:")
	assert.Contains(t, msg, "  - catalog.url is required")
	assert.Contains(t, msg, "  - server.port out of range")

	assert.False(t, (&ConfigError{}).HasErrors())
	assert.Empty(t, (&ConfigError{}).Error())
}
