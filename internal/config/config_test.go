package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.False(t, cfg.CacheEnabled)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "http_port: 9999\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, Default().HTTPPort, cfg.HTTPPort)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))

	t.Setenv("POLICYSTORE_LOG_LEVEL", "warn")
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("POLICYSTORE_LOG_LEVEL", "warn")
	cfg, err := Load("", []string{"-log-level=error"})
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestRedisAddrEnablesCache(t *testing.T) {
	cfg, err := Load("", []string{"-redis-addr=localhost:6379", "-cache-ttl=1m"})
	require.NoError(t, err)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
}
