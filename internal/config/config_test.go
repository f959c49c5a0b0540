package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cnpip.yaml")
	require.NoError(t, os.WriteFile(path, []byte("manager: uv\nlog_level: debug\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "uv", cfg.Manager)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultConfig().BasePolicyPath, cfg.BasePolicyPath)
}

func TestLoadConfig_MalformedYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cnpip.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"huh":   slog.LevelInfo,
	}
	for level, want := range cases {
		cfg := &Config{LogLevel: level}
		assert.Equal(t, want, cfg.SlogLevel())
	}
}

func TestBackend_UnsetMeansAutoDetect(t *testing.T) {
	cfg := &Config{}
	_, ok := cfg.Backend()
	assert.False(t, ok)
}
