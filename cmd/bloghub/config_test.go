package main

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout.Duration)
}

func TestLoadConfig_File(t *testing.T) {
	cfg, err := LoadConfig("testdata/config.toml", envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "Test Hub", cfg.SiteName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout.Duration)
	assert.Equal(t, StoreConfig{Driver: "sqlite", Path: "/var/lib/bloghub/bloghub.db"}, cfg.Store)
	assert.Equal(t, AdminConfig{User: "admin", Password: "secret"}, cfg.Admin)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	cfg, err := LoadConfig("testdata/config.toml", envMap(map[string]string{
		"BLOGHUB_ADDR":             ":7070",
		"BLOGHUB_STORE_DRIVER":     "bbolt",
		"BLOGHUB_STORE_PATH":       "/tmp/bloghub",
		"BLOGHUB_LOG_LEVEL":        "WARN",
		"BLOGHUB_SHUTDOWN_TIMEOUT": "1m",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, StoreConfig{Driver: "bbolt", Path: "/tmp/bloghub"}, cfg.Store)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout.Duration)
	assert.Equal(t, "Test Hub", cfg.SiteName)
}

func TestLoadConfig_Errors(t *testing.T) {
	cases := []struct {
		name string
		path string
		env  map[string]string
	}{
		{"Missing file", "testdata/missing.toml", nil},
		{"Unknown key", "testdata/unknown.toml", nil},
		{"Unknown driver", "", map[string]string{"BLOGHUB_STORE_DRIVER": "postgres"}},
		{"Driver without path", "", map[string]string{"BLOGHUB_STORE_DRIVER": "sqlite"}},
		{"Bad log level", "", map[string]string{"BLOGHUB_LOG_LEVEL": "loud"}},
		{"Bad log format", "", map[string]string{"BLOGHUB_LOG_FORMAT": "xml"}},
		{"Bad timeout", "", map[string]string{"BLOGHUB_SHUTDOWN_TIMEOUT": "soon"}},
		{"Admin without password", "", map[string]string{"BLOGHUB_ADMIN_USER": "admin"}},
		{"Empty address", "", map[string]string{"BLOGHUB_ADDR": ""}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(tc.path, envMap(tc.env))
			assert.Error(t, err)
		})
	}
}

func TestConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := DefaultConfig()
	cfg.LogLevel = "warn"
	logger := cfg.NewLogger(&buf)
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))

	logger.Warn("hello", slog.String("key", "value"))
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	cfg.LogFormat = "text"
	cfg.NewLogger(&buf).Warn("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
