package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Metadata.Driver)
	assert.Equal(t, "fs", cfg.Storage.Driver)
	assert.Equal(t, DefaultChunkSize, cfg.Upload.ChunkSize)
	assert.Equal(t, DefaultAllowedTypes, cfg.Upload.AllowedTypes)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeoutDuration())
	assert.Equal(t, 10*time.Second, cfg.KeepAliveInterval())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
}

func TestInitReadsFileAndEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "foldervault.yaml")
	content := []byte(`
server:
  port: "9090"
metadata:
  driver: memory
storage:
  fs:
    root: /srv/files
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("FOLDERVAULT_LOG_LEVEL", "debug")

	require.NoError(t, Init(path))
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Metadata.Driver)
	assert.Equal(t, "/srv/files", cfg.Storage.FS.Root)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitMissingExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	err := Init(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "unknown metadata driver",
			mutate:  func(cfg *Config) { cfg.Metadata.Driver = "mongo" },
			wantErr: "Driver",
		},
		{
			name:    "postgres without url",
			mutate:  func(cfg *Config) { cfg.Metadata.Driver = "postgres" },
			wantErr: "metadata.postgres.url",
		},
		{
			name:    "empty allow-list",
			mutate:  func(cfg *Config) { cfg.Upload.AllowedTypes = nil },
			wantErr: "AllowedTypes",
		},
		{
			name:    "bad shutdown timeout",
			mutate:  func(cfg *Config) { cfg.Server.ShutdownTimeout = "soon" },
			wantErr: "server.shutdown_timeout",
		},
		{
			name:    "invalid jwks url",
			mutate:  func(cfg *Config) { cfg.Auth.JWKSURL = "not a url" },
			wantErr: "JWKSURL",
		},
		{
			name:    "chunk larger than max size",
			mutate:  func(cfg *Config) { cfg.Upload.MaxSize = 10 },
			wantErr: "upload.chunk_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefault()
			tt.mutate(&cfg)

			err := Validate(&cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultsRoundTripThroughYAML(t *testing.T) {
	defaults := GetDefault()
	data, err := yaml.Marshal(defaults)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, defaults.Upload, decoded.Upload)
	assert.Equal(t, defaults.Metadata.Driver, decoded.Metadata.Driver)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNewLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger, closer := NewLogger(LogConfig{
		Level:      "info",
		JSON:       true,
		File:       path,
		NoTerminal: true,
		Rotation:   LogRotationConfig{MaxSize: 1},
	})

	logger.Info("folder created", "id", "abc")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"folder created"`)
	assert.Contains(t, string(data), `"id":"abc"`)
}
