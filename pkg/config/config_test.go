package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.QueueSize)
	assert.Equal(t, ":8443", cfg.HTTPAddr)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 1.0, cfg.OTelProbability)
	assert.False(t, cfg.TLS())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUEUE_SIZE", "3")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SESSION_TTL", "15m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.QueueSize)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.yaml")
	require.NoError(t, os.WriteFile(path, []byte("QUEUE_SIZE: 5\nLOG_LEVEL: debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.QueueSize)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("QUEUE_SIZE", "0")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	base := Config{QueueSize: 1, SessionTTL: time.Minute, SweepInterval: time.Second, OTelProbability: 0.5}
	assert.NoError(t, base.Validate())

	bad := base
	bad.OTelProbability = 2
	assert.ErrorIs(t, bad.Validate(), ErrInvalid)

	bad = base
	bad.SweepInterval = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalid)

	bad = base
	bad.TLSCert = "server.crt"
	assert.ErrorIs(t, bad.Validate(), ErrInvalid)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.QueueSize)
}
