package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_AllFieldsPopulated(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Database.Path)

	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, "2h", cfg.Cache.SettingsTTL)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Zero(t, cfg.Cache.RedisDB)

	assert.Equal(t, "global", cfg.Graph.Cloud)
	assert.Equal(t, "10s", cfg.Graph.ConnectTimeout)
	assert.Equal(t, "60s", cfg.Graph.RequestTimeout)
	assert.Empty(t, cfg.Graph.UserAgent)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "auto", cfg.Logging.Format)

	assert.Equal(t, 4, cfg.Refresh.Parallel)
	assert.Empty(t, cfg.Path)
}

func TestDefaultConfig_PassesValidation(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL())
	assert.Equal(t, 10*time.Second, cfg.Graph.ConnectTimeoutDuration())
	assert.Equal(t, time.Minute, cfg.Graph.RequestTimeoutDuration())

	cfg.Cache.SettingsTTL = "15m"
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL())

	cfg.Cache.SettingsTTL = "garbage"
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL())
}

func TestDBPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultDBPath(), cfg.DBPath())

	cfg.Database.Path = "/srv/index.db"
	assert.Equal(t, "/srv/index.db", cfg.DBPath())

	cfg.Database.Path = "~/index.db"
	assert.True(t, filepath.IsAbs(cfg.DBPath()))
	assert.Equal(t, "index.db", filepath.Base(cfg.DBPath()))
}
