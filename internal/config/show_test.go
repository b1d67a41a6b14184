package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEffective_Defaults(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, RenderEffective(DefaultConfig(), &buf))

	out := buf.String()
	assert.Contains(t, out, "defaults, no config file")

	for _, section := range []string{"[database]", "[cache]", "[graph]", "[logging]", "[refresh]"} {
		assert.Contains(t, out, section)
	}

	assert.Contains(t, out, `driver       = "memory"`)
	assert.NotContains(t, out, "redis_addr")
}

func TestRenderEffective_RedisMasksPassword(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = "/etc/onedrive-index/config.toml"
	cfg.Cache.Driver = "redis"
	cfg.Cache.RedisAddr = "localhost:6379"
	cfg.Cache.RedisPassword = "hunter2"

	var buf bytes.Buffer

	require.NoError(t, RenderEffective(cfg, &buf))

	out := buf.String()
	assert.Contains(t, out, "file: /etc/onedrive-index/config.toml")
	assert.Contains(t, out, `redis_addr   = "localhost:6379"`)
	assert.NotContains(t, out, "hunter2")
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderEffective_WriteError(t *testing.T) {
	err := RenderEffective(DefaultConfig(), failWriter{})
	assert.EqualError(t, err, "disk full")
}
