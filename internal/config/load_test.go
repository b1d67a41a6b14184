package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
[database]
path = "/var/lib/onedrive-index/index.db"

[cache]
driver = "redis"
redis_addr = "localhost:6379"
redis_password = "hunter2"
redis_db = 2
settings_ttl = "30m"

[graph]
cloud = "cn"
user_agent = "my-index/1.0"
connect_timeout = "5s"
request_timeout = "2m"

[logging]
level = "debug"
format = "json"

[refresh]
parallel = 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "/var/lib/onedrive-index/index.db", cfg.DBPath())
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "hunter2", cfg.Cache.RedisPassword)
	assert.Equal(t, 2, cfg.Cache.RedisDB)
	assert.Equal(t, "30m", cfg.Cache.SettingsTTL)
	assert.Equal(t, "cn", cfg.Graph.Cloud)
	assert.Equal(t, "my-index/1.0", cfg.Graph.UserAgent)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 8, cfg.Refresh.Parallel)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, `
[logging]
level = "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "auto", cfg.Logging.Format)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 4, cfg.Refresh.Parallel)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, "[cache\ndriver = ")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeTestConfig(t, `
[cache]
driver = "memcached"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "cache.driver")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOrDefault_EmptyPath(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Cache.Driver)
}

func TestResolve_Precedence(t *testing.T) {
	path := writeTestConfig(t, `
[database]
path = "/from/file.db"
`)

	// File only.
	cfg, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "/from/file.db", cfg.DBPath())

	// Env beats file.
	cfg, err = Resolve(EnvOverrides{ConfigPath: path, DBPath: "/from/env.db"}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.DBPath())

	// CLI beats env.
	cliDB := "/from/cli.db"
	cfg, err = Resolve(EnvOverrides{ConfigPath: path, DBPath: "/from/env.db"}, CLIOverrides{DBPath: &cliDB})
	require.NoError(t, err)
	assert.Equal(t, "/from/cli.db", cfg.DBPath())
}

func TestResolve_CLIConfigPathWins(t *testing.T) {
	envPath := writeTestConfig(t, "[refresh]\nparallel = 2\n")
	cliPath := writeTestConfig(t, "[refresh]\nparallel = 3\n")

	cfg, err := Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{ConfigPath: cliPath})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Refresh.Parallel)
	assert.Equal(t, cliPath, cfg.Path)
}

func TestResolve_RedisAddrFromEnvSelectsRedis(t *testing.T) {
	cfg, err := Resolve(EnvOverrides{
		ConfigPath: filepath.Join(t.TempDir(), "none.toml"),
		RedisAddr:  "cache.internal:6379",
	}, CLIOverrides{})
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "cache.internal:6379", cfg.Cache.RedisAddr)

	// An explicit --cache flag still wins.
	mem := "memory"
	cfg, err = Resolve(EnvOverrides{
		ConfigPath: filepath.Join(t.TempDir(), "none.toml"),
		RedisAddr:  "cache.internal:6379",
	}, CLIOverrides{CacheDrv: &mem})
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Cache.Driver)
}

func TestResolve_InvalidOverrideRejected(t *testing.T) {
	bogus := "carrier-pigeon"

	_, err := Resolve(EnvOverrides{ConfigPath: filepath.Join(t.TempDir(), "none.toml")},
		CLIOverrides{CacheDrv: &bogus})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.driver")
}
