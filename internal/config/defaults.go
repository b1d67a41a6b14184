package config

import "time"

// Default values for configuration options, the first layer of the
// override chain.
const (
	defaultCacheDriver     = "memory"
	defaultSettingsTTL     = "2h"
	defaultCloud           = "global"
	defaultConnectTimeout  = "10s"
	defaultRequestTimeout  = "60s"
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultRefreshParallel = 4
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Driver:      defaultCacheDriver,
			SettingsTTL: defaultSettingsTTL,
		},
		Graph: GraphConfig{
			Cloud:          defaultCloud,
			ConnectTimeout: defaultConnectTimeout,
			RequestTimeout: defaultRequestTimeout,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Refresh: RefreshConfig{
			Parallel: defaultRefreshParallel,
		},
	}
}

// DBPath returns the configured database path or the platform default.
func (c *Config) DBPath() string {
	if c.Database.Path != "" {
		return expandTilde(c.Database.Path)
	}

	return DefaultDBPath()
}

// TTL returns the read-through lifetime of the settings mapping.
func (c *CacheConfig) TTL() time.Duration {
	return durationOr(c.SettingsTTL, defaultSettingsTTL)
}

// ConnectTimeoutDuration returns the dial timeout for vendor requests.
func (g *GraphConfig) ConnectTimeoutDuration() time.Duration {
	return durationOr(g.ConnectTimeout, defaultConnectTimeout)
}

// RequestTimeoutDuration returns the overall timeout for one vendor request.
func (g *GraphConfig) RequestTimeoutDuration() time.Duration {
	return durationOr(g.RequestTimeout, defaultRequestTimeout)
}

// durationOr parses s, falling back to def. Validate rejects bad values
// before this is reached.
func durationOr(s, def string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	d, _ := time.ParseDuration(def)

	return d
}
