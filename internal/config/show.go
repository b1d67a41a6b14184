package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as an annotated TOML
// summary to w. Secrets are masked.
func RenderEffective(cfg *Config, w io.Writer) error {
	ew := &errWriter{w: w}

	if cfg.Path != "" {
		ew.printf("# Effective configuration (file: %s)\n\n", cfg.Path)
	} else {
		ew.printf("# Effective configuration (defaults, no config file)\n\n")
	}

	ew.printf("[database]\n")
	ew.printf("  path = %q\n\n", cfg.DBPath())

	ew.printf("[cache]\n")
	ew.printf("  driver       = %q\n", cfg.Cache.Driver)

	if cfg.Cache.Driver == "redis" {
		ew.printf("  redis_addr   = %q\n", cfg.Cache.RedisAddr)
		ew.printf("  redis_db     = %d\n", cfg.Cache.RedisDB)

		if cfg.Cache.RedisPassword != "" {
			ew.printf("  redis_password = \"********\"\n")
		}
	}

	ew.printf("  settings_ttl = %q\n\n", cfg.Cache.SettingsTTL)

	ew.printf("[graph]\n")
	ew.printf("  cloud           = %q\n", cfg.Graph.Cloud)
	ew.printf("  connect_timeout = %q\n", cfg.Graph.ConnectTimeout)
	ew.printf("  request_timeout = %q\n", cfg.Graph.RequestTimeout)

	if cfg.Graph.UserAgent != "" {
		ew.printf("  user_agent      = %q\n", cfg.Graph.UserAgent)
	}

	if cfg.Graph.BaseURL != "" {
		ew.printf("  base_url        = %q\n", cfg.Graph.BaseURL)
	}

	if cfg.Graph.AuthorityURL != "" {
		ew.printf("  authority_url   = %q\n", cfg.Graph.AuthorityURL)
	}

	ew.printf("\n[logging]\n")
	ew.printf("  level  = %q\n", cfg.Logging.Level)
	ew.printf("  format = %q\n\n", cfg.Logging.Format)

	ew.printf("[refresh]\n")
	ew.printf("  parallel = %d\n", cfg.Refresh.Parallel)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
