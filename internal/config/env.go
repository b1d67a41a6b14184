package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for overrides.
const (
	EnvConfig    = "ONEDRIVE_INDEX_CONFIG"
	EnvDB        = "ONEDRIVE_INDEX_DB"
	EnvRedisAddr = "ONEDRIVE_INDEX_REDIS_ADDR"
)

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // ONEDRIVE_INDEX_CONFIG: override config file path
	DBPath     string // ONEDRIVE_INDEX_DB: database path override
	RedisAddr  string // ONEDRIVE_INDEX_REDIS_ADDR: selects the redis cache at this address
}

// ReadEnvOverrides reads the override variables from the process
// environment, falling back to dotenvPath for variables the environment
// leaves unset. A missing dotenv file is not an error.
func ReadEnvOverrides(dotenvPath string) (EnvOverrides, error) {
	file := map[string]string{}

	if dotenvPath != "" {
		m, err := godotenv.Read(dotenvPath)

		switch {
		case err == nil:
			file = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return EnvOverrides{}, fmt.Errorf("reading %s: %w", dotenvPath, err)
		}
	}

	get := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}

		return file[key]
	}

	return EnvOverrides{
		ConfigPath: get(EnvConfig),
		DBPath:     get(EnvDB),
		RedisAddr:  get(EnvRedisAddr),
	}, nil
}
