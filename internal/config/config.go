// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for onedrive-index. Values resolve
// through four layers: defaults, config file, environment (including an
// optional .env file), then CLI flags.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Cache    CacheConfig    `toml:"cache"`
	Graph    GraphConfig    `toml:"graph"`
	Logging  LoggingConfig  `toml:"logging"`
	Refresh  RefreshConfig  `toml:"refresh"`

	// Path is the file the configuration was read from ("" = defaults only).
	Path string `toml:"-"`
}

// DatabaseConfig locates the SQLite store holding settings and accounts.
type DatabaseConfig struct {
	Path string `toml:"path"` // empty = DefaultDBPath()
}

// CacheConfig selects the settings cache backend.
type CacheConfig struct {
	Driver        string `toml:"driver"         validate:"oneof=memory redis"`
	RedisAddr     string `toml:"redis_addr"     validate:"required_if=Driver redis"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"       validate:"gte=0,lte=15"`
	SettingsTTL   string `toml:"settings_ttl"`
}

// GraphConfig controls how the vendor API is reached. Cloud is the default
// for newly added accounts; each account records its own.
type GraphConfig struct {
	Cloud          string `toml:"cloud"           validate:"oneof=global cn"`
	UserAgent      string `toml:"user_agent"`
	ConnectTimeout string `toml:"connect_timeout"`
	RequestTimeout string `toml:"request_timeout"`
	BaseURL        string `toml:"base_url"        validate:"omitempty,url"`
	AuthorityURL   string `toml:"authority_url"   validate:"omitempty,url"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	Level  string `toml:"level"  validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=auto text json"`
}

// MaxRefreshParallel caps concurrent refreshes in a sweep; keep in step with
// the validate tag below.
const MaxRefreshParallel = 16

// RefreshConfig controls the account sweep.
type RefreshConfig struct {
	Parallel int `toml:"parallel" validate:"min=1,max=16"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish
// "not specified" (nil) from an explicit zero value.
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	DBPath     *string // --db flag
	CacheDrv   *string // --cache flag
}
