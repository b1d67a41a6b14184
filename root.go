package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/onedrive-index/internal/account"
	"github.com/tonimelisma/onedrive-index/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// CLIFlags holds the persistent flags shared by every command.
type CLIFlags struct {
	ConfigPath string
	DBPath     string
	Cache      string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext is built once per invocation by the root pre-run and carried
// on the command's context.
type CLIContext struct {
	Flags  CLIFlags
	Logger *slog.Logger
	Cfg    *config.Config
	Stdout io.Writer
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext stored by PersistentPreRunE. A
// missing context is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("cli context not initialized")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	flags := &CLIFlags{}

	cmd := &cobra.Command{
		Use:     "onedrive-index",
		Short:   "OneDrive account and settings manager",
		Long:    "Manage OneDrive accounts, their credentials, and index settings.",
		Version: version,
		// We print errors ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := loadCLIContext(cmd, *flags)
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file path")
	pf.StringVar(&flags.DBPath, "db", "", "database path")
	pf.StringVar(&flags.Cache, "cache", "", "settings cache driver (memory or redis)")
	pf.BoolVar(&flags.JSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newSettingCmd())
	cmd.AddCommand(newAccountCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newDeltaCmd())
	cmd.AddCommand(newPathCmd())

	return cmd
}

// loadCLIContext resolves the effective configuration from the four-layer
// override chain and builds the logger from it.
func loadCLIContext(cmd *cobra.Command, flags CLIFlags) (*CLIContext, error) {
	cli := config.CLIOverrides{ConfigPath: flags.ConfigPath}

	// Only explicitly set flags take part in the override chain.
	if cmd.Flags().Changed("db") {
		cli.DBPath = &flags.DBPath
	}

	if cmd.Flags().Changed("cache") {
		cli.CacheDrv = &flags.Cache
	}

	env, err := config.ReadEnvOverrides(config.DotEnvFile)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg, err := config.Resolve(env, cli)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &CLIContext{
		Flags:  flags,
		Logger: buildLogger(cfg, flags, os.Stderr),
		Cfg:    cfg,
		Stdout: cmd.OutOrStdout(),
	}, nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger(cfg *config.Config, flags CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelInfo

	if cfg != nil {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	format := "auto"
	if cfg != nil {
		format = cfg.Logging.Format
	}

	if useJSONLogs(format, w) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// useJSONLogs resolves the "auto" format: text on a terminal, JSON otherwise.
func useJSONLogs(format string, w io.Writer) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return true
	}

	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// newHTTPClient applies the configured connect and request timeouts.
func newHTTPClient(cfg *config.Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.Graph.ConnectTimeoutDuration()}).DialContext

	return &http.Client{
		Timeout:   cfg.Graph.RequestTimeoutDuration(),
		Transport: transport,
	}
}

// newVendor binds the vendor adapter to the configured endpoints.
func (cc *CLIContext) newVendor() *account.Vendor {
	var opts []account.VendorOption

	if cc.Cfg.Graph.BaseURL != "" {
		opts = append(opts, account.WithGraphURL(cc.Cfg.Graph.BaseURL))
	}

	if cc.Cfg.Graph.AuthorityURL != "" {
		opts = append(opts, account.WithAuthorityURL(cc.Cfg.Graph.AuthorityURL))
	}

	return account.NewVendor(newHTTPClient(cc.Cfg), cc.Logger, cc.Cfg.Graph.UserAgent, opts...)
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
