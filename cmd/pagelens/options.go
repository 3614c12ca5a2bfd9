package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/pagelens/internal/config"
	"github.com/nao1215/pagelens/internal/fetch"
	"github.com/nao1215/pagelens/internal/identity"
	"github.com/nao1215/pagelens/internal/log"
)

// addEgressFlags registers the flags shared by every command that makes
// outbound requests.
func addEgressFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("proxy", "p", nil,
		`Proxy URL to rotate through, repeatable; "direct" adds a direct connection`)
	cmd.Flags().StringArrayP("user-agent", "U", nil,
		"User agent to rotate through, repeatable (default: built-in desktop browsers)")
	cmd.Flags().IntP("retries", "r", config.DefaultMaxAttempts,
		"Maximum fetch attempts per page")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each fetch attempt")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Largest response body read, in bytes")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and use it as the first proxy")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
}

// loadConfig builds the configuration of cmd from defaults, the config
// file, the environment and the flags the user set, later sources
// overriding earlier ones.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	if err := config.LoadEnv(); err != nil {
		return nil, err
	}

	cfg.ConfigFilePath = stringFlag(cmd, "config")
	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		f, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(f)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Verbose = boolFlag(cmd, "verbose")

	return cfg, nil
}

// applyFlags copies the flags the user explicitly set into cfg. Flags the
// command does not define are skipped.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	for _, err := range []error{
		setIfChanged(cmd, "depth", fs.GetInt, &cfg.Depth),
		setIfChanged(cmd, "mode", fs.GetString, &cfg.Mode),
		setIfChanged(cmd, "retries", fs.GetInt, &cfg.MaxAttempts),
		setIfChanged(cmd, "timeout", fs.GetDuration, &cfg.Timeout),
		setIfChanged(cmd, "max-body-size", fs.GetInt64, &cfg.MaxBodySize),
		setIfChanged(cmd, "concurrency", fs.GetInt, &cfg.Concurrency),
		setIfChanged(cmd, "visited", fs.GetBool, &cfg.VisitedSet),
		setIfChanged(cmd, "skip-failed", fs.GetBool, &cfg.SkipFailedSubpages),
		setIfChanged(cmd, "relay", fs.GetString, &cfg.RelayURL),
		setIfChanged(cmd, "listen", fs.GetString, &cfg.ListenAddr),
		setIfChanged(cmd, "rate", fs.GetFloat64, &cfg.RelayRate),
		setIfChanged(cmd, "tor", fs.GetBool, &cfg.UseTor),
		setIfChanged(cmd, "tor-timeout", fs.GetDuration, &cfg.TorStartupTimeout),
		setIfChanged(cmd, "db-dir", fs.GetString, &cfg.DBDir),
		setIfChanged(cmd, "json", fs.GetBool, &cfg.JSONReport),
		setIfChanged(cmd, "markdown", fs.GetBool, &cfg.MarkdownReport),
		setIfChanged(cmd, "output", fs.GetString, &cfg.ReportFile),
		setIfChanged(cmd, "user-agent", fs.GetStringArray, &cfg.UserAgents),
		setIfChanged(cmd, "proxy", fs.GetStringArray, &cfg.Proxies),
	} {
		if err != nil {
			return err
		}
	}

	if fs.Changed("no-save") {
		noSave, err := fs.GetBool("no-save")
		if err != nil {
			return err
		}
		cfg.SaveToDB = !noSave
	}
	cfg.Proxies = normalizeProxies(cfg.Proxies)
	return nil
}

func setIfChanged[T any](cmd *cobra.Command, name string, get func(string) (T, error), dst *T) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// normalizeProxies maps the literal "direct" to identity.Direct.
func normalizeProxies(proxies []string) []string {
	for i, p := range proxies {
		if strings.EqualFold(strings.TrimSpace(p), "direct") {
			proxies[i] = identity.Direct
		}
	}
	return proxies
}

// stringFlag reads a local or inherited flag, returning "" when the
// command does not have it.
func stringFlag(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func boolFlag(cmd *cobra.Command, name string) bool {
	v, err := strconv.ParseBool(stringFlag(cmd, name))
	return err == nil && v
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	return log.NewSecureLogger(w, verbose)
}

// egress owns the outbound side of a command: the identity pool, the
// fetcher and the embedded Tor daemon when one was started.
type egress struct {
	pool    *identity.Pool
	fetcher fetch.Fetcher
	tor     *identity.EmbeddedTor
	logger  *slog.Logger
}

// newEgress starts Tor when requested and builds the pool and fetcher of
// cfg. When direct is true the relay URL is ignored.
func newEgress(ctx context.Context, cfg *config.Config, logger *slog.Logger, status io.Writer, direct bool) (*egress, error) {
	e := &egress{logger: logger}

	proxies := cfg.Proxies
	if cfg.UseTor {
		fmt.Fprintln(status, "Starting embedded Tor daemon...")
		fmt.Fprintf(status, "This may take 1-3 minutes while Tor bootstraps.\n\n")

		e.tor = identity.NewEmbeddedTor(identity.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := e.tor.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		torProxy, err := e.tor.ProxyURL()
		if err != nil {
			e.Close()
			return nil, err
		}
		logger.Info("embedded Tor daemon started", "proxy", torProxy)
		proxies = append([]string{torProxy}, proxies...)
	}

	pool, err := identity.NewPool(proxies, cfg.UserAgents)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.pool = pool

	if cfg.RelayURL != "" && !direct {
		rt, err := fetch.NewRelayTransport(cfg.RelayURL, fetch.WithRelayTimeout(cfg.Timeout))
		if err != nil {
			e.Close()
			return nil, err
		}
		logger.Info("fetching through relay", "relay", cfg.RelayURL)
		e.fetcher = rt
		return e, nil
	}

	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	}
	if cfg.SiteConfigs != nil {
		for host, site := range cfg.SiteConfigs.SiteHeaders() {
			opts = append(opts, fetch.WithSiteHeaders(host, site))
		}
	}
	e.fetcher = fetch.NewHTTPTransport(opts...)
	return e, nil
}

// Close stops the embedded Tor daemon, if any.
func (e *egress) Close() {
	if e.tor == nil {
		return
	}
	if err := e.tor.Stop(); err != nil {
		e.logger.Error("failed to stop embedded Tor", "error", err)
	}
}

// rotations reports how often the pool switched identity.
func (e *egress) rotations() (proxies, userAgents int64) {
	return e.pool.ProxyRotations(), e.pool.UserAgentRotations()
}
