package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/pagelens/internal/crawl"
	"github.com/nao1215/pagelens/internal/extract"
	"github.com/nao1215/pagelens/internal/fetch"
	"github.com/nao1215/pagelens/internal/identity"
	"github.com/nao1215/pagelens/internal/relay"
	"github.com/nao1215/pagelens/internal/retry"
)

// Default configuration values.
const (
	// AppName names the XDG directories.
	AppName = "pagelens"

	DefaultMaxAttempts = retry.DefaultMaxAttempts
	DefaultTimeout     = fetch.DefaultTimeout
	DefaultDepth       = 0
	MaxDepth           = 3
	DefaultMaxBodySize = fetch.DefaultMaxBodySize
	DefaultConcurrency = crawl.DefaultSeedConcurrency

	// DefaultListenAddr is where `pagelens serve` listens.
	DefaultListenAddr = "127.0.0.1:8080"

	// DefaultRelayRate is the per-host request rate of the relay.
	DefaultRelayRate = float64(relay.DefaultRate)

	// DefaultTorStartupTimeout covers bootstrapping a fresh Tor data directory.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// DefaultMode is the extraction mode used when none is configured.
var DefaultMode = extract.ModeContent.String()

// Config holds every option of a pagelens run. It is filled from
// defaults, the config file, the environment and flags, in that order.
type Config struct {
	// Proxies are proxy URLs in rotation order. An empty entry means a
	// direct connection; an empty list means direct only.
	Proxies []string

	// UserAgents are the user agent strings in rotation order. Empty
	// means identity.DefaultUserAgents.
	UserAgents []string

	// MaxAttempts is the number of fetch attempts per page.
	MaxAttempts int

	// Timeout bounds each fetch attempt.
	Timeout time.Duration

	// Depth is the crawl depth, 0 through MaxDepth.
	Depth int

	// Mode is "content" or "generic".
	Mode string

	// MaxBodySize is the largest decoded body read, in bytes.
	MaxBodySize int64

	// Concurrency is the number of seeds crawled at once.
	Concurrency int

	// VisitedSet makes a crawl fetch each URL at most once. Without it a
	// link cycle is fetched again at every level until depth runs out.
	VisitedSet bool

	// SkipFailedSubpages drops subpages whose fetch failed instead of
	// failing the whole crawl. The seed page itself must still succeed.
	SkipFailedSubpages bool

	// RelayURL, when set, routes every fetch through a pagelens relay
	// at that base URL instead of fetching directly.
	RelayURL string

	// ListenAddr and RelayRate configure `pagelens serve`.
	ListenAddr string
	RelayRate  float64

	// UseTor starts an embedded Tor daemon and puts its SOCKS port in
	// front of the proxy list.
	UseTor            bool
	TorStartupTimeout time.Duration

	// DBDir holds the history database. SaveToDB turns saving on.
	DBDir    string
	SaveToDB bool

	ConfigFilePath string

	// SiteConfigs are the per-host settings of the config file.
	SiteConfigs *File

	JSONReport     bool
	MarkdownReport bool
	ReportFile     string

	Verbose bool
}

// NewConfig returns a Config holding the defaults.
func NewConfig() *Config {
	return &Config{
		MaxAttempts:       DefaultMaxAttempts,
		Timeout:           DefaultTimeout,
		Depth:             DefaultDepth,
		Mode:              DefaultMode,
		MaxBodySize:       DefaultMaxBodySize,
		Concurrency:       DefaultConcurrency,
		ListenAddr:        DefaultListenAddr,
		RelayRate:         DefaultRelayRate,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
	}
}

// XDGDataDir returns the directory of the history database.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the directory searched for config.yaml.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate returns the first problem found in c.
func (c *Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Depth < 0 || c.Depth > MaxDepth {
		return fmt.Errorf("%w: got %d", ErrInvalidDepth, c.Depth)
	}
	if c.SiteConfigs != nil {
		for host, sc := range c.SiteConfigs.Sites {
			if sc.Depth < 0 || sc.Depth > MaxDepth {
				return fmt.Errorf("%w: site %s got %d", ErrInvalidDepth, host, sc.Depth)
			}
		}
	}
	if _, err := extract.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RelayRate <= 0 {
		return ErrInvalidRelayRate
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.RelayURL != "" && c.UseTor {
		return ErrConflictingEgress
	}
	if c.RelayURL != "" {
		if _, err := fetch.ParseTarget(c.RelayURL); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRelayURL, err)
		}
	}
	for _, p := range c.Proxies {
		if p == identity.Direct {
			continue
		}
		if _, err := identity.ParseProxy(p); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidProxy, err)
		}
	}
	return nil
}

// ParsedMode returns Mode as an extract.Mode. It assumes Validate passed.
func (c *Config) ParsedMode() extract.Mode {
	m, err := extract.ParseMode(c.Mode)
	if err != nil {
		return extract.ModeContent
	}
	return m
}
