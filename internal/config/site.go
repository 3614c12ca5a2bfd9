package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/pagelens/internal/fetch"
	"github.com/nao1215/pagelens/internal/identity"
)

// SiteConfig holds settings for one host.
type SiteConfig struct {
	// Cookie is sent as the Cookie header, e.g. "a=1; b=2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are added to every request to the host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the crawl depth for seeds on this host. Zero keeps
	// the global depth.
	Depth int `yaml:"depth,omitempty"`

	// Mode overrides the extraction mode for seeds on this host.
	Mode string `yaml:"mode,omitempty"`
}

// File is the YAML configuration file.
type File struct {
	Proxies     []string      `yaml:"proxies,omitempty"`
	UserAgents  []string      `yaml:"userAgents,omitempty"`
	MaxAttempts int           `yaml:"maxAttempts,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	Depth       int           `yaml:"depth,omitempty"`
	Mode        string        `yaml:"mode,omitempty"`
	Concurrency int           `yaml:"concurrency,omitempty"`
	RelayURL    string        `yaml:"relayUrl,omitempty"`
	Listen      string        `yaml:"listen,omitempty"`
	DBDir       string        `yaml:"dbDir,omitempty"`

	// Defaults apply to every host unless a site entry overrides them.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps a host name, without scheme or port, to its settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig returns the settings for host, merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	site, ok := cf.Sites[strings.ToLower(host)]
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.Depth != 0 {
		result.Depth = site.Depth
	}
	if site.Mode != "" {
		result.Mode = site.Mode
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}
	return result
}

// SiteHeaders returns the headers and cookie of every configured site,
// keyed by host, for fetch.WithSiteHeaders.
func (cf *File) SiteHeaders() map[string]fetch.SiteHeaders {
	out := make(map[string]fetch.SiteHeaders, len(cf.Sites))
	for host := range cf.Sites {
		sc := cf.GetSiteConfig(host)
		if sc.Cookie == "" && len(sc.Headers) == 0 {
			continue
		}
		out[strings.ToLower(host)] = fetch.SiteHeaders{Headers: sc.Headers, Cookie: sc.Cookie}
	}
	return out
}

// ForSeed returns the depth and mode to use for a seed URL: the site
// override when there is one, otherwise the values of c.
func (c *Config) ForSeed(seed string) (depth int, mode string) {
	depth, mode = c.Depth, c.Mode
	if c.SiteConfigs == nil {
		return depth, mode
	}
	u, err := url.Parse(seed)
	if err != nil {
		return depth, mode
	}
	sc := c.SiteConfigs.GetSiteConfig(u.Hostname())
	if sc.Depth != 0 {
		depth = sc.Depth
	}
	if sc.Mode != "" {
		mode = sc.Mode
	}
	return depth, mode
}

// ApplyFile copies the settings present in f into c.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f
	if len(f.Proxies) > 0 {
		c.Proxies = make([]string, 0, len(f.Proxies))
		for _, p := range f.Proxies {
			if strings.EqualFold(strings.TrimSpace(p), "direct") {
				p = identity.Direct
			}
			c.Proxies = append(c.Proxies, p)
		}
	}
	if len(f.UserAgents) > 0 {
		c.UserAgents = append([]string(nil), f.UserAgents...)
	}
	if f.MaxAttempts != 0 {
		c.MaxAttempts = f.MaxAttempts
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	if f.Depth != 0 {
		c.Depth = f.Depth
	}
	if f.Mode != "" {
		c.Mode = f.Mode
	}
	if f.Concurrency != 0 {
		c.Concurrency = f.Concurrency
	}
	if f.RelayURL != "" {
		c.RelayURL = f.RelayURL
	}
	if f.Listen != "" {
		c.ListenAddr = f.Listen
	}
	if f.DBDir != "" {
		c.DBDir = f.DBDir
	}
}
