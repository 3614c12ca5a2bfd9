package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/pagelens/internal/identity"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	tests := []struct {
		name string
		ok   bool
	}{
		{"MaxAttempts is 3", cfg.MaxAttempts == 3},
		{"Timeout is 30 seconds", cfg.Timeout == 30*time.Second},
		{"Depth is 0", cfg.Depth == 0},
		{"Mode is content", cfg.Mode == "content"},
		{"MaxBodySize is 5 MiB", cfg.MaxBodySize == 5*1024*1024},
		{"Concurrency is 2", cfg.Concurrency == 2},
		{"ListenAddr is loopback 8080", cfg.ListenAddr == "127.0.0.1:8080"},
		{"RelayRate is 1", cfg.RelayRate == 1},
		{"SaveToDB is on", cfg.SaveToDB},
		{"DBDir is the XDG data dir", cfg.DBDir == XDGDataDir()},
		{"no proxies", len(cfg.Proxies) == 0},
		{"no relay", cfg.RelayURL == ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !tt.ok {
				t.Errorf("default %s does not hold: %+v", tt.name, cfg)
			}
		})
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, ErrInvalidMaxAttempts},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative depth", func(c *Config) { c.Depth = -1 }, ErrInvalidDepth},
		{"depth too large", func(c *Config) { c.Depth = 4 }, ErrInvalidDepth},
		{"unknown mode", func(c *Config) { c.Mode = "fancy" }, ErrInvalidMode},
		{"zero body size", func(c *Config) { c.MaxBodySize = 0 }, ErrInvalidMaxBodySize},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"zero relay rate", func(c *Config) { c.RelayRate = 0 }, ErrInvalidRelayRate},
		{"json and markdown", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"relay with tor", func(c *Config) { c.RelayURL, c.UseTor = "http://127.0.0.1:8080", true }, ErrConflictingEgress},
		{"relative relay URL", func(c *Config) { c.RelayURL = "/api" }, ErrInvalidRelayURL},
		{"bad proxy", func(c *Config) { c.Proxies = []string{"ftp://proxy:21"} }, ErrInvalidProxy},
		{"direct and valid proxies", func(c *Config) { c.Proxies = []string{"", "socks5://127.0.0.1:9050"} }, nil},
		{"generic mode", func(c *Config) { c.Mode = "generic" }, nil},
		{"max depth", func(c *Config) { c.Depth = 3 }, nil},
		{"site depth too large", func(c *Config) {
			c.SiteConfigs = &File{Sites: map[string]SiteConfig{"example.com": {Depth: MaxDepth + 1}}}
		}, ErrInvalidDepth},
		{"site max depth", func(c *Config) {
			c.SiteConfigs = &File{Sites: map[string]SiteConfig{"example.com": {Depth: MaxDepth}}}
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Cookie:  "default=1",
			Headers: map[string]string{"Accept-Language": "en"},
			Mode:    "content",
		},
		Sites: map[string]SiteConfig{
			"docs.example.com": {
				Headers: map[string]string{"X-Token": "abc"},
				Depth:   2,
				Mode:    "generic",
			},
		},
	}

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("other.example.com")
		if sc.Cookie != "default=1" || sc.Mode != "content" || sc.Depth != 0 {
			t.Errorf("unexpected site config: %+v", sc)
		}
	})

	t.Run("site overrides merge over defaults", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("Docs.Example.com")
		if sc.Cookie != "default=1" {
			t.Errorf("Cookie = %q, want default", sc.Cookie)
		}
		if sc.Depth != 2 || sc.Mode != "generic" {
			t.Errorf("Depth/Mode = %d/%q", sc.Depth, sc.Mode)
		}
		if sc.Headers["Accept-Language"] != "en" || sc.Headers["X-Token"] != "abc" {
			t.Errorf("Headers = %v", sc.Headers)
		}
	})

	t.Run("merging does not modify defaults", func(t *testing.T) {
		t.Parallel()

		_ = cf.GetSiteConfig("docs.example.com")
		if _, ok := cf.Defaults.Headers["X-Token"]; ok {
			t.Error("defaults were modified by merge")
		}
	})

	t.Run("site headers for the transport", func(t *testing.T) {
		t.Parallel()

		headers := cf.SiteHeaders()
		site, ok := headers["docs.example.com"]
		if !ok {
			t.Fatalf("missing docs.example.com in %v", headers)
		}
		if site.Cookie != "default=1" || site.Headers["X-Token"] != "abc" {
			t.Errorf("site headers = %+v", site)
		}
	})
}

func TestConfigForSeed(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Depth = 1
	cfg.SiteConfigs = &File{Sites: map[string]SiteConfig{
		"deep.example.com": {Depth: 3, Mode: "generic"},
	}}

	depth, mode := cfg.ForSeed("https://deep.example.com:8443/page")
	if depth != 3 || mode != "generic" {
		t.Errorf("ForSeed(deep) = %d, %q; want 3, generic", depth, mode)
	}
	depth, mode = cfg.ForSeed("https://plain.example.com/")
	if depth != 1 || mode != "content" {
		t.Errorf("ForSeed(plain) = %d, %q; want 1, content", depth, mode)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.pagelens.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".pagelens.yaml")
		content := `proxies:
  - ""
  - http://proxy.example.com:8080
maxAttempts: 5
timeout: 45s
depth: 2
mode: generic
sites:
  docs.example.com:
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
    depth: 1
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cf.Proxies) != 2 || cf.Proxies[0] != "" {
			t.Errorf("Proxies = %q", cf.Proxies)
		}
		if cf.Timeout != 45*time.Second {
			t.Errorf("Timeout = %v, want 45s", cf.Timeout)
		}
		site, ok := cf.Sites["docs.example.com"]
		if !ok {
			t.Fatal("expected docs.example.com in sites")
		}
		if site.Headers["Authorization"] != "Bearer token" || site.Depth != 1 {
			t.Errorf("site = %+v", site)
		}

		cfg := NewConfig()
		cfg.ApplyFile(cf)
		if cfg.MaxAttempts != 5 || cfg.Depth != 2 || cfg.Mode != "generic" || cfg.Timeout != 45*time.Second {
			t.Errorf("ApplyFile() = %+v", cfg)
		}
		if cfg.SiteConfigs != cf {
			t.Error("ApplyFile() did not keep the site configs")
		}
		if cfg.Concurrency != DefaultConcurrency {
			t.Errorf("unset Concurrency changed to %d", cfg.Concurrency)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".pagelens.yaml")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".pagelens.yaml")
		if err := os.WriteFile(configPath, []byte("depth: 1\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

func TestApplyFileDirectProxy(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.ApplyFile(&File{Proxies: []string{"http://proxy.example.com:8080", " Direct "}})
	want := []string{"http://proxy.example.com:8080", identity.Direct}
	if !slices.Equal(cfg.Proxies, want) {
		t.Errorf("Proxies = %q, expected %q", cfg.Proxies, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTemplate(t *testing.T) {
	t.Parallel()

	var cf File
	if err := yaml.Unmarshal(Template(), &cf); err != nil {
		t.Fatalf("template is not valid YAML: %v", err)
	}
	cfg := NewConfig()
	cfg.ApplyFile(&cf)
	if err := cfg.Validate(); err != nil {
		t.Errorf("template does not validate: %v", err)
	}
	if !strings.Contains(string(Template()), "sites:") {
		t.Error("template should document per-site settings")
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("depth: 0\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if got := FindConfigFile(configPath); got != configPath {
			t.Errorf("expected %q, got %q", configPath, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("finds file in working directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		if err := os.WriteFile(filepath.Join(dir, "pagelens.yaml"), []byte("depth: 0\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		got := FindConfigFile("")
		if filepath.Base(got) != "pagelens.yaml" {
			t.Errorf("expected pagelens.yaml, got %q", got)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvRelayURL:    " http://relay.example:8080 ",
		EnvProxies:     "direct, http://p1.example:8080 ,,socks5://127.0.0.1:9050",
		EnvUserAgents:  "UA one|UA two\nUA three",
		EnvMaxAttempts: "7",
		EnvDBDir:       "/tmp/pagelens-db",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := NewConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.RelayURL != "http://relay.example:8080" {
		t.Errorf("RelayURL = %q", cfg.RelayURL)
	}
	wantProxies := []string{"", "http://p1.example:8080", "socks5://127.0.0.1:9050"}
	if strings.Join(cfg.Proxies, ",") != strings.Join(wantProxies, ",") {
		t.Errorf("Proxies = %q, want %q", cfg.Proxies, wantProxies)
	}
	if len(cfg.UserAgents) != 3 || cfg.UserAgents[2] != "UA three" {
		t.Errorf("UserAgents = %q", cfg.UserAgents)
	}
	if cfg.MaxAttempts != 7 || cfg.DBDir != "/tmp/pagelens-db" {
		t.Errorf("MaxAttempts/DBDir = %d/%q", cfg.MaxAttempts, cfg.DBDir)
	}

	bad := NewConfig()
	err := bad.ApplyEnv(func(k string) (string, bool) {
		if k == EnvMaxAttempts {
			return "many", true
		}
		return "", false
	})
	if !errors.Is(err, ErrInvalidEnv) {
		t.Errorf("ApplyEnv(bad) error = %v, want ErrInvalidEnv", err)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("PAGELENS_TEST_LOADENV=from-file\n"), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("PAGELENS_TEST_LOADENV") })

	if err := LoadEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := os.Getenv("PAGELENS_TEST_LOADENV"); got != "from-file" {
		t.Errorf("PAGELENS_TEST_LOADENV = %q, want from-file", got)
	}
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("XDGDataDir() = %q", XDGDataDir())
	}
	if !strings.HasSuffix(XDGConfigDir(), AppName) {
		t.Errorf("XDGConfigDir() = %q", XDGConfigDir())
	}
}
