package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvRelayURL    = "PAGELENS_RELAY_URL"
	EnvProxies     = "PAGELENS_PROXIES"
	EnvUserAgents  = "PAGELENS_USER_AGENTS"
	EnvMaxAttempts = "PAGELENS_MAX_ATTEMPTS"
	EnvDBDir       = "PAGELENS_DB_DIR"
)

// LoadEnv loads variables from the given .env files, or from ./.env when
// none are given. Missing files are skipped. Variables already set in the
// process environment win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv copies PAGELENS_* variables found by lookup into c. Pass
// os.LookupEnv for the process environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvRelayURL); ok && v != "" {
		c.RelayURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvProxies); ok && v != "" {
		c.Proxies = splitList(v, ",")
	}
	if v, ok := lookup(EnvUserAgents); ok && v != "" {
		c.UserAgents = splitList(strings.ReplaceAll(v, "\n", "|"), "|")
	}
	if v, ok := lookup(EnvMaxAttempts); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvMaxAttempts, v)
		}
		c.MaxAttempts = n
	}
	if v, ok := lookup(EnvDBDir); ok && v != "" {
		c.DBDir = v
	}
	return nil
}

// splitList splits s on sep and drops blank entries. A literal "direct"
// entry stands for a direct connection.
func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
			continue
		case strings.EqualFold(part, "direct"):
			out = append(out, "")
		default:
			out = append(out, part)
		}
	}
	return out
}
