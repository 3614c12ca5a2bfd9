package fetch

import (
	"net/url"
	"strings"

	"github.com/nao1215/pagelens/internal/identity"
)

// ParseTarget validates a URL to be fetched. It must be absolute, use http
// or https, and have a host; .onion hosts must be valid v3 addresses.
func ParseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &InvalidInputError{Reason: "URL is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &InvalidInputError{Input: raw, Reason: err.Error()}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, &InvalidInputError{Input: raw, Reason: "URL must be absolute"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &InvalidInputError{Input: raw, Reason: "unsupported scheme " + u.Scheme}
	}
	if identity.IsOnionHost(u.Hostname()) {
		if err := identity.ValidateOnionHost(u.Hostname()); err != nil {
			return nil, &InvalidInputError{Input: raw, Reason: err.Error()}
		}
	}
	return u, nil
}
