package fetch

import (
	"net/http"
	"strings"
)

// Header values sent with every request, matching a desktop browser
// navigating to a page from another site.
const (
	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguageHeader = "en-US,en;q=0.5"
	acceptEncodingHeader = "gzip, deflate, br"
)

// BrowserHeaders returns the request headers used for every fetch.
func BrowserHeaders(userAgent string) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", userAgent)
	h.Set("Accept", acceptHeader)
	h.Set("Accept-Language", acceptLanguageHeader)
	h.Set("Accept-Encoding", acceptEncodingHeader)
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "cross-site")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	return h
}

// SiteHeaders are extra headers and a cookie sent to one host.
type SiteHeaders struct {
	Headers map[string]string
	Cookie  string
}

// headerInjectingTransport adds per-host headers and cookies to every
// request, including those issued while following redirects.
type headerInjectingTransport struct {
	base  http.RoundTripper
	sites map[string]SiteHeaders
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	site, ok := t.sites[strings.ToLower(req.URL.Hostname())]
	if !ok {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	if site.Cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+site.Cookie)
		} else {
			clone.Header.Set("Cookie", site.Cookie)
		}
	}
	for name, value := range site.Headers {
		clone.Header.Set(name, value)
	}
	return t.base.RoundTrip(clone)
}
