package fetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/pagelens/internal/identity"
)

const (
	// DefaultTimeout is the wall-clock limit of one fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize is the largest decoded body that is read.
	// Longer bodies are truncated.
	DefaultMaxBodySize = 5 * 1024 * 1024
)

// Fetcher returns the HTML of a URL using the given egress identity.
type Fetcher interface {
	FetchHTML(ctx context.Context, rawURL string, id identity.Identity) ([]byte, error)
}

// HTTPTransport fetches pages directly from their origin, through the
// proxy of the identity passed to each call. One HTTP client is kept per
// proxy so connections are reused between requests with the same identity.
type HTTPTransport struct {
	timeout     time.Duration
	maxBodySize int64
	sites       map[string]SiteHeaders
	newClient   func(proxyURL string) (*http.Client, error)

	mu      sync.Mutex
	clients map[string]*http.Client
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithTimeout sets the per-request wall-clock limit.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTPTransport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithMaxBodySize sets the largest decoded body that is read.
func WithMaxBodySize(n int64) Option {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.maxBodySize = n
		}
	}
}

// WithSiteHeaders adds headers and a cookie for requests to host.
func WithSiteHeaders(host string, site SiteHeaders) Option {
	return func(t *HTTPTransport) {
		t.sites[strings.ToLower(host)] = site
	}
}

// WithClientFactory replaces the function that builds the HTTP client
// for a proxy entry.
func WithClientFactory(fn func(proxyURL string) (*http.Client, error)) Option {
	return func(t *HTTPTransport) {
		t.newClient = fn
	}
}

// NewHTTPTransport returns a transport with a 30 second timeout.
func NewHTTPTransport(opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		sites:       make(map[string]SiteHeaders),
		newClient:   identity.NewHTTPClient,
		clients:     make(map[string]*http.Client),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Timeout returns the per-request wall-clock limit.
func (t *HTTPTransport) Timeout() time.Duration { return t.timeout }

// FetchHTML performs one GET of rawURL. The status and content type are
// checked before the body is read.
func (t *HTTPTransport) FetchHTML(ctx context.Context, rawURL string, id identity.Identity) ([]byte, error) {
	target, err := ParseTarget(rawURL)
	if err != nil {
		return nil, err
	}

	client, err := t.client(id.Proxy)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &InvalidInputError{Input: rawURL, Reason: err.Error()}
	}
	req.Header = BrowserHeaders(id.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyError(ctx, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // drain for reuse
		return nil, &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, &ContentTypeError{URL: rawURL, ContentType: contentType}
	}

	body, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"), contentType)
	if err != nil {
		var unsupported *unsupportedEncodingError
		if errors.As(err, &unsupported) {
			return nil, &ContentTypeError{URL: rawURL, ContentType: contentType, Encoding: unsupported.coding}
		}
		return nil, classifyError(ctx, rawURL, err)
	}

	data, err := io.ReadAll(io.LimitReader(body, t.maxBodySize))
	if err != nil {
		return nil, classifyError(ctx, rawURL, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &EmptyBodyError{URL: rawURL}
	}
	return data, nil
}

func (t *HTTPTransport) client(proxyURL string) (*http.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[proxyURL]; ok {
		return c, nil
	}
	c, err := t.newClient(proxyURL)
	if err != nil {
		return nil, err
	}
	if len(t.sites) > 0 {
		base := c.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.Transport = &headerInjectingTransport{base: base, sites: t.sites}
	}
	t.clients[proxyURL] = c
	return c, nil
}

// classifyError maps a client error to NetworkError. Cancellation of the
// caller's context is returned as is so it is not mistaken for a timeout.
func classifyError(parent context.Context, rawURL string, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return &NetworkError{URL: rawURL, Timeout: timeout, Err: err}
}

// isHTML reports whether a Content-Type header declares an HTML document.
func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "text/html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
