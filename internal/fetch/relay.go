package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/pagelens/internal/identity"
)

// RelayPath is the route of the forwarding relay.
const RelayPath = "/api/proxy"

// ErrorEnvelope is the JSON body of a relay error response.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RelayTransport fetches pages through a forwarding relay, which performs
// the origin request itself. Only the identity's User-Agent is forwarded;
// egress proxies are the relay's concern.
type RelayTransport struct {
	endpoint    *url.URL
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
}

// RelayOption configures a RelayTransport.
type RelayOption func(*RelayTransport)

// WithRelayHTTPClient sets the client used to reach the relay.
func WithRelayHTTPClient(c *http.Client) RelayOption {
	return func(t *RelayTransport) {
		t.client = c
	}
}

// WithRelayTimeout sets the per-request wall-clock limit.
func WithRelayTimeout(d time.Duration) RelayOption {
	return func(t *RelayTransport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// NewRelayTransport returns a transport for the relay at baseURL, for
// example "http://127.0.0.1:8080".
func NewRelayTransport(baseURL string, opts ...RelayOption) (*RelayTransport, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || !base.IsAbs() || base.Host == "" {
		return nil, &InvalidInputError{Input: baseURL, Reason: "relay URL must be absolute"}
	}
	t := &RelayTransport{
		endpoint:    base.JoinPath(RelayPath),
		client:      &http.Client{},
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// FetchHTML asks the relay for rawURL. Relay error envelopes become
// HTTPStatusError with the envelope's message as details.
func (t *RelayTransport) FetchHTML(ctx context.Context, rawURL string, id identity.Identity) ([]byte, error) {
	if _, err := ParseTarget(rawURL); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	endpoint := *t.endpoint
	endpoint.RawQuery = url.Values{"url": []string{rawURL}}.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &InvalidInputError{Input: rawURL, Reason: err.Error()}
	}
	if id.UserAgent != "" {
		req.Header.Set("User-Agent", id.UserAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classifyError(ctx, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodySize))
	if err != nil {
		return nil, classifyError(ctx, rawURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode, Details: envelopeDetails(data)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &EmptyBodyError{URL: rawURL}
	}
	if !bytes.Contains(data, []byte("<")) {
		return nil, &ContentTypeError{URL: rawURL, ContentType: resp.Header.Get("Content-Type")}
	}
	return data, nil
}

func envelopeDetails(data []byte) string {
	var env ErrorEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Error == "" {
		return ""
	}
	if env.Details != "" {
		return fmt.Sprintf("%s: %s", env.Error, env.Details)
	}
	return env.Error
}
