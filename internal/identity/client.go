package identity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

// maxRedirects is the number of redirects followed before giving up.
const maxRedirects = 10

// NewHTTPClient returns an HTTP client whose connections egress through
// proxyURL, or directly when proxyURL is Direct.
//
// The client does not decompress responses on its own: callers that send an
// explicit Accept-Encoding header are expected to decode the body.
// No client-wide timeout is set; callers bound each request with a context.
func NewHTTPClient(proxyURL string) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           (&net.Dialer{Timeout: 15 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       60 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
	}

	if proxyURL != Direct {
		u, err := ParseProxy(proxyURL)
		if err != nil {
			return nil, err
		}
		switch u.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		case "socks5", "socks5h":
			dialer, err := proxy.FromURL(u, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
			}
			transport.DialContext = contextDialer(dialer)
			// HTTP/2 over a custom dialer needs TLS negotiation we don't control.
			transport.ForceAttemptHTTP2 = false
		}
	}

	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}) //nolint:errcheck // cookiejar.New never fails

	return &http.Client{
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// contextDialer adapts a proxy.Dialer to the DialContext signature.
// Dialers that cannot be cancelled are raced against the context; the
// connection attempt itself may finish after the context is done, in which
// case the connection is closed.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case r := <-resultCh:
			return r.conn, r.err
		case <-ctx.Done():
			go func() {
				if r := <-resultCh; r.conn != nil {
					_ = r.conn.Close() //nolint:errcheck // abandoned connection
				}
			}()
			return nil, ctx.Err()
		}
	}
}

// ProxyHost returns the host:port of a proxy entry, or "" for Direct.
func ProxyHost(proxyURL string) string {
	if proxyURL == Direct {
		return ""
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return ""
	}
	return u.Host
}
