package identity

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
)

// DefaultUserAgents are desktop browser strings used when none are configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// Direct is the proxy entry meaning "no proxy".
const Direct = ""

// Identity is the egress identity used for one request.
// It is a value: rotating produces a new Identity and leaves this one unchanged.
type Identity struct {
	proxyIndex     int
	userAgentIndex int

	// Proxy is the proxy URL, or Direct.
	Proxy string
	// UserAgent is sent as the User-Agent header.
	UserAgent string
}

// ProxyIndex returns the position of Proxy in its pool.
func (id Identity) ProxyIndex() int { return id.proxyIndex }

// UserAgentIndex returns the position of UserAgent in its pool.
func (id Identity) UserAgentIndex() int { return id.userAgentIndex }

// IsDirect reports whether requests go out without a proxy.
func (id Identity) IsDirect() bool { return id.Proxy == Direct }

// String describes the identity with proxy credentials removed.
func (id Identity) String() string {
	proxy := "direct"
	if !id.IsDirect() {
		proxy = RedactProxy(id.Proxy)
	}
	return fmt.Sprintf("proxy=%s ua#%d", proxy, id.userAgentIndex)
}

// Pool is the fixed set of proxies and user agents that identities are
// drawn from. A Pool is safe for concurrent use.
type Pool struct {
	proxies    []string
	userAgents []string

	proxyRotations     atomic.Int64
	userAgentRotations atomic.Int64
}

// NewPool validates proxies and userAgents and returns a Pool.
// An entry equal to Direct keeps its place in the rotation; whitespace-only
// entries are dropped. An empty proxy list yields a single Direct entry; an
// empty user agent list yields DefaultUserAgents. Proxy entries without a
// scheme are treated as http proxies.
func NewPool(proxies, userAgents []string) (*Pool, error) {
	p := &Pool{}

	for _, raw := range proxies {
		if raw == Direct {
			p.proxies = append(p.proxies, Direct)
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := ParseProxy(raw)
		if err != nil {
			return nil, err
		}
		p.proxies = append(p.proxies, u.String())
	}
	if len(p.proxies) == 0 {
		p.proxies = []string{Direct}
	}

	if len(userAgents) == 0 {
		userAgents = DefaultUserAgents
	}
	for _, ua := range userAgents {
		if ua = strings.TrimSpace(ua); ua != "" {
			p.userAgents = append(p.userAgents, ua)
		}
	}
	if len(p.userAgents) == 0 {
		return nil, ErrNoUserAgents
	}
	return p, nil
}

// ParseProxy parses a proxy entry. Supported schemes are http, https,
// socks5 and socks5h; "host:port" without a scheme means http.
func ParseProxy(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("%w: %s must include host and port", ErrInvalidProxy, RedactProxy(raw))
	}
	return u, nil
}

// RedactProxy hides the password of a proxy URL. Entries that do not
// parse are returned unchanged.
func RedactProxy(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

// Proxies returns the proxy entries in rotation order.
func (p *Pool) Proxies() []string { return append([]string(nil), p.proxies...) }

// UserAgents returns the user agents in rotation order.
func (p *Pool) UserAgents() []string { return append([]string(nil), p.userAgents...) }

// First returns the identity at the start of both cursors.
func (p *Pool) First() Identity {
	return p.At(0, 0)
}

// At returns the identity for the given cursor positions, wrapped into range.
func (p *Pool) At(proxyIndex, userAgentIndex int) Identity {
	pi := wrap(proxyIndex, len(p.proxies))
	ui := wrap(userAgentIndex, len(p.userAgents))
	return Identity{
		proxyIndex:     pi,
		userAgentIndex: ui,
		Proxy:          p.proxies[pi],
		UserAgent:      p.userAgents[ui],
	}
}

// RotateProxy returns id with the proxy cursor advanced by one.
func (p *Pool) RotateProxy(id Identity) Identity {
	p.proxyRotations.Add(1)
	return p.At(id.proxyIndex+1, id.userAgentIndex)
}

// RotateUserAgent returns id with the user agent cursor advanced by one.
func (p *Pool) RotateUserAgent(id Identity) Identity {
	p.userAgentRotations.Add(1)
	return p.At(id.proxyIndex, id.userAgentIndex+1)
}

// Rotate advances both cursors.
func (p *Pool) Rotate(id Identity) Identity {
	return p.RotateUserAgent(p.RotateProxy(id))
}

// Random returns an identity with both cursors chosen by intn, which must
// return a value in [0, n).
func (p *Pool) Random(intn func(n int) int) Identity {
	return p.At(intn(len(p.proxies)), intn(len(p.userAgents)))
}

// ProxyRotations returns how many times the proxy cursor has been advanced.
func (p *Pool) ProxyRotations() int64 { return p.proxyRotations.Load() }

// UserAgentRotations returns how many times the user agent cursor has been advanced.
func (p *Pool) UserAgentRotations() int64 { return p.userAgentRotations.Load() }

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
