package identity

import "errors"

var (
	// ErrInvalidProxy is returned for a proxy entry that is not a URL with a
	// supported scheme and a host:port.
	ErrInvalidProxy = errors.New("invalid proxy")

	// ErrNoUserAgents is returned when a pool is given user agents that are
	// all blank.
	ErrNoUserAgents = errors.New("no usable user agent")

	// ErrTorNotRunning is returned when a client is requested from an
	// embedded Tor daemon that has not been started.
	ErrTorNotRunning = errors.New("embedded Tor daemon is not running")

	// ErrInvalidOnionAddress is returned for a .onion host that is not a
	// well-formed v3 address.
	ErrInvalidOnionAddress = errors.New("invalid onion address")
)

// SOCKSStatus is the outcome of probing a SOCKS5 endpoint.
type SOCKSStatus int

const (
	// SOCKSStatusOK means the endpoint completed a SOCKS5 greeting without auth.
	SOCKSStatusOK SOCKSStatus = iota
	// SOCKSStatusWrongType means something answered that is not an open SOCKS5 proxy.
	SOCKSStatusWrongType
	// SOCKSStatusCannotConnect means the TCP connection failed.
	SOCKSStatusCannotConnect
	// SOCKSStatusTimeout means the endpoint did not answer in time.
	SOCKSStatusTimeout
)

var (
	errSOCKSWrongType     = errors.New("endpoint is not an unauthenticated SOCKS5 proxy")
	errSOCKSCannotConnect = errors.New("cannot connect to SOCKS5 proxy")
	errSOCKSTimeout       = errors.New("timeout connecting to SOCKS5 proxy")
)

// String returns a human-readable description of the status.
func (s SOCKSStatus) String() string {
	switch s {
	case SOCKSStatusOK:
		return "OK"
	case SOCKSStatusWrongType:
		return "wrong type"
	case SOCKSStatusCannotConnect:
		return "cannot connect"
	case SOCKSStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err returns the error for this status, or nil if OK.
func (s SOCKSStatus) Err() error {
	switch s {
	case SOCKSStatusOK:
		return nil
	case SOCKSStatusWrongType:
		return errSOCKSWrongType
	case SOCKSStatusCannotConnect:
		return errSOCKSCannotConnect
	case SOCKSStatusTimeout:
		return errSOCKSTimeout
	default:
		return errors.New("unknown SOCKS5 status")
	}
}
