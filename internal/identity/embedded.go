package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// defaultTorStartupTimeout covers bootstrapping a fresh Tor data directory.
const defaultTorStartupTimeout = 3 * time.Minute

// EmbeddedTor runs a Tor daemon owned by this process and exposes its SOCKS
// port as a proxy entry for a Pool. With --tor the CLI places that entry at
// the head of the rotation, ahead of any configured proxies.
//
// Note: the first start on a machine downloads directory information and
// builds circuits before the SOCKS port is usable. That can take a few
// minutes, which is why the startup timeout is separate from the fetch
// timeout.
type EmbeddedTor struct {
	// process is the running daemon; nil until Start succeeds.
	process *tornago.TorProcess

	// socksAddr is the host:port of the SOCKS5 listener, set by Start.
	socksAddr string

	// startupTimeout bounds the wait for bootstrap.
	startupTimeout time.Duration
}

// EmbeddedTorOption configures an EmbeddedTor.
type EmbeddedTorOption func(*EmbeddedTor)

// WithStartupTimeout sets how long to wait for Tor to bootstrap.
func WithStartupTimeout(timeout time.Duration) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		e.startupTimeout = timeout
	}
}

// NewEmbeddedTor returns a stopped EmbeddedTor.
func NewEmbeddedTor(opts ...EmbeddedTorOption) *EmbeddedTor {
	e := &EmbeddedTor{startupTimeout: defaultTorStartupTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the daemon on ephemeral SOCKS and control ports and
// verifies that the SOCKS port answers.
func (e *EmbeddedTor) Start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = process.Stop() //nolint:errcheck // best effort cleanup
		return err
	}

	if status := ProbeSOCKS5(ctx, process.SocksAddr()); status != SOCKSStatusOK {
		_ = process.Stop() //nolint:errcheck // best effort cleanup
		return fmt.Errorf("embedded Tor SOCKS port %s: %w", process.SocksAddr(), status.Err())
	}

	e.process = process
	e.socksAddr = process.SocksAddr()
	return nil
}

// Stop terminates the daemon. It is safe to call on a stopped instance.
func (e *EmbeddedTor) Stop() error {
	if e.process == nil {
		return nil
	}
	err := e.process.Stop()
	e.process = nil
	return err
}

// IsRunning reports whether Start succeeded and Stop has not been called.
func (e *EmbeddedTor) IsRunning() bool {
	return e.process != nil
}

// ProxyURL returns the daemon's SOCKS endpoint as a socks5h proxy entry,
// so host names (including .onion) are resolved by Tor.
func (e *EmbeddedTor) ProxyURL() (string, error) {
	if !e.IsRunning() {
		return "", ErrTorNotRunning
	}
	return "socks5h://" + e.socksAddr, nil
}
