package identity

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"
)

// probeTimeout bounds a SOCKS5 probe. The probe only talks to the proxy
// itself, so it should answer quickly.
const probeTimeout = 2 * time.Second

const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
)

// ProbeSOCKS5 connects to addr ("host:port") and performs the SOCKS5
// method negotiation offering no authentication.
func ProbeSOCKS5(ctx context.Context, addr string) SOCKSStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return SOCKSStatusTimeout
		}
		return SOCKSStatusCannotConnect
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return SOCKSStatusCannotConnect
	}

	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return SOCKSStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return SOCKSStatusTimeout
		}
		return SOCKSStatusWrongType
	}
	if resp[0] != socks5Version || resp[1] == socks5AuthNoAccept || resp[1] != socks5AuthNone {
		return SOCKSStatusWrongType
	}
	return SOCKSStatusOK
}
