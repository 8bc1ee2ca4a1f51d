// Package safehttp provides an outbound transport that refuses to reach
// private, loopback, or link-local addresses.
package safehttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrPrivateAddress is returned when the resolved peer is not publicly routable.
var ErrPrivateAddress = errors.New("access to private address denied")

const defaultDialTimeout = 5 * time.Second

// NewTransport returns a transport for upstream calls whose target is set
// by configuration. The check runs on the connected peer address, so DNS
// names that resolve to private ranges are caught as well.
func NewTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = dialPublic
	return t
}

func dialPublic(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: defaultDialTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	ip := net.ParseIP(host)
	if ip == nil {
		conn.Close()
		return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
	}

	if !IsPublic(ip) {
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
	}

	return conn, nil
}

// IsPublic reports whether ip may be dialed by NewTransport.
func IsPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified())
}
