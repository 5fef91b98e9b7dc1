// Package netguard blocks outbound connections to private, loopback,
// link-local and unspecified addresses unless a component explicitly opts
// in. The check runs in the dialer's Control hook, after name resolution,
// so a public hostname resolving to a private address is still caught.
package netguard

import (
	"fmt"
	"net"
	"syscall"
	"time"
)

// Allowed reports whether ip is a permissible egress target.
func Allowed(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified())
}

// Dialer returns a net.Dialer; when allowPrivate is false it refuses
// private-range targets at connect time.
func Dialer(allowPrivate bool) *net.Dialer {
	d := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		d.Control = guardControl
	}
	return d
}

func guardControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("egress guard: %w", err)
	}
	ip := net.ParseIP(host)
	if !Allowed(ip) {
		return fmt.Errorf("egress to %s blocked: private or local address", host)
	}
	return nil
}
