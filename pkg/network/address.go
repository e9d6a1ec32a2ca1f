package network

import (
	"fmt"
	"net"
	"strconv"
)

// PeerAddress identifies a peer by "host:port"; it is the map key for every
// PeerBook set and the identity compared for self-dial detection.
type PeerAddress string

// NewPeerAddress builds a PeerAddress from an IP and a port.
func NewPeerAddress(ip net.IP, port uint16) PeerAddress {
	return PeerAddress(net.JoinHostPort(ip.String(), strconv.Itoa(int(port))))
}

// ParsePeerAddress validates that s has the form "host:port".
func ParsePeerAddress(s string) (PeerAddress, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return "", fmt.Errorf("invalid peer address %q: %w", s, err)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("invalid peer address %q: %w", s, err)
	}
	if net.ParseIP(host) == nil {
		// Hostnames are accepted as-is; only literal IPs are validated here.
		return PeerAddress(s), nil
	}
	return PeerAddress(net.JoinHostPort(host, port)), nil
}

// Host returns the host portion of the address.
func (a PeerAddress) Host() string {
	host, _, _ := net.SplitHostPort(string(a))
	return host
}

// Port returns the port portion of the address, or 0 if malformed.
func (a PeerAddress) Port() uint16 {
	_, port, err := net.SplitHostPort(string(a))
	if err != nil {
		return 0
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(p)
}

// IsLoopback reports whether the address resolves to a loopback IP.
func (a PeerAddress) IsLoopback() bool {
	ip := net.ParseIP(a.Host())
	return ip != nil && ip.IsLoopback()
}

// WithPort returns a copy of a with its port replaced.
func (a PeerAddress) WithPort(port uint16) PeerAddress {
	return NewPeerAddress(net.ParseIP(a.Host()), port)
}

func (a PeerAddress) String() string {
	return string(a)
}
