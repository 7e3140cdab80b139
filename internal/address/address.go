// Package address validates the host and port a player types in before
// connecting.
package address

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

var (
	ErrInvalidHost = errors.New("invalid hostname")
	ErrInvalidPort = errors.New("invalid port")
)

// Address is a validated server address.
type Address struct {
	Host string
	Port int
}

// Parse validates user input. Surrounding whitespace is ignored.
func Parse(host, port string) (Address, error) {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)

	if !IsIPAddress(host) && !IsHostname(host) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}
	if !IsPort(port) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidPort, port)
	}
	p, _ := strconv.Atoi(port)
	return Address{Host: host, Port: p}, nil
}

// String joins host and port, bracketing IPv6 literals.
func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// IsIPAddress reports whether s is an IPv4 or IPv6 literal.
func IsIPAddress(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

// IsPort reports whether s is a decimal port number in [1, 65535].
func IsPort(s string) bool {
	p, err := strconv.Atoi(s)
	return err == nil && p > 0 && p <= 65535
}

// IsHostname reports whether s is a syntactically valid DNS name.
func IsHostname(s string) bool {
	s = strings.TrimSuffix(s, ".")
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			default:
				return false
			}
		}
	}
	return true
}
