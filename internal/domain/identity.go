// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

var ErrBadAddress = errors.New("bad peer address")

// Identity names one client endpoint. It is a comparable value and is the
// key for every membership and routing table.
type Identity struct {
	Host string
	Port int
}

// IdentityFromAddr derives an Identity from a peer address such as
// net.Conn.RemoteAddr().
func IdentityFromAddr(addr net.Addr) (Identity, error) {
	if addr == nil {
		return Identity{}, ErrBadAddress
	}
	return ParseIdentity(addr.String())
}

// ParseIdentity parses a "host:port" string.
func ParseIdentity(s string) (Identity, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: port %q", ErrBadAddress, portStr)
	}
	return Identity{Host: host, Port: port}, nil
}

func (i Identity) String() string {
	return net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
}

// IsZero reports whether the identity is the unset value.
func (i Identity) IsZero() bool {
	return i.Host == "" && i.Port == 0
}
