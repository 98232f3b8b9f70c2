package utils

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
)

// ErrNoRemoteAddress means the transport could not name the peer.
var ErrNoRemoteAddress = errors.New("connection has no remote address")

// NewTraceID returns a unique identifier for correlating a connection's logs.
func NewTraceID() string {
	return uuid.NewString()
}

// EndpointID derives a stable "ip:port" identity from a remote address.
func EndpointID(addr net.Addr) (string, error) {
	if addr == nil {
		return "", ErrNoRemoteAddress
	}

	switch a := addr.(type) {
	case *net.TCPAddr:
		if a.IP == nil {
			return "", ErrNoRemoteAddress
		}
		return net.JoinHostPort(a.IP.String(), strconv.Itoa(a.Port)), nil
	case *net.UDPAddr:
		if a.IP == nil {
			return "", ErrNoRemoteAddress
		}
		return net.JoinHostPort(a.IP.String(), strconv.Itoa(a.Port)), nil
	}

	return EndpointIDFromString(addr.String())
}

// EndpointIDFromString parses "host:port" as reported by e.g. an HTTP request.
func EndpointIDFromString(hostport string) (string, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRemoteAddress, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return "", fmt.Errorf("%w: %q is not an ip address", ErrNoRemoteAddress, host)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("%w: bad port %q", ErrNoRemoteAddress, port)
	}
	return net.JoinHostPort(ip.String(), port), nil
}
