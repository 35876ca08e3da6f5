package singleinstance

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultHost is the loopback address the guard binds when none is given.
const DefaultHost = "127.0.0.1"

// Endpoint is the loopback rendezvous point shared by every instance of an
// application. It is immutable once built.
type Endpoint struct {
	host string
	port string
}

// NewEndpoint validates host and port. The port may be any integer type or
// its decimal string form; it is stored as a string. Only loopback hosts are
// accepted.
func NewEndpoint(host string, port interface{}) (Endpoint, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	}
	if !isLoopback(host) {
		return Endpoint{}, fmt.Errorf("singleinstance: host %q is not a loopback address", host)
	}

	p, err := normalizePort(port)
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{host: host, port: p}, nil
}

// MustEndpoint is NewEndpoint for static values; it panics on invalid input.
func MustEndpoint(host string, port interface{}) Endpoint {
	ep, err := NewEndpoint(host, port)
	if err != nil {
		panic(err)
	}
	return ep
}

func (e Endpoint) Host() string { return e.host }

// Port returns the normalized decimal port.
func (e Endpoint) Port() string { return e.port }

func (e Endpoint) Addr() string { return net.JoinHostPort(e.host, e.port) }

func (e Endpoint) String() string { return e.Addr() }

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func normalizePort(port interface{}) (string, error) {
	var n int64
	switch v := port.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		return unsignedPort(uint64(v))
	case uint8:
		return unsignedPort(uint64(v))
	case uint16:
		return unsignedPort(uint64(v))
	case uint32:
		return unsignedPort(uint64(v))
	case uint64:
		return unsignedPort(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return "", fmt.Errorf("singleinstance: invalid port %q: %w", v, err)
		}
		n = parsed
	default:
		return "", fmt.Errorf("singleinstance: unsupported port type %T", port)
	}
	if n < 1 || n > 65535 {
		return "", fmt.Errorf("singleinstance: port %d out of range", n)
	}
	return strconv.FormatInt(n, 10), nil
}

func unsignedPort(n uint64) (string, error) {
	if n < 1 || n > 65535 {
		return "", fmt.Errorf("singleinstance: port %d out of range", n)
	}
	return strconv.FormatUint(n, 10), nil
}
