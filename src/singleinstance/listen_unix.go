//go:build unix

package singleinstance

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// controlListener sets SO_REUSEADDR explicitly. The Go runtime already
// enables it on Unix listeners; setting it here keeps TIME_WAIT rebinding
// part of this package's behavior rather than a runtime default. Two live
// listeners still conflict.
func controlListener(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

func isAddrInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}
