//go:build windows

package singleinstance

import (
	"errors"
	"syscall"

	"golang.org/x/sys/windows"
)

const (
	soExclusiveAddrUse = ^windows.SO_REUSEADDR

	wsaEAccess    = syscall.Errno(10013)
	wsaEAddrInUse = syscall.Errno(10048)
)

// controlListener sets SO_EXCLUSIVEADDRUSE; without it another process can
// bind the same port with SO_REUSEADDR and steal notifications.
func controlListener(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, soExclusiveAddrUse, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

func isAddrInUse(err error) bool {
	return errors.Is(err, wsaEAddrInUse) || errors.Is(err, wsaEAccess)
}
