//go:build !unix && !windows

package singleinstance

import "syscall"

func controlListener(network, address string, c syscall.RawConn) error { return nil }

// Without errno mapping every bind failure is reported as a BindError.
func isAddrInUse(err error) bool { return false }
