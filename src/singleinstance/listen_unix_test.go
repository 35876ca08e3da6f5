//go:build unix

package singleinstance

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestListenSetsReuseAddr(t *testing.T) {
	ep := freeEndpoint(t)
	lis, err := listen(context.Background(), ep.Addr())
	require.NoError(t, err)
	defer lis.Close()

	raw, err := lis.(*net.TCPListener).SyscallConn()
	require.NoError(t, err)
	var opt int
	var optErr error
	require.NoError(t, raw.Control(func(fd uintptr) {
		opt, optErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR)
	}))
	require.NoError(t, optErr)
	assert.NotZero(t, opt)
}

func TestSecondLiveListenerIsAddrInUse(t *testing.T) {
	ep := freeEndpoint(t)
	lis, err := listen(context.Background(), ep.Addr())
	require.NoError(t, err)
	defer lis.Close()

	_, err = listen(context.Background(), ep.Addr())
	require.Error(t, err)
	assert.True(t, isAddrInUse(err), "got %v", err)
}
