package singleinstance

import (
	"errors"
	"fmt"
)

var (
	// ErrForeignOwner means the endpoint is held by a process that does not
	// speak the guard protocol.
	ErrForeignOwner = errors.New("endpoint owned by a foreign process")
	// ErrStaleEndpoint means bind reported the address in use but nothing
	// accepted a connection on it.
	ErrStaleEndpoint = errors.New("endpoint reported in use but nothing is listening")
	// ErrRejected means the primary answered a notification with an error.
	ErrRejected = errors.New("payload rejected by primary")
)

// BindError is returned when the endpoint cannot be claimed and no peer
// instance owns it.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("singleinstance: cannot bind %s (%v)", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// TransportError is returned when the endpoint looks occupied but the owner
// cannot be reached or does not acknowledge a payload in time.
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("singleinstance: %s %s failed (%v)", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
