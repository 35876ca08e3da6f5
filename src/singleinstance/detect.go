package singleinstance

import (
	"context"
	"time"

	"process-mutex/src/codec"
)

const (
	defaultProbeTimeout  = 300 * time.Millisecond
	defaultNotifyTimeout = 2 * time.Second
)

// Detect reports whether a primary answers on ep. The ctx deadline, if any,
// replaces the default 300ms probe timeout.
func Detect(ctx context.Context, ep Endpoint) bool {
	timeout := defaultProbeTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			timeout = d
		}
	}
	res, _ := probe(ctx, ep.Addr(), timeout)
	return res == probeOwner
}

// Notify delivers payload to a resident primary without trying to bind.
// A nil codec selects msgpack.
func Notify(ctx context.Context, ep Endpoint, cd codec.Codec, payload string) error {
	if cd == nil {
		cd = codec.Msgpack()
	}
	timeout := defaultNotifyTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			timeout = d
		}
	}
	res, err := probe(ctx, ep.Addr(), timeout)
	if res != probeOwner {
		if err == nil {
			err = ErrStaleEndpoint
		}
		return &TransportError{Op: "probe", Addr: ep.Addr(), Err: err}
	}
	if err := sendNotification(ctx, ep.Addr(), cd, payload, timeout); err != nil {
		return &TransportError{Op: "notify", Addr: ep.Addr(), Err: err}
	}
	return nil
}
