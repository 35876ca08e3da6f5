// Package singleinstance keeps one primary instance of an application on a
// loopback TCP endpoint. Later launches detect the primary, hand it their
// startup payload and exit.
package singleinstance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"process-mutex/src/codec"
	"process-mutex/src/logutil"
)

// Status is the role a guard holds on its endpoint.
type Status int

const (
	Unbound Status = iota
	Primary
	Secondary
)

func (s Status) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// Options tune a Guard. Zero values select the defaults.
type Options struct {
	// Timeout bounds each probe and notification (default 2s).
	Timeout time.Duration
	// StaleRetries is how many extra bind attempts are made when the endpoint
	// is reported in use but nothing listens on it. Zero means one attempt.
	StaleRetries int
	// StaleBackoff is the first delay between stale retries; it doubles.
	StaleBackoff time.Duration
	// Codec encodes outgoing notifications (default msgpack).
	Codec codec.Codec
	// Logger receives guard events; nil discards them.
	Logger *zerolog.Logger
}

// Guard claims an Endpoint for the current process.
type Guard struct {
	endpoint  Endpoint
	onPayload func(string)
	opts      Options
	log       zerolog.Logger

	mu     sync.Mutex
	status Status
	srv    *tcpServer

	received atomic.Int64
}

// New returns an unbound guard. onPayload runs on the listener goroutine for
// every payload a secondary delivers, one at a time; it must not call Close.
// While it runs no other connection is accepted, so a callback slower than
// opts.Timeout makes later launches fail with a TransportError.
// Hand long work off to another goroutine.
func New(ep Endpoint, onPayload func(payload string), opts Options) *Guard {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultNotifyTimeout
	}
	if opts.StaleRetries < 0 {
		opts.StaleRetries = 0
	}
	if opts.StaleBackoff <= 0 {
		opts.StaleBackoff = 100 * time.Millisecond
	}
	if opts.Codec == nil {
		opts.Codec = codec.Msgpack()
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	if onPayload == nil {
		onPayload = func(string) {}
	}
	return &Guard{
		endpoint:  ep,
		onPayload: onPayload,
		opts:      opts,
		log:       log.With().Str("component", "singleinstance").Str("endpoint", ep.Addr()).Logger(),
	}
}

func (g *Guard) Endpoint() Endpoint { return g.endpoint }

func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Received returns how many payloads the primary has handed to onPayload.
func (g *Guard) Received() int64 { return g.received.Load() }

// Acquire tries to become the primary for the guard's endpoint. If another
// instance already owns it, payload (when non-empty) is delivered to that
// instance and Secondary is returned; the caller should exit. Once a guard
// holds a role, Acquire returns it again without touching the network.
func (g *Guard) Acquire(ctx context.Context, payload string) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != Unbound {
		return g.status, nil
	}

	addr := g.endpoint.Addr()
	backoff := g.opts.StaleBackoff
	for attempt := 0; ; attempt++ {
		lis, err := listenFunc(ctx, addr)
		if err == nil {
			g.srv = newTcpServer(lis, g.opts.Timeout, g.log, g.handle)
			g.srv.start()
			g.status = Primary
			g.log.Info().Msg("acquired endpoint, running as primary")
			return Primary, nil
		}
		if !isAddrInUse(err) {
			return Unbound, &BindError{Addr: addr, Err: err}
		}

		res, perr := probe(ctx, addr, g.opts.Timeout)
		g.log.Debug().Stringer("probe", res).AnErr("probe_err", perr).Msg("endpoint in use")
		switch res {
		case probeOwner:
			if payload != "" {
				if err := sendNotification(ctx, addr, g.opts.Codec, payload, g.opts.Timeout); err != nil {
					return Unbound, &TransportError{Op: "notify", Addr: addr, Err: err}
				}
				g.log.Info().Str("payload", logutil.SanitizePayload(payload)).Msg("payload handed to primary")
			}
			g.status = Secondary
			return Secondary, nil
		case probeForeign:
			return Unbound, &BindError{Addr: addr, Err: perr}
		case probeUnresponsive:
			return Unbound, &TransportError{Op: "probe", Addr: addr, Err: perr}
		}

		if attempt >= g.opts.StaleRetries {
			return Unbound, &BindError{Addr: addr, Err: fmt.Errorf("%w: %v", ErrStaleEndpoint, err)}
		}
		g.log.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Msg("stale endpoint, retrying bind")
		select {
		case <-ctx.Done():
			return Unbound, &BindError{Addr: addr, Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (g *Guard) handle(n notification) {
	payload := string(n.Payload)
	g.received.Add(1)
	g.log.Info().
		Str("payload", logutil.SanitizePayload(payload)).
		Int("from_pid", n.PID).
		Msg("payload received from secondary")
	g.onPayload(payload)
}

// Close releases the endpoint if this guard is primary. The guard returns to
// Unbound and may Acquire again.
func (g *Guard) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var err error
	if g.srv != nil {
		err = g.srv.Close()
		g.srv = nil
		g.log.Info().Msg("released endpoint")
	}
	g.status = Unbound
	return err
}
