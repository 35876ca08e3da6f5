package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"process-mutex/src/codec"
)

type probeResult int

const (
	// probeAbsent: the dial was refused, nothing listens on the endpoint.
	probeAbsent probeResult = iota
	// probeOwner: a primary answered PONG.
	probeOwner
	// probeForeign: something answered, but not with PONG.
	probeForeign
	// probeUnresponsive: connected or dialing, then no reply before the deadline.
	probeUnresponsive
)

func (r probeResult) String() string {
	switch r {
	case probeAbsent:
		return "absent"
	case probeOwner:
		return "owner"
	case probeForeign:
		return "foreign"
	case probeUnresponsive:
		return "unresponsive"
	default:
		return "unknown"
	}
}

// effectiveTimeout returns the shorter of timeout and the time left on ctx.
func effectiveTimeout(ctx context.Context, timeout time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < timeout {
			return d
		}
	}
	return timeout
}

func dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	_ = conn.SetDeadline(time.Now().Add(timeout))
	return conn, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// probe classifies whatever holds addr using the PING handshake.
func probe(ctx context.Context, addr string, timeout time.Duration) (probeResult, error) {
	timeout = effectiveTimeout(ctx, timeout)
	conn, err := dial(ctx, addr, timeout)
	if err != nil {
		if isTimeout(err) || ctx.Err() != nil {
			return probeUnresponsive, err
		}
		return probeAbsent, err
	}
	defer conn.Close()

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(pingRequest); err != nil {
		return probeUnresponsive, err
	}
	if err := w.Flush(); err != nil {
		return probeUnresponsive, err
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	switch {
	case err == nil && resp == pongResponse:
		return probeOwner, nil
	case resp != "":
		return probeForeign, fmt.Errorf("%w: unexpected reply %q", ErrForeignOwner, resp)
	case err == nil:
		return probeForeign, ErrForeignOwner
	default:
		return probeUnresponsive, err
	}
}

// sendNotification delivers payload to the primary on addr and waits for ACK.
func sendNotification(ctx context.Context, addr string, cd codec.Codec, payload string, timeout time.Duration) error {
	timeout = effectiveTimeout(ctx, timeout)
	conn, err := dial(ctx, addr, timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(notifyLine(cd)); err != nil {
		return err
	}
	n := notification{Payload: []byte(payload), PID: os.Getpid(), SentAt: time.Now().UTC()}
	if err := writeFrame(w, cd, n); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return fmt.Errorf("waiting for ack: %w", err)
	}
	switch status {
	case ackResponse:
		return nil
	case errorResponse:
		msg, _ := io.ReadAll(br)
		return fmt.Errorf("%w: %s", ErrRejected, strings.TrimSpace(string(msg)))
	default:
		return fmt.Errorf("unexpected reply %q", status)
	}
}
