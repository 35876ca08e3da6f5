package singleinstance

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"process-mutex/src/codec"
)

const (
	pingRequest   = "PING\n"
	pongResponse  = "PONG\n"
	notifyVerb    = "NOTIFY"
	ackResponse   = "ACK\n"
	errorResponse = "ERROR\n"

	maxFrameSize = 64 << 10
)

// notification is the frame a secondary sends after NOTIFY. Payload is raw
// bytes so arbitrary launch arguments survive the JSON codec.
type notification struct {
	Payload []byte    `msgpack:"payload" json:"payload"`
	PID     int       `msgpack:"pid" json:"pid"`
	SentAt  time.Time `msgpack:"sent_at" json:"sent_at"`
}

func notifyLine(c codec.Codec) string { return notifyVerb + " " + c.Name() + "\n" }

// parseNotifyLine returns the codec named on a NOTIFY line, or ok=false for
// any other request.
func parseNotifyLine(line string) (codec.Codec, bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != notifyVerb {
		return nil, false, nil
	}
	name := ""
	if len(fields) > 1 {
		name = fields[1]
	}
	c, err := codec.ByName(name)
	return c, true, err
}

// writeFrame writes a 4-byte big-endian length followed by the encoded frame.
func writeFrame(w io.Writer, c codec.Codec, n notification) error {
	data, err := c.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if len(data) > maxFrameSize {
		return fmt.Errorf("notification frame of %d bytes exceeds %d", len(data), maxFrameSize)
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(data)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func readFrame(r *bufio.Reader, c codec.Codec) (notification, error) {
	var n notification
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return n, fmt.Errorf("read frame header: %w", err)
	}
	size := binary.BigEndian.Uint32(hdr[:])
	if size > maxFrameSize {
		return n, fmt.Errorf("notification frame of %d bytes exceeds %d", size, maxFrameSize)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return n, fmt.Errorf("read frame body: %w", err)
	}
	if err := c.Unmarshal(data, &n); err != nil {
		return n, fmt.Errorf("decode notification: %w", err)
	}
	return n, nil
}
