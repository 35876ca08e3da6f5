package singleinstance

import (
	"net"
	"sync"
	"testing"
	"time"
)

// freeEndpoint reserves a loopback port, releases it and returns it as an
// Endpoint. Skips when loopback TCP is unavailable.
func freeEndpoint(t *testing.T) Endpoint {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback tcp unavailable in this environment: %v", err)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	_ = lis.Close()
	return MustEndpoint(DefaultHost, port)
}

type payloadRecorder struct {
	mu       sync.Mutex
	payloads []string
	ch       chan string
}

func newPayloadRecorder() *payloadRecorder {
	return &payloadRecorder{ch: make(chan string, 64)}
}

func (r *payloadRecorder) record(p string) {
	r.mu.Lock()
	r.payloads = append(r.payloads, p)
	r.mu.Unlock()
	r.ch <- p
}

func (r *payloadRecorder) wait(t *testing.T) string {
	t.Helper()
	select {
	case p := <-r.ch:
		return p
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for payload")
		return ""
	}
}

func (r *payloadRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.payloads...)
}
