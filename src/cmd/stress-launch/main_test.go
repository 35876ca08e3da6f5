package main

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"
)

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 50 {
		t.Fatalf("Expected default n=50, got %d", opts.n)
	}
	if opts.port != "49500" {
		t.Fatalf("Expected default port=49500, got %q", opts.port)
	}
	if opts.deadline != 5*time.Second {
		t.Fatalf("Expected default deadline=5s, got %v", opts.deadline)
	}
}

func TestNewRootCmdCustomFlags(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--n", "3", "--port", "9999", "--payload", "armory://x", "--deadline", "7s"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 3 {
		t.Fatalf("Expected n=3, got %d", opts.n)
	}
	if opts.port != "9999" {
		t.Fatalf("Expected port=9999, got %q", opts.port)
	}
	if opts.payload != "armory://x" {
		t.Fatalf("Expected payload=armory://x, got %q", opts.payload)
	}
	if opts.deadline != 7*time.Second {
		t.Fatalf("Expected deadline=7s, got %v", opts.deadline)
	}
}

func TestRunWithOptionsSingleWinner(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback tcp unavailable in this environment: %v", err)
	}
	port := strconv.Itoa(lis.Addr().(*net.TCPAddr).Port)
	_ = lis.Close()

	res, err := runWithOptions(context.Background(), stressOptions{n: 10, port: port, payload: "armory://stress", deadline: 5 * time.Second})
	if err != nil {
		t.Fatalf("runWithOptions: %v (%s)", err, res)
	}
	if res.secondary != 9 {
		t.Errorf("Expected 9 secondaries, got %d (%s)", res.secondary, res)
	}
	if res.delivered != 9 {
		t.Errorf("Expected 9 delivered payloads, got %d (%s)", res.delivered, res)
	}
}
