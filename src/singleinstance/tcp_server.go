package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// tcpServer owns the bound endpoint on behalf of a primary instance. One
// goroutine accepts connections and serves them in order, so the payload
// handler never runs concurrently with itself.
type tcpServer struct {
	lis         net.Listener
	handler     func(notification)
	connTimeout time.Duration
	log         zerolog.Logger
	done        chan struct{}
}

// listenFunc is swapped in tests to simulate bind failures.
var listenFunc = listen

func listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: controlListener}
	return lc.Listen(ctx, "tcp", addr)
}

func newTcpServer(lis net.Listener, connTimeout time.Duration, log zerolog.Logger, handler func(notification)) *tcpServer {
	return &tcpServer{
		lis:         lis,
		handler:     handler,
		connTimeout: connTimeout,
		log:         log,
		done:        make(chan struct{}),
	}
}

// Port returns the bound TCP port.
func (s *tcpServer) Port() int {
	if a, ok := s.lis.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

func (s *tcpServer) start() { go s.acceptLoop() }

func (s *tcpServer) acceptLoop() {
	defer close(s.done)
	for {
		c, err := s.lis.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Error().Err(err).Msg("accept failed, listener stopped")
			}
			return
		}
		s.serveConn(c)
	}
}

func (s *tcpServer) serveConn(c net.Conn) {
	defer c.Close()
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(s.connTimeout))

	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)
	line, err := br.ReadString('\n')
	if err != nil {
		s.log.Debug().Err(err).Str("remote", remote).Msg("connection closed before request")
		return
	}

	if line == pingRequest {
		s.log.Debug().Str("remote", remote).Msg("PING -> PONG")
		_, _ = bw.WriteString(pongResponse)
		_ = bw.Flush()
		return
	}

	cd, isNotify, err := parseNotifyLine(line)
	if !isNotify {
		s.log.Warn().Str("remote", remote).Msg("unknown request")
		s.respondError(bw, "unknown request")
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("remote", remote).Msg("notify with unsupported codec")
		s.respondError(bw, err.Error())
		return
	}

	n, err := readFrame(br, cd)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", remote).Msg("bad notification frame")
		s.respondError(bw, err.Error())
		return
	}
	if _, err := bw.WriteString(ackResponse); err != nil {
		return
	}
	if err := bw.Flush(); err != nil {
		s.log.Warn().Err(err).Str("remote", remote).Msg("ack not delivered, dropping payload")
		return
	}
	s.dispatch(n)
}

func (s *tcpServer) dispatch(n notification) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("payload handler panicked")
		}
	}()
	s.handler(n)
}

func (s *tcpServer) respondError(bw *bufio.Writer, msg string) {
	_, _ = bw.WriteString(errorResponse + msg)
	_ = bw.Flush()
}

// Close stops accepting and waits for the accept loop to exit.
func (s *tcpServer) Close() error {
	err := s.lis.Close()
	<-s.done
	return err
}
