// Package server constructs and runs the Parley TCP chat service with
// helpers that apply sensible production defaults.
package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// sessionOutBuffer is the per-session outbound queue depth before deliveries
// start failing and the member is treated as disconnected.
const sessionOutBuffer = 256

// Server owns the registries and the listeners. Registries are injected into
// every dispatcher, so the engine has no package-global state.
type Server struct {
	cfg       Config
	logger    zerolog.Logger
	usernames *UsernameRegistry
	rooms     *RoomRegistry

	mu       sync.Mutex
	sessions map[*Session]struct{}
	listener net.Listener
	gateway  *http.Server
	closed   bool

	wg sync.WaitGroup
}

// NewServer creates a server from the given configuration. The configuration
// is sanitized, so zero values fall back to defaults.
func NewServer(cfg Config, logger zerolog.Logger) *Server {
	cfg = sanitizeConfig(cfg)
	return &Server{
		cfg:       cfg,
		logger:    logger.With().Str("component", "server").Logger(),
		usernames: NewUsernameRegistry(),
		rooms:     NewRoomRegistry(cfg.RoomCapacity, cfg.RoomIdleTTL, logger),
		sessions:  make(map[*Session]struct{}),
	}
}

// Rooms exposes the room registry, mainly for tests and diagnostics.
func (srv *Server) Rooms() *RoomRegistry {
	return srv.rooms
}

// ListenAndServe binds the configured TCP address, starts the WebSocket
// gateway if one is configured, and runs the accept loop until shutdown.
func (srv *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", srv.cfg.Addr)
	if err != nil {
		return err
	}

	if srv.cfg.GatewayAddr != "" {
		srv.startGateway()
	}

	return srv.Serve(ln)
}

// Serve runs the accept loop on the provided listener, one worker goroutine
// per connection. It returns nil once the listener is closed by Shutdown.
func (srv *Server) Serve(ln net.Listener) error {
	srv.mu.Lock()
	if srv.closed {
		srv.mu.Unlock()
		_ = ln.Close()
		return net.ErrClosed
	}
	srv.listener = ln
	srv.mu.Unlock()

	srv.logger.Info().Str("addr", ln.Addr().String()).Msg("Chat server listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if srv.isClosed() || isExpectedCloseError(err) {
				return nil
			}
			srv.logger.Warn().Err(err).Msg("Accept failed")
			continue
		}

		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()
			srv.runSession(newTCPTransport(conn, srv.cfg.MaxLineBytes))
		}()
	}
}

// runSession drives one connection from negotiation to teardown. It is the
// shared entry point for TCP connections and gateway upgrades.
func (srv *Server) runSession(t transport) {
	s := newSession(t, sessionOutBuffer)
	srv.trackSession(s)
	defer srv.untrackSession(s)

	go s.writePump()

	d := newDispatcher(srv.usernames, srv.rooms, s, srv.cfg.RateLimit, srv.logger)
	d.run()
}

// Shutdown stops accepting connections, closes every live session, and waits
// for workers to finish or the timeout to elapse.
func (srv *Server) Shutdown(timeout time.Duration) error {
	srv.logger.Info().Msg("Initiating server shutdown...")

	srv.mu.Lock()
	srv.closed = true
	ln := srv.listener
	gw := srv.gateway
	sessions := make([]*Session, 0, len(srv.sessions))
	for s := range srv.sessions {
		sessions = append(sessions, s)
	}
	srv.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	if gw != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = gw.Shutdown(ctx)
	}

	for _, s := range sessions {
		s.close()
	}

	done := make(chan struct{})
	go func() {
		srv.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		srv.rooms.Stop()
		srv.logger.Info().Msg("Server shutdown completed")
		return nil
	case <-time.After(timeout):
		srv.logger.Warn().Msg("Server shutdown timeout reached, some workers may still be running")
		return context.DeadlineExceeded
	}
}

func (srv *Server) isClosed() bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.closed
}

func (srv *Server) trackSession(s *Session) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.sessions[s] = struct{}{}
}

func (srv *Server) untrackSession(s *Session) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	delete(srv.sessions, s)
}

// tcpTransport frames the line protocol over a raw TCP connection.
type tcpTransport struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

func newTCPTransport(conn net.Conn, maxLineBytes int) *tcpTransport {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024), maxLineBytes)
	return &tcpTransport{conn: conn, scanner: scanner}
}

func (t *tcpTransport) ReadLine() (string, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return t.scanner.Text(), nil
}

func (t *tcpTransport) WriteLine(line string) error {
	_, err := t.conn.Write([]byte(line + "\n"))
	return err
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
