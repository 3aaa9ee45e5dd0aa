package server

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stubTransport is an in-memory transport driven entirely from the test:
// lines pushed into in come out of ReadLine, lines written by the session
// land in out.
type stubTransport struct {
	in     chan string
	out    chan string
	closed chan struct{}
	once   sync.Once
}

func newStubTransport() *stubTransport {
	return &stubTransport{
		in:     make(chan string, 16),
		out:    make(chan string, 64),
		closed: make(chan struct{}),
	}
}

func (t *stubTransport) ReadLine() (string, error) {
	select {
	case line, ok := <-t.in:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-t.closed:
		return "", io.EOF
	}
}

func (t *stubTransport) WriteLine(line string) error {
	select {
	case t.out <- line:
		return nil
	case <-t.closed:
		return errors.New("transport closed")
	}
}

func (t *stubTransport) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

func (t *stubTransport) RemoteAddr() string {
	return "stub"
}

func newTestRegistry(capacity int, ttl time.Duration) *RoomRegistry {
	return NewRoomRegistry(capacity, ttl, zerolog.Nop())
}

// newTestSession builds a session with a negotiated username. No write pump
// runs, so tests read delivered lines straight from s.out.
func newTestSession(name string) *Session {
	s := newSession(newStubTransport(), sessionOutBuffer)
	s.username = name
	return s
}

func expectDelivered(t *testing.T, s *Session, want string) {
	t.Helper()

	select {
	case got := <-s.out:
		if got != want {
			t.Fatalf("delivered %q, want %q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("no line delivered, want %q", want)
	}
}

func expectNothingDelivered(t *testing.T, s *Session) {
	t.Helper()

	select {
	case got := <-s.out:
		t.Fatalf("unexpected line delivered: %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func drainDelivered(s *Session) {
	for {
		select {
		case <-s.out:
		default:
			return
		}
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
