// Package server manages individual client sessions, handling outbound
// delivery and lifecycle control for each connection.
package server

import (
	"sync"

	"github.com/google/uuid"
)

// transport abstracts the framed byte stream a session speaks over, so the
// engine works identically for raw TCP connections and WebSocket frames.
type transport interface {
	// ReadLine blocks until the next inbound line or a terminal error.
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// Session is the server-side state for one connected client: its identity,
// current room, and outbound queue. It is owned by exactly one connection
// worker; rooms hold non-owning references for fan-out.
type Session struct {
	id       string
	username string

	// room is the session's current room. Mutated only by the owning
	// connection worker (join/leave/teardown run on it), at most one room
	// at any observable instant.
	room *Room

	out       chan string
	done      chan struct{}
	closeOnce sync.Once
	transport transport
}

func newSession(t transport, outBuffer int) *Session {
	return &Session{
		id:        uuid.NewString(),
		out:       make(chan string, outBuffer),
		done:      make(chan struct{}),
		transport: t,
	}
}

// deliver queues a line for the session's write pump. Delivery is
// fire-and-forget: a closed or saturated session reports failure instead of
// blocking the caller.
func (s *Session) deliver(line string) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.out <- line:
		return true
	case <-s.done:
		return false
	default:
		return false
	}
}

// kick closes the session's transport from outside its worker. The worker's
// read loop observes the closed transport and runs its own teardown, so a
// failed delivery never blocks or fails the sender.
func (s *Session) kick() {
	_ = s.transport.Close()
}

// close releases the transport and stops the write pump. Safe to call from
// any path; only the first call has an effect.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.transport.Close()
	})
}

// writePump drains the outbound queue onto the transport. It runs on its own
// goroutine so one slow peer never stalls the room that is broadcasting.
func (s *Session) writePump() {
	for {
		select {
		case line := <-s.out:
			if err := s.transport.WriteLine(line); err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}
