// Package server schedules idle-expiry checks for empty rooms.
package server

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// expiryScheduler keeps at most one live timer per room name. Arming a room
// supersedes any previous timer for it; firing runs the check callback, which
// must re-verify emptiness before removing anything.
type expiryScheduler struct {
	mu     sync.Mutex
	ttl    time.Duration
	timers map[string]*time.Timer
	check  func(roomName string)
	logger zerolog.Logger
}

func newExpiryScheduler(ttl time.Duration, check func(roomName string), logger zerolog.Logger) *expiryScheduler {
	return &expiryScheduler{
		ttl:    ttl,
		timers: make(map[string]*time.Timer),
		check:  check,
		logger: logger.With().Str("component", "expiry").Logger(),
	}
}

// Arm schedules a one-shot expiry check for the room, replacing any timer
// already pending for the same name.
func (e *expiryScheduler) Arm(roomName string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if old, ok := e.timers[roomName]; ok {
		old.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(e.ttl, func() {
		e.mu.Lock()
		// A Stop that loses the race with firing still runs this callback;
		// only the currently registered timer may act.
		if e.timers[roomName] != t {
			e.mu.Unlock()
			return
		}
		delete(e.timers, roomName)
		e.mu.Unlock()

		e.logger.Debug().Str("room", roomName).Msg("Idle-expiry check firing")
		e.check(roomName)
	})
	e.timers[roomName] = t

	e.logger.Debug().Str("room", roomName).Dur("ttl", e.ttl).Msg("Idle-expiry timer armed")
}

// Cancel drops the pending timer for the room if one is live.
func (e *expiryScheduler) Cancel(roomName string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.timers[roomName]; ok {
		t.Stop()
		delete(e.timers, roomName)
	}
}

// StopAll cancels every pending timer; used during shutdown.
func (e *expiryScheduler) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, t := range e.timers {
		t.Stop()
		delete(e.timers, name)
	}
}
