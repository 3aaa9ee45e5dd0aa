// Package server implements rooms: named, capacity-bounded, optionally
// password-protected sets of member sessions with ordered fan-out.
package server

import (
	"sync"

	"github.com/rs/zerolog"
)

// Room is a named set of member sessions. Membership mutations and the
// notices they produce happen under the same room-scoped lock, so every
// member observes join/leave/message events for one room in a single order.
type Room struct {
	name     string
	password string
	capacity int

	// mu guards members. Lock ordering: registry lock, then room locks in
	// lexicographic name order, then the scheduler lock.
	mu      sync.Mutex
	members map[*Session]struct{}
	// evicted is set under mu when the expiry check removes the room, so a
	// join that raced the eviction cannot resurrect an orphaned membership.
	evicted bool

	evict  *expiryScheduler
	logger zerolog.Logger
}

func newRoom(name, password string, capacity int, evict *expiryScheduler, logger zerolog.Logger) *Room {
	return &Room{
		name:     name,
		password: password,
		capacity: capacity,
		members:  make(map[*Session]struct{}),
		evict:    evict,
		logger:   logger.With().Str("component", "room").Str("room", name).Logger(),
	}
}

// Name returns the room's unique name.
func (r *Room) Name() string { return r.name }

// HasPassword reports whether joining requires a password.
func (r *Room) HasPassword() bool { return r.password != "" }

// Empty reports whether the room currently has no members.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) == 0
}

// Len returns the current membership size.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Join attempts to add the session to the room. On success the session is
// moved out of its previous room (if any) and into this one as a single
// logical step; every failure outcome leaves all membership untouched.
func (r *Room) Join(s *Session, password string) JoinResult {
	prev := s.room

	if prev == nil || prev == r {
		r.mu.Lock()
		defer r.mu.Unlock()
	} else {
		// Both rooms change; take their locks in name order so two
		// sessions moving in opposite directions cannot deadlock.
		lockRooms(prev, r)
		defer unlockRooms(prev, r)
	}

	if r.evicted {
		return RoomNotFound
	}

	if r.password != "" {
		if password == "" {
			return NeedsPassword
		}
		if password != r.password {
			return WrongPassword
		}
	}

	if _, already := r.members[s]; already {
		return Joined
	}

	if len(r.members) >= r.capacity {
		return RoomFull
	}

	if prev != nil && prev != r {
		prev.removeLocked(s)
	}

	r.members[s] = struct{}{}
	s.room = r
	r.evict.Cancel(r.name)
	r.noticeLocked(s.username + " has joined the room.")

	r.logger.Debug().Str("user", s.username).Int("members", len(r.members)).Msg("Session joined")
	return Joined
}

// Leave removes the session from the room, notifies the remaining members,
// and arms the idle-expiry timer if the room became empty. No-op if the
// session is not a member.
func (r *Room) Leave(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(s)
}

// removeLocked requires r.mu to be held.
func (r *Room) removeLocked(s *Session) {
	if _, ok := r.members[s]; !ok {
		return
	}

	delete(r.members, s)
	s.room = nil
	r.noticeLocked(s.username + " has left the room.")

	if len(r.members) == 0 {
		r.evict.Arm(r.name)
	}

	r.logger.Debug().Str("user", s.username).Int("members", len(r.members)).Msg("Session left")
}

// Broadcast delivers "<username>: <text>" to every member except the sender.
func (r *Room) Broadcast(sender *Session, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := sender.username + ": " + text
	for member := range r.members {
		if member == sender {
			continue
		}
		if !member.deliver(line) {
			member.kick()
		}
	}
}

// noticeLocked sends a membership notice to every current member, the one
// that triggered the event included. Requires r.mu to be held.
func (r *Room) noticeLocked(line string) {
	for member := range r.members {
		if !member.deliver(line) {
			member.kick()
		}
	}
}

func lockRooms(a, b *Room) {
	if a.name < b.name {
		a.mu.Lock()
		b.mu.Lock()
	} else {
		b.mu.Lock()
		a.mu.Lock()
	}
}

func unlockRooms(a, b *Room) {
	a.mu.Unlock()
	b.mu.Unlock()
}
