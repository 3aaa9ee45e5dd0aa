// Package server coordinates room creation, lookup, listing, and eviction
// for the Parley chat system via the RoomRegistry type.
package server

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RoomRegistry is the authoritative mapping of room name to Room. Registry
// structure and per-room membership are independent lock domains: create and
// remove take the registry lock, join and leave take only the room's own.
type RoomRegistry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	capacity int
	evict    *expiryScheduler
	logger   zerolog.Logger
}

// NewRoomRegistry creates a registry whose rooms hold at most capacity
// members and survive empty for idleTTL before eviction.
func NewRoomRegistry(capacity int, idleTTL time.Duration, logger zerolog.Logger) *RoomRegistry {
	reg := &RoomRegistry{
		rooms:    make(map[string]*Room),
		capacity: capacity,
		logger:   logger.With().Str("component", "registry").Logger(),
	}
	reg.evict = newExpiryScheduler(idleTTL, reg.removeIfEmpty, logger)
	return reg
}

// Create inserts a new empty room with the given optional password. A room is
// idle from the moment it exists, so creation arms its expiry timer
// immediately.
func (reg *RoomRegistry) Create(name, password string) CreateResult {
	reg.mu.Lock()
	if _, exists := reg.rooms[name]; exists {
		reg.mu.Unlock()
		return RoomAlreadyExists
	}
	reg.rooms[name] = newRoom(name, password, reg.capacity, reg.evict, reg.logger)
	reg.mu.Unlock()

	reg.evict.Arm(name)
	reg.logger.Info().Str("room", name).Bool("protected", password != "").Msg("Room created")
	return RoomCreated
}

// Lookup returns the room with the given name, if present.
func (reg *RoomRegistry) Lookup(name string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[name]
	return room, ok
}

// Remove drops the room unconditionally. Callers that may race a join must
// use the expiry path, which re-verifies emptiness first.
func (reg *RoomRegistry) Remove(name string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.rooms, name)
}

// removeIfEmpty is the expiry check: the room is evicted only if it is still
// present and still has no members, guarding against a join that raced the
// timer firing. The evicted flag is set under the room lock so a join holding
// a stale lookup observes it.
func (reg *RoomRegistry) removeIfEmpty(name string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[name]
	if !ok {
		return
	}

	room.mu.Lock()
	if len(room.members) > 0 {
		room.mu.Unlock()
		return
	}
	room.evicted = true
	room.mu.Unlock()

	delete(reg.rooms, name)
	reg.logger.Info().Str("room", name).Msg("Idle room evicted")
}

// ListSummaries returns a snapshot of (name, hasPassword) rows sorted by room
// name, so listings are stable per call.
func (reg *RoomRegistry) ListSummaries() []RoomSummary {
	reg.mu.RLock()
	summaries := make([]RoomSummary, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		summaries = append(summaries, RoomSummary{Name: room.name, HasPassword: room.HasPassword()})
	}
	reg.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries
}

// Stop cancels all pending expiry timers; used during shutdown.
func (reg *RoomRegistry) Stop() {
	reg.evict.StopAll()
}
