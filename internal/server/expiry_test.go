package server

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testTTL = 25 * time.Millisecond

func roomPresent(reg *RoomRegistry, name string) func() bool {
	return func() bool {
		_, ok := reg.Lookup(name)
		return ok
	}
}

func roomAbsent(reg *RoomRegistry, name string) func() bool {
	return func() bool {
		_, ok := reg.Lookup(name)
		return !ok
	}
}

func TestEmptyRoomEvictedAfterTTL(t *testing.T) {
	reg := newTestRegistry(5, testTTL)

	reg.Create("ghost", "")
	waitFor(t, time.Second, roomAbsent(reg, "ghost"), "empty room was never evicted")
}

func TestJoinCancelsPendingEviction(t *testing.T) {
	reg := newTestRegistry(5, testTTL)

	reg.Create("lobby", "")
	room, _ := reg.Lookup("lobby")
	room.Join(newTestSession("bob"), "")

	time.Sleep(4 * testTTL)

	if !roomPresent(reg, "lobby")() {
		t.Fatal("occupied room was evicted")
	}
}

func TestRoomEvictedAfterLastLeave(t *testing.T) {
	reg := newTestRegistry(5, testTTL)

	reg.Create("lobby", "")
	room, _ := reg.Lookup("lobby")
	s := newTestSession("bob")
	room.Join(s, "")

	time.Sleep(4 * testTTL)
	room.Leave(s)

	waitFor(t, time.Second, roomAbsent(reg, "lobby"), "emptied room was never evicted")
}

func TestEvictionRecheckSparesRejoinedRoom(t *testing.T) {
	reg := newTestRegistry(5, testTTL)

	reg.Create("lobby", "")
	room, _ := reg.Lookup("lobby")
	s := newTestSession("bob")

	// Cycle membership repeatedly across the TTL boundary; the re-check at
	// fire time must never evict a room that has a member.
	for i := 0; i < 5; i++ {
		room.Join(s, "")
		time.Sleep(testTTL / 2)
		room.Leave(s)
		room.Join(s, "")
	}

	time.Sleep(2 * testTTL)
	if !roomPresent(reg, "lobby")() {
		t.Fatal("room with a member was evicted")
	}
}

func TestJoinOnEvictedRoomReportsNotFound(t *testing.T) {
	reg := newTestRegistry(5, testTTL)

	reg.Create("lobby", "")
	room, _ := reg.Lookup("lobby")

	// Hold the stale lookup across the eviction.
	waitFor(t, time.Second, roomAbsent(reg, "lobby"), "empty room was never evicted")

	if got := room.Join(newTestSession("bob"), ""); got != RoomNotFound {
		t.Fatalf("join on evicted room returned %v, want RoomNotFound", got)
	}
	if room.Len() != 0 {
		t.Fatal("join mutated membership of an evicted room")
	}
}

func TestSchedulerArmSupersedesAndCancelDisarms(t *testing.T) {
	fired := make(chan string, 8)
	sched := newExpiryScheduler(testTTL, func(name string) { fired <- name }, zerolog.Nop())

	sched.Arm("a")
	sched.Arm("a")
	sched.Arm("b")
	sched.Cancel("b")

	select {
	case name := <-fired:
		if name != "a" {
			t.Fatalf("fired for %q, want %q", name, "a")
		}
	case <-time.After(time.Second):
		t.Fatal("armed timer never fired")
	}

	select {
	case name := <-fired:
		t.Fatalf("unexpected extra firing for %q", name)
	case <-time.After(3 * testTTL):
	}
}
