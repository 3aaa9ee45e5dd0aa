// Package server defines shared protocol result types and utility helpers that
// are reused across room and dispatcher logic.
package server

import (
	"errors"
	"io"
	"strings"
)

// CreateResult is the outcome of a room creation attempt.
type CreateResult int

const (
	// RoomCreated means the room was inserted into the registry.
	RoomCreated CreateResult = iota
	// RoomAlreadyExists means a room with that name is already present.
	RoomAlreadyExists
)

// JoinResult is the outcome of a join attempt. Any outcome other than Joined
// leaves membership completely unchanged.
type JoinResult int

const (
	// Joined means the session is now a member of the room.
	Joined JoinResult = iota
	// NeedsPassword means the room is protected and no password was supplied.
	NeedsPassword
	// WrongPassword means the supplied password did not match.
	WrongPassword
	// RoomFull means the room is at capacity.
	RoomFull
	// RoomNotFound means the room was evicted before the join took its lock.
	RoomNotFound
)

// RoomSummary is one row of the room listing.
type RoomSummary struct {
	Name        string
	HasPassword bool
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "connection reset by peer") ||
		strings.Contains(errStr, "websocket: close") ||
		strings.Contains(errStr, "broken pipe")
}
