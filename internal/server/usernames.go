// Package server enforces process-wide uniqueness of active usernames.
package server

import "sync"

// UsernameRegistry is the set of usernames currently held by live sessions.
// A name is present iff some session negotiated it and has not yet torn down.
type UsernameRegistry struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewUsernameRegistry creates an empty username registry.
func NewUsernameRegistry() *UsernameRegistry {
	return &UsernameRegistry{names: make(map[string]struct{})}
}

// TryRegister atomically checks absence and inserts the name. It returns false
// without mutation if the name is already held; among concurrent callers with
// the same name exactly one succeeds.
func (u *UsernameRegistry) TryRegister(name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, taken := u.names[name]; taken {
		return false
	}
	u.names[name] = struct{}{}
	return true
}

// Release removes the name if present. Releasing a name that is not held is a
// no-op, so teardown paths can call it unconditionally.
func (u *UsernameRegistry) Release(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	delete(u.names, name)
}
