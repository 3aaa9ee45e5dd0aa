// Package server implements the core room and session engine for the Parley chat service.
//
// The implementation is organized into specialized files for configuration,
// registries, rooms, sessions, command dispatching, and transports to keep the
// codebase maintainable and testable as the project grows.
package server
