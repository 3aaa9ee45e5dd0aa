// Package server parses inbound command lines and routes them to the
// registries, rooms, and sessions via the dispatcher state machine.
package server

import (
	"strings"

	"github.com/rs/zerolog"
)

type connState int

const (
	stateConnecting connState = iota
	stateActive
	stateClosed
)

var helpLines = []string{
	"Available commands:",
	"  create <room> [password]   create a room",
	"  join <room> [password]     join a room",
	"  leave                      leave the current room",
	"  message <text>             send a message to the current room",
	"  show rooms                 list active rooms",
	"  help                       show this help",
	"  exit                       disconnect",
}

// dispatcher drives one connection through the Connecting -> Active -> Closed
// state machine. It owns its session exclusively; all membership changes for
// that session run on the dispatcher's goroutine.
type dispatcher struct {
	usernames *UsernameRegistry
	rooms     *RoomRegistry
	session   *Session
	limiter   *rateLimiter
	state     connState
	logger    zerolog.Logger
}

func newDispatcher(usernames *UsernameRegistry, rooms *RoomRegistry, s *Session, limit RateLimitConfig, logger zerolog.Logger) *dispatcher {
	return &dispatcher{
		usernames: usernames,
		rooms:     rooms,
		session:   s,
		limiter:   newRateLimiter(limit.Burst, limit.RefillInterval),
		state:     stateConnecting,
		logger: logger.With().
			Str("component", "dispatcher").
			Str("session", s.id).
			Str("addr", s.transport.RemoteAddr()).
			Logger(),
	}
}

// run reads and dispatches lines until the connection closes, then performs
// teardown exactly once regardless of which path ended the loop.
func (d *dispatcher) run() {
	for d.state != stateClosed {
		line, err := d.session.transport.ReadLine()
		if err != nil {
			if !isExpectedCloseError(err) {
				d.logger.Warn().Err(err).Msg("Read failed")
			}
			break
		}
		d.dispatch(line)
	}
	d.teardown()
}

// teardown leaves the current room, releases the username, and closes the
// session, in that order.
func (d *dispatcher) teardown() {
	d.state = stateClosed

	if room := d.session.room; room != nil {
		room.Leave(d.session)
	}
	if d.session.username != "" {
		d.usernames.Release(d.session.username)
	}
	d.session.close()

	d.logger.Info().Str("user", d.session.username).Msg("Session closed")
}

func (d *dispatcher) dispatch(line string) {
	line = strings.TrimSpace(line)

	switch d.state {
	case stateConnecting:
		d.negotiateUsername(line)
	case stateActive:
		d.handleCommand(line)
	case stateClosed:
	}
}

// negotiateUsername handles the first protocol phase. A rejected name keeps
// the connection in Connecting so the client can retry.
func (d *dispatcher) negotiateUsername(name string) {
	if name == "" {
		d.reply("Username cannot be empty.")
		return
	}

	if !d.usernames.TryRegister(name) {
		d.reply("Username is already taken.")
		return
	}

	d.session.username = name
	d.state = stateActive
	d.reply("Username accepted: " + name)
	d.logger.Info().Str("user", name).Msg("Username negotiated")
}

func (d *dispatcher) handleCommand(line string) {
	if line == "" {
		return
	}

	command, rest := splitCommand(line)

	switch command {
	case "create":
		d.handleCreate(rest)
	case "join":
		d.handleJoin(rest)
	case "leave":
		d.handleLeave()
	case "message":
		d.handleMessage(rest)
	case "show":
		if rest == "rooms" {
			d.handleShowRooms()
			return
		}
		d.reply("Unknown command: " + line)
	case "help", "action":
		d.handleHelp()
	case "exit":
		d.state = stateClosed
	default:
		d.reply("Unknown command: " + command)
	}
}

func (d *dispatcher) handleCreate(args string) {
	name, password := splitNameAndPassword(args)
	if name == "" {
		d.reply("Usage: create <room> [password]")
		return
	}

	switch d.rooms.Create(name, password) {
	case RoomCreated:
		d.reply("Created room: " + name)
	case RoomAlreadyExists:
		d.reply("Room already exists: " + name)
	}
}

func (d *dispatcher) handleJoin(args string) {
	name, password := splitNameAndPassword(args)
	if name == "" {
		d.reply("Usage: join <room> [password]")
		return
	}

	room, ok := d.rooms.Lookup(name)
	if !ok {
		d.reply("Room does not exist: " + name)
		return
	}

	switch room.Join(d.session, password) {
	case Joined:
		d.reply("Joined room: " + name)
	case NeedsPassword:
		d.reply("Please Enter the password for room " + name)
	case WrongPassword:
		d.reply("Password incorrect")
	case RoomFull:
		d.reply("Room is full.")
	case RoomNotFound:
		d.reply("Room does not exist: " + name)
	}
}

func (d *dispatcher) handleLeave() {
	if room := d.session.room; room != nil {
		room.Leave(d.session)
	}
}

// handleMessage broadcasts to the current room. Messaging while in no room is
// deliberately a silent no-op.
func (d *dispatcher) handleMessage(text string) {
	room := d.session.room
	if room == nil || text == "" {
		return
	}

	if !d.limiter.allow() {
		d.reply("Rate limit exceeded, message dropped.")
		return
	}

	room.Broadcast(d.session, text)
}

func (d *dispatcher) handleShowRooms() {
	d.reply("Active chat rooms:")
	for _, summary := range d.rooms.ListSummaries() {
		if summary.HasPassword {
			d.reply("- " + summary.Name + " (Password protected)")
		} else {
			d.reply("- " + summary.Name + " (No password)")
		}
	}
}

func (d *dispatcher) handleHelp() {
	for _, line := range helpLines {
		d.reply(line)
	}
}

// reply queues a line to the dispatcher's own session. A session that cannot
// accept its own replies is torn down like any other failed delivery.
func (d *dispatcher) reply(line string) {
	if !d.session.deliver(line) {
		d.session.kick()
	}
}

// splitCommand separates the first token from the remainder of the line.
func splitCommand(line string) (command, rest string) {
	parts := strings.SplitN(line, " ", 2)
	command = parts[0]
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}
	return command, rest
}

// splitNameAndPassword parses "<name> [password]" argument text.
func splitNameAndPassword(args string) (name, password string) {
	fields := strings.Fields(args)
	if len(fields) > 0 {
		name = fields[0]
	}
	if len(fields) > 1 {
		password = fields[1]
	}
	return name, password
}
