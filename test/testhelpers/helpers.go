// Package testhelpers provides common utilities and helper functions for
// testing the Parley server.
//
// This package contains reusable test utilities shared across integration
// tests: dialing the line protocol over TCP, sending commands, and asserting
// on server replies with deadlines.
package testhelpers

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"
)

// ChatClient is a test-side client speaking the newline-delimited protocol
// over a TCP connection.
type ChatClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to the chat server at addr and fails the test on error.
func Dial(t *testing.T, addr string) *ChatClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dialing %s: %v", addr, err)
	}
	return &ChatClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

// Send writes one protocol line.
func (c *ChatClient) Send(line string) {
	c.t.Helper()

	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		c.t.Fatalf("sending %q: %v", line, err)
	}
}

// ReadLine returns the next server line, waiting at most timeout.
func (c *ChatClient) ReadLine(timeout time.Duration) (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Expect reads the next line and fails the test unless it matches exactly.
func (c *ChatClient) Expect(want string) {
	c.t.Helper()

	got, err := c.ReadLine(2 * time.Second)
	if err != nil {
		c.t.Fatalf("waiting for %q: %v", want, err)
	}
	if got != want {
		c.t.Fatalf("got line %q, want %q", got, want)
	}
}

// ExpectNoLine fails the test if any line arrives within the window.
func (c *ChatClient) ExpectNoLine(window time.Duration) {
	c.t.Helper()

	got, err := c.ReadLine(window)
	if err == nil {
		c.t.Fatalf("unexpected line received: %q", got)
	}
	if netErr, ok := err.(net.Error); !ok || !netErr.Timeout() {
		c.t.Fatalf("read failed with %v, want timeout", err)
	}
}

// Login negotiates a username and asserts it was accepted.
func (c *ChatClient) Login(name string) {
	c.t.Helper()

	c.Send(name)
	c.Expect("Username accepted: " + name)
}

// Close tears the connection down.
func (c *ChatClient) Close() {
	_ = c.conn.Close()
}
