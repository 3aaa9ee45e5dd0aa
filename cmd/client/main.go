// Command client is an interactive terminal client for the Parley chat
// server. It prints every server line, and when the server challenges for a
// room password it prompts locally and resends the join with the password.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
)

const passwordPrompt = "Please Enter the password for room "

var addr = flag.String("addr", "localhost:4000", "address of the chat server")

type joinTracker struct {
	mu          sync.Mutex
	lastRoom    string
	pendingRoom string
}

func (j *joinTracker) noteJoin(room string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastRoom = room
}

func (j *joinTracker) challenge() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pendingRoom = j.lastRoom
}

// resolve turns raw user input into the protocol line to send, consuming a
// pending password challenge if one is outstanding.
func (j *joinTracker) resolve(input string) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.pendingRoom != "" {
		line := "join " + j.pendingRoom + " " + input
		j.pendingRoom = ""
		return line
	}

	tokens := strings.SplitN(input, " ", 3)
	if tokens[0] == "join" && len(tokens) > 1 {
		j.lastRoom = tokens[1]
	}
	return input
}

func main() {
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	tracker := &joinTracker{}
	done := make(chan struct{})

	go func() {
		defer close(done)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			line := scanner.Text()
			fmt.Println(line)

			if strings.HasPrefix(line, passwordPrompt) {
				tracker.challenge()
				fmt.Print("Enter password: ")
			}
		}
	}()

	fmt.Print("Enter the Username: ")

	stdin := bufio.NewScanner(os.Stdin)
	for stdin.Scan() {
		select {
		case <-done:
			return
		default:
		}

		input := stdin.Text()
		line := tracker.resolve(input)

		if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
			fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
			return
		}

		if strings.EqualFold(input, "exit") {
			break
		}
	}

	<-done
}
