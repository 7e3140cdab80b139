// Package protocol defines the line-based tic-tac-toe wire vocabulary and the
// messages exchanged between the network client and the display.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Delimiter terminates every line on the wire.
const Delimiter = '\n'

// Action is the first token of a protocol line.
type Action string

const (
	// Server -> Client (control, answered by the client itself)
	Handshake Action = "TICTACTOE"

	// Server -> Client (forwarded to the display)
	Player  Action = "PLAYER"
	Invalid Action = "INVALID"
	Turn    Action = "TURN"
	Move    Action = "MOVE"
	Winner  Action = "WINNER"
)

// NoWinner is the WINNER token sent when the board fills up without a line.
const NoWinner = "NONE"

// Status tags an Event.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Error reasons carried by error events.
const (
	ReasonRefused = "connection refused"
	ReasonClosed  = "connection closed"
)

// Event is the only thing the display ever receives from the network.
type Event struct {
	Status Status
	Data   string
}

// OK wraps a game line.
func OK(line string) Event {
	return Event{Status: StatusOK, Data: line}
}

// Failure wraps a terminal connection error.
func Failure(reason string) Event {
	return Event{Status: StatusError, Data: reason}
}

// IsError reports whether the event is terminal.
func (e Event) IsError() bool {
	return e.Status == StatusError
}

func (e Event) String() string {
	return fmt.Sprintf("{%s, %q}", e.Status, e.Data)
}

// Request is something the display hands to the network client: either a
// complete line including its trailing delimiter, or Closed.
type Request string

// Closed is the sentinel the display sends when it is dismissed.
const Closed Request = "closed"

// HandshakeReply is written in answer to a Handshake line.
const HandshakeReply Request = Request(Handshake) + "\n"

// IsClosed reports whether the request is the close sentinel.
func (r Request) IsClosed() bool {
	return r == Closed
}

// FormatTurn builds the request that submits a move.
func FormatTurn(token string, row, col int) Request {
	return Request(fmt.Sprintf("%s %s %d %d\n", Turn, token, row, col))
}

// Message is a game line split into its action and arguments.
type Message struct {
	Action Action
	Args   []string
}

// ParseMessage splits a line on single spaces. It never fails; validating
// the argument count is up to the consumer.
func ParseMessage(line string) Message {
	parts := strings.Split(line, " ")
	return Message{Action: Action(parts[0]), Args: parts[1:]}
}

// TurnArgs extracts token, row and column from a TURN message.
func (m Message) TurnArgs() (token string, row, col int, err error) {
	if m.Action != Turn || len(m.Args) != 3 {
		return "", 0, 0, fmt.Errorf("malformed turn: %s %v", m.Action, m.Args)
	}
	row, err = strconv.Atoi(m.Args[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("malformed turn row: %w", err)
	}
	col, err = strconv.Atoi(m.Args[2])
	if err != nil {
		return "", 0, 0, fmt.Errorf("malformed turn column: %w", err)
	}
	return m.Args[0], row, col, nil
}

// Line renders an action and its arguments as one protocol line with the
// trailing delimiter.
func Line(action Action, args ...string) string {
	if len(args) == 0 {
		return string(action) + "\n"
	}
	return string(action) + " " + strings.Join(args, " ") + "\n"
}
