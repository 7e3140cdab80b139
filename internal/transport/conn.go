// Package transport provides the duplex line streams used by the client and
// the reference server. TCP and WebSocket connections look the same to
// callers.
package transport

import (
	"errors"
	"time"
)

// ErrLineTooLong is returned by ReadLine when a line exceeds the configured
// maximum length.
var ErrLineTooLong = errors.New("line too long")

// DefaultMaxLineLength bounds a single protocol line.
const DefaultMaxLineLength = 4096

// Conn abstracts a line-oriented connection. One goroutine may read while
// another writes; concurrent reads (or concurrent writes) are not allowed.
type Conn interface {
	// ReadLine blocks until one line attempt completes. The returned bytes
	// include the trailing newline when the line was complete.
	ReadLine() ([]byte, error)

	// Write sends data and flushes it.
	Write(data []byte) error

	// SetDeadline interrupts blocked reads and writes once t passes.
	SetDeadline(t time.Time) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the peer's address for logging.
	RemoteAddr() string
}
