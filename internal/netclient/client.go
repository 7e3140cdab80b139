// Package netclient connects to a tic-tac-toe server and bridges the line
// protocol to two queues: requests from the display and events back to it.
//
// Run is the only entry point. It dials, then pumps the connection until
// the server goes away, the display closes, or the context is cancelled.
// Connection failures are delivered to the display as a single error event
// and are never returned as panics or left unreported.
package netclient

import (
	"context"
	"time"

	"github.com/lawnchairsociety/tictactoe/internal/address"
	"github.com/lawnchairsociety/tictactoe/internal/logger"
	"github.com/lawnchairsociety/tictactoe/internal/protocol"
	"github.com/lawnchairsociety/tictactoe/internal/transport"
)

// Options tunes the connection.
type Options struct {
	Transport     transport.Kind
	WebSocketPath string
	DialTimeout   time.Duration
	DrainTimeout  time.Duration // how long queued writes may take to flush on close
	MaxLineLength int
}

// DefaultOptions returns the settings used when no config file is present.
func DefaultOptions() Options {
	return Options{
		Transport:     transport.KindTCP,
		WebSocketPath: transport.DefaultWebSocketPath,
		DialTimeout:   5 * time.Second,
		DrainTimeout:  time.Second,
		MaxLineLength: transport.DefaultMaxLineLength,
	}
}

// Run connects to addr and serves the connection. If the connection cannot
// be opened, a "connection refused" event is pushed and the dial error is
// returned. A nil return means the session ended normally (server EOF,
// display closed, or ctx cancelled).
func Run(ctx context.Context, addr address.Address, requests *RequestQueue, events *EventQueue, opts Options) error {
	conn, err := transport.Dial(ctx, addr.String(), transport.DialOptions{
		Kind:          opts.Transport,
		Path:          opts.WebSocketPath,
		Timeout:       opts.DialTimeout,
		MaxLineLength: opts.MaxLineLength,
	})
	if err != nil {
		logger.Warning("Connection failed",
			"address", addr.String(),
			"transport", opts.Transport,
			"refused", transport.IsRefused(err),
			"error", err)
		events.Push(protocol.Failure(protocol.ReasonRefused))
		requests.stop()
		return err
	}

	logger.Info("Connected to server", "remote_addr", conn.RemoteAddr(), "transport", opts.Transport)
	return Serve(ctx, conn, requests, events, opts)
}

// Serve pumps an already open connection and takes ownership of it: conn is
// closed before Serve returns.
func Serve(ctx context.Context, conn transport.Conn, requests *RequestQueue, events *EventQueue, opts Options) error {
	drain := opts.DrainTimeout
	if drain <= 0 {
		drain = DefaultOptions().DrainTimeout
	}
	s := &session{
		conn:         conn,
		requests:     requests,
		events:       events,
		drainTimeout: drain,
	}
	return s.pump(ctx)
}
