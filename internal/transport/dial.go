package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Kind selects the wire transport.
type Kind string

const (
	KindTCP       Kind = "tcp"
	KindWebSocket Kind = "websocket"
)

// DefaultWebSocketPath is where the reference server accepts upgrades.
const DefaultWebSocketPath = "/ws"

// DialOptions controls how Dial opens a connection.
type DialOptions struct {
	Kind          Kind
	Path          string // WebSocket only
	Timeout       time.Duration
	MaxLineLength int
}

// Dial opens a connection to addr (host:port).
func Dial(ctx context.Context, addr string, opts DialOptions) (Conn, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	switch opts.Kind {
	case KindWebSocket:
		return dialWebSocket(ctx, addr, opts)
	case KindTCP, "":
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		return NewTCPConn(conn, opts.MaxLineLength), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.Kind)
	}
}

func dialWebSocket(ctx context.Context, addr string, opts DialOptions) (Conn, error) {
	path := opts.Path
	if path == "" {
		path = DefaultWebSocketPath
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: path}

	dialer := websocket.Dialer{
		HandshakeTimeout: opts.Timeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", u.String(), err)
	}
	return NewWebSocketConn(conn, int64(opts.MaxLineLength)), nil
}

// IsRefused reports whether a dial error means nothing was listening.
func IsRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
