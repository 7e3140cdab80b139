package transport

import (
	"bytes"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConn carries protocol lines as WebSocket text messages. A
// message may hold several lines; each is returned by its own ReadLine.
type WebSocketConn struct {
	conn    *websocket.Conn
	readBuf [][]byte // lines left over from a multi-line message
}

// NewWebSocketConn wraps conn and limits incoming messages to
// maxMessageSize bytes (zero selects DefaultMaxLineLength).
func NewWebSocketConn(conn *websocket.Conn, maxMessageSize int64) *WebSocketConn {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxLineLength
	}
	conn.SetReadLimit(maxMessageSize)
	return &WebSocketConn{conn: conn}
}

// ReadLine returns the next non-empty line with a newline appended, since
// every message is complete by construction. Empty messages are skipped.
func (c *WebSocketConn) ReadLine() ([]byte, error) {
	for len(c.readBuf) == 0 {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		for _, line := range bytes.Split(message, []byte{'\n'}) {
			line = bytes.TrimRight(line, "\r")
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			out := make([]byte, 0, len(line)+1)
			c.readBuf = append(c.readBuf, append(append(out, line...), '\n'))
		}
	}

	line := c.readBuf[0]
	c.readBuf = c.readBuf[1:]
	return line, nil
}

// Write sends data as a single text message.
func (c *WebSocketConn) Write(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// SetDeadline sets both the read and the write deadline.
func (c *WebSocketConn) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.conn.SetWriteDeadline(t)
}

// Close closes the WebSocket connection.
func (c *WebSocketConn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *WebSocketConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
