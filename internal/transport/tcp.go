package transport

import (
	"bufio"
	"errors"
	"net"
	"time"
)

// TCPConn wraps a raw TCP connection carrying newline-delimited lines.
type TCPConn struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

// NewTCPConn creates a TCPConn. Lines longer than maxLineLength bytes fail
// with ErrLineTooLong; zero selects DefaultMaxLineLength.
func NewTCPConn(conn net.Conn, maxLineLength int) *TCPConn {
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}
	return &TCPConn{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, maxLineLength),
		writer: bufio.NewWriter(conn),
	}
}

// ReadLine reads up to and including the next newline. At end of stream the
// partial data (possibly empty) is returned along with the error.
func (c *TCPConn) ReadLine() ([]byte, error) {
	line, err := c.reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return nil, ErrLineTooLong
	}
	// ReadSlice's buffer is reused by the next read
	out := make([]byte, len(line))
	copy(out, line)
	return out, err
}

// Write writes data and flushes the buffered writer.
func (c *TCPConn) Write(data []byte) error {
	if _, err := c.writer.Write(data); err != nil {
		return err
	}
	return c.writer.Flush()
}

// SetDeadline sets the read and write deadline on the socket.
func (c *TCPConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// Close closes the underlying connection.
func (c *TCPConn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *TCPConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
