package referee

import (
	"sync"

	"github.com/lawnchairsociety/tictactoe/internal/protocol"
	"github.com/lawnchairsociety/tictactoe/internal/transport"
)

// seat is one connected player. A single reader goroutine feeds lines; the
// lines channel is closed when the peer goes away.
type seat struct {
	conn  transport.Conn
	token string

	lines     chan string
	done      chan struct{} // reader exited
	closed    chan struct{}
	closeOnce sync.Once
}

func newSeat(conn transport.Conn) *seat {
	return &seat{
		conn:   conn,
		lines:  make(chan string, 8),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (p *seat) readLoop() {
	defer close(p.done)
	defer close(p.lines)
	for {
		chunk := protocol.Frame(p.conn.ReadLine())
		if chunk.IsEOF() {
			return
		}
		select {
		case p.lines <- chunk.Line:
		case <-p.closed:
			return
		}
	}
}

func (p *seat) send(action protocol.Action, args ...string) error {
	return p.conn.Write([]byte(protocol.Line(action, args...)))
}

// close is safe to call more than once; it unblocks the reader.
func (p *seat) close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.conn.Close()
	})
}

func (p *seat) String() string {
	return p.conn.RemoteAddr()
}
