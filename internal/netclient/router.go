package netclient

import (
	"github.com/lawnchairsociety/tictactoe/internal/logger"
	"github.com/lawnchairsociety/tictactoe/internal/protocol"
)

// handleChunk routes one framed read. It returns false when the connection
// loop must stop.
func (s *session) handleChunk(chunk protocol.Chunk) bool {
	if chunk.IsEOF() {
		logger.Info("Server closed the connection", "remote_addr", s.conn.RemoteAddr())
		s.fail(protocol.ReasonClosed)
		return false
	}

	logger.Debug("Received line", "line", chunk.Line)

	// The handshake is answered here and never reaches the display
	if chunk.Line == string(protocol.Handshake) {
		s.enqueue(protocol.HandshakeReply)
		return true
	}

	s.events.Push(protocol.OK(chunk.Line))
	return true
}

// handleRequest routes one display request.
func (s *session) handleRequest(req protocol.Request) {
	if req.IsClosed() {
		s.beginClose()
		return
	}
	s.enqueue(req)
}

func (s *session) beginClose() {
	if !s.closing {
		logger.Info("Display closed, disconnecting", "queued_writes", len(s.pending))
		s.closing = true
	}
}

// enqueue appends a line to the write FIFO.
func (s *session) enqueue(req protocol.Request) {
	s.pending = append(s.pending, req)
}

// fail reports a terminal error to the display. Only the first call has
// any effect.
func (s *session) fail(reason string) {
	if s.failed {
		return
	}
	s.failed = true
	s.events.Push(protocol.Failure(reason))
}
