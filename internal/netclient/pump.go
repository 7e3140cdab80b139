package netclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lawnchairsociety/tictactoe/internal/logger"
	"github.com/lawnchairsociety/tictactoe/internal/protocol"
	"github.com/lawnchairsociety/tictactoe/internal/transport"
)

// session owns one connection for its whole lifetime.
type session struct {
	conn         transport.Conn
	requests     *RequestQueue
	events       *EventQueue
	drainTimeout time.Duration

	pending  []protocol.Request // writes not yet started
	closing  bool               // display is gone; flush writes, then stop
	failed   bool               // the error event has been sent
	inflight sync.WaitGroup     // read/write goroutines still running
}

// pump drives the connection until EOF, a write failure, the display
// closing, or ctx being cancelled. At most one read and one write are in
// flight at any time. The connection is always closed on return.
func (s *session) pump(ctx context.Context) error {
	readCh := make(chan protocol.Chunk, 1)
	writeCh := make(chan error, 1)
	reading, writing := false, false
	var drain <-chan time.Time

	defer s.shutdown()
	defer s.requests.stop()

	for {
		if !reading && !s.closing {
			s.startRead(readCh)
			reading = true
		}
		if !writing && len(s.pending) > 0 {
			s.startWrite(s.pending[0], writeCh)
			s.pending = s.pending[1:]
			writing = true
		}

		requests, done := s.requests.ch, s.requests.done
		if s.closing {
			if !writing {
				return nil
			}
			if drain == nil {
				drain = time.After(s.drainTimeout)
			}
			requests, done = nil, nil
		}

		select {
		case chunk := <-readCh:
			reading = false
			if s.closing {
				continue
			}
			if !s.handleChunk(chunk) {
				return nil
			}

		case err := <-writeCh:
			writing = false
			if err != nil {
				logger.Warning("Write failed", "remote_addr", s.conn.RemoteAddr(), "error", err)
				if !s.closing {
					s.fail(protocol.ReasonClosed)
				}
				return fmt.Errorf("write to %s failed: %w", s.conn.RemoteAddr(), err)
			}

		case req := <-requests:
			s.handleRequest(req)

		case <-done:
			// Requests submitted before Close still go out.
			s.drainRequests()
			s.beginClose()

		case <-drain:
			logger.Warning("Gave up flushing writes", "dropped", len(s.pending), "timeout", s.drainTimeout)
			return nil

		case <-ctx.Done():
			logger.Debug("Connection loop cancelled", "error", ctx.Err())
			return nil
		}
	}
}

// drainRequests routes every request already sitting in the queue.
func (s *session) drainRequests() {
	for {
		select {
		case req := <-s.requests.ch:
			s.handleRequest(req)
		default:
			return
		}
	}
}

// startRead schedules a single line read.
func (s *session) startRead(out chan<- protocol.Chunk) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		out <- protocol.Frame(s.conn.ReadLine())
	}()
}

// startWrite schedules a single write and flush.
func (s *session) startWrite(req protocol.Request, out chan<- error) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		out <- s.conn.Write([]byte(req))
	}()
}

// shutdown cancels whatever is still in flight, waits for it to finish and
// only then closes the connection. Errors from the cancelled operations are
// expected and dropped.
func (s *session) shutdown() {
	if err := s.conn.SetDeadline(time.Now()); err != nil {
		logger.Debug("Failed to interrupt pending I/O", "error", err)
	}
	s.inflight.Wait()

	if err := s.conn.Close(); err != nil {
		logger.Debug("Error closing connection", "error", err)
	}
	logger.Info("Disconnected", "remote_addr", s.conn.RemoteAddr())
}
