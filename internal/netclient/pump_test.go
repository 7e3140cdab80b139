package netclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lawnchairsociety/tictactoe/internal/protocol"
)

// fakeConn blocks reads until lines are fed or a deadline interrupts them,
// and records the order of calls so shutdown can be checked.
type fakeConn struct {
	lines    chan []byte
	wake     chan struct{}
	writeErr error

	mu        sync.Mutex
	written   []string
	reading   int
	maxReads  int
	closed    bool
	readsLive bool // a read was still running when Close was called
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		lines: make(chan []byte, 16),
		wake:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadLine() ([]byte, error) {
	c.mu.Lock()
	c.reading++
	if c.reading > c.maxReads {
		c.maxReads = c.reading
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.reading--
		c.mu.Unlock()
	}()

	select {
	case line := <-c.lines:
		return line, nil
	case <-c.wake:
		return nil, errors.New("i/o timeout")
	}
}

func (c *fakeConn) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, string(data))
	return nil
}

func (c *fakeConn) SetDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.wake:
	default:
		close(c.wake)
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.readsLive = c.reading > 0
	return nil
}

func (c *fakeConn) RemoteAddr() string { return "fake:0" }

func (c *fakeConn) waitWritten(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		got := len(c.written)
		c.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d writes", n)
}

func serveFake(conn *fakeConn) (*RequestQueue, *EventQueue, context.CancelFunc, chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	requests := NewRequestQueue(time.Second)
	events := NewEventQueue()
	result := make(chan error, 1)
	go func() {
		result <- Serve(ctx, conn, requests, events, DefaultOptions())
	}()
	return requests, events, cancel, result
}

func TestServe_ShutdownWaitsForPendingRead(t *testing.T) {
	conn := newFakeConn()
	requests, _, cancel, result := serveFake(conn)
	defer cancel()

	conn.lines <- []byte("MOVE\n")
	time.Sleep(20 * time.Millisecond)

	requests.Close()
	select {
	case <-result:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if !conn.closed {
		t.Error("Connection was not closed")
	}
	if conn.readsLive {
		t.Error("Connection closed while a read was still in flight")
	}
	if conn.maxReads != 1 {
		t.Errorf("Max concurrent reads = %d, want 1", conn.maxReads)
	}
}

func TestServe_WriteFailure(t *testing.T) {
	conn := newFakeConn()
	conn.writeErr = errors.New("broken pipe")
	requests, events, cancel, result := serveFake(conn)
	defer cancel()

	if err := requests.Submit(context.Background(), protocol.FormatTurn("X", 0, 0)); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case err := <-result:
		if err == nil {
			t.Error("Expected write error from Serve")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}

	ev, ok := events.TryNext()
	if !ok || ev != protocol.Failure(protocol.ReasonClosed) {
		t.Errorf("Event = %v (%v), want connection closed", ev, ok)
	}
	if _, ok := events.TryNext(); ok {
		t.Error("More than one event after write failure")
	}
}

func TestServe_WritesFollowArrivalOrder(t *testing.T) {
	conn := newFakeConn()
	requests, events, cancel, _ := serveFake(conn)
	defer cancel()

	requests.Submit(context.Background(), protocol.FormatTurn("X", 2, 2))
	conn.waitWritten(t, 1)
	conn.lines <- []byte("TICTACTOE\n")
	conn.lines <- []byte("MOVE\n")

	ctx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	ev, err := events.Next(ctx)
	if err != nil || ev != protocol.OK("MOVE") {
		t.Fatalf("Event = %v, %v; want MOVE", ev, err)
	}

	conn.waitWritten(t, 2)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	want := []string{"TURN X 2 2\n", "TICTACTOE\n"}
	if len(conn.written) != len(want) {
		t.Fatalf("Written = %q, want %q", conn.written, want)
	}
	for i := range want {
		if conn.written[i] != want[i] {
			t.Errorf("Write %d = %q, want %q", i, conn.written[i], want[i])
		}
	}
}

func TestServe_CloseKeepsRequestsQueuedBeforeIt(t *testing.T) {
	// The select between a queued request and Close is random, so repeat.
	for i := 0; i < 50; i++ {
		conn := newFakeConn()
		requests := NewRequestQueue(time.Second)
		if err := requests.Submit(context.Background(), protocol.FormatTurn("X", 1, 2)); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		requests.Close()

		if err := Serve(context.Background(), conn, requests, NewEventQueue(), DefaultOptions()); err != nil {
			t.Fatalf("Serve() error = %v", err)
		}

		conn.mu.Lock()
		written := conn.written
		conn.mu.Unlock()
		if len(written) != 1 || written[0] != "TURN X 1 2\n" {
			t.Fatalf("run %d: written = %q, want the queued turn", i, written)
		}
	}
}

func TestServe_SubmitAfterEOFFailsFast(t *testing.T) {
	conn := newFakeConn()
	requests, _, cancel, result := serveFake(conn)
	defer cancel()

	conn.lines <- []byte("")
	select {
	case <-result:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after EOF")
	}

	start := time.Now()
	err := requests.Submit(context.Background(), protocol.FormatTurn("X", 0, 0))
	if !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Submit after EOF = %v, want ErrQueueClosed", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Submit waited for the full timeout")
	}
}
