package netclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lawnchairsociety/tictactoe/internal/protocol"
)

var (
	// ErrBackpressure is returned by Submit when the single request slot
	// stays occupied for the whole submit timeout.
	ErrBackpressure = errors.New("request queue full")

	// ErrQueueClosed is returned by Submit after Close, or once the network
	// client has stopped reading requests.
	ErrQueueClosed = errors.New("request queue closed")
)

// DefaultSubmitTimeout bounds how long Submit waits for the request slot.
const DefaultSubmitTimeout = 2 * time.Second

// RequestQueue carries display requests to the network client. It holds at
// most one request so a fast display cannot run ahead of the connection.
type RequestQueue struct {
	ch        chan protocol.Request
	done      chan struct{}
	closeOnce sync.Once
	stopped   chan struct{} // the connection loop has returned
	stopOnce  sync.Once
	timeout   time.Duration
}

// NewRequestQueue creates a queue whose Submit gives up after timeout
// (zero selects DefaultSubmitTimeout).
func NewRequestQueue(timeout time.Duration) *RequestQueue {
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	return &RequestQueue{
		ch:      make(chan protocol.Request, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		timeout: timeout,
	}
}

// Submit hands req to the network client.
func (q *RequestQueue) Submit(ctx context.Context, req protocol.Request) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	case <-q.stopped:
		return ErrQueueClosed
	default:
	}

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case q.ch <- req:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-q.stopped:
		return ErrQueueClosed
	case <-timer.C:
		return ErrBackpressure
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tells the network client the display is gone. It has the same
// effect as submitting protocol.Closed but never blocks. Safe to call more
// than once.
func (q *RequestQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// stop marks the queue dead once nothing will consume it again.
func (q *RequestQueue) stop() {
	q.stopOnce.Do(func() {
		close(q.stopped)
	})
}

// EventQueue is an unbounded FIFO of events for the display. Push never
// blocks, so the network client is never held up by a slow display.
type EventQueue struct {
	mu    sync.Mutex
	items []protocol.Event
	ready chan struct{}
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{ready: make(chan struct{}, 1)}
}

// Push appends an event.
func (q *EventQueue) Push(ev protocol.Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// TryNext pops the oldest event without waiting.
func (q *EventQueue) TryNext() (protocol.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return protocol.Event{}, false
	}
	ev := q.items[0]
	q.items[0] = protocol.Event{}
	q.items = q.items[1:]
	return ev, true
}

// Next blocks until an event is available or ctx is done.
func (q *EventQueue) Next(ctx context.Context) (protocol.Event, error) {
	for {
		if ev, ok := q.TryNext(); ok {
			return ev, nil
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			return protocol.Event{}, ctx.Err()
		}
	}
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
