package netclient

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/tictactoe/internal/address"
	"github.com/lawnchairsociety/tictactoe/internal/protocol"
	"github.com/lawnchairsociety/tictactoe/internal/transport"
)

// listen starts a TCP listener on a random local port.
func listen(t *testing.T) (net.Listener, address.Address) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln, address.Address{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}
}

// accept waits for the client to connect.
func accept(t *testing.T, ln net.Listener) (net.Conn, *bufio.Reader) {
	t.Helper()
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	select {
	case conn := <-accepted:
		t.Cleanup(func() { conn.Close() })
		return conn, bufio.NewReader(conn)
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for client to connect")
		return nil, nil
	}
}

type harness struct {
	requests *RequestQueue
	events   *EventQueue
	result   chan error
	cancel   context.CancelFunc
}

// startClient runs the client against addr in the background.
func startClient(t *testing.T, addr address.Address, opts Options) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		requests: NewRequestQueue(time.Second),
		events:   NewEventQueue(),
		result:   make(chan error, 1),
		cancel:   cancel,
	}
	go func() {
		h.result <- Run(ctx, addr, h.requests, h.events, opts)
	}()
	t.Cleanup(cancel)
	return h
}

func (h *harness) nextEvent(t *testing.T) protocol.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := h.events.Next(ctx)
	if err != nil {
		t.Fatalf("Timed out waiting for event: %v", err)
	}
	return ev
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.result:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func readServerLine(t *testing.T, conn net.Conn, reader *bufio.Reader) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("Server failed to read line: %v", err)
	}
	return line
}

func TestRun_ConnectionRefused(t *testing.T) {
	ln, addr := listen(t)
	ln.Close()

	h := startClient(t, addr, DefaultOptions())

	if err := h.wait(t); err == nil {
		t.Error("Expected dial error")
	}
	ev := h.nextEvent(t)
	if ev != protocol.Failure(protocol.ReasonRefused) {
		t.Errorf("Event = %v, want connection refused", ev)
	}
	if n := h.events.Len(); n != 0 {
		t.Errorf("Expected exactly one event, %d more queued", n)
	}
	if err := h.requests.Submit(context.Background(), protocol.FormatTurn("X", 0, 0)); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Submit after refused dial = %v, want ErrQueueClosed", err)
	}
}

func TestRun_ForwardsLinesInOrderThenEOF(t *testing.T) {
	ln, addr := listen(t)
	h := startClient(t, addr, DefaultOptions())
	conn, _ := accept(t, ln)

	conn.Write([]byte("PLAYER X\nINVALID\nMOVE\nWINNER"))
	conn.Close()

	want := []protocol.Event{
		protocol.OK("PLAYER X"),
		protocol.OK("INVALID"),
		protocol.OK("MOVE"),
		protocol.Failure(protocol.ReasonClosed),
	}
	for _, w := range want {
		if ev := h.nextEvent(t); ev != w {
			t.Errorf("Event = %v, want %v", ev, w)
		}
	}

	if err := h.wait(t); err != nil {
		t.Errorf("Run returned %v, want nil on EOF", err)
	}
	if n := h.events.Len(); n != 0 {
		t.Errorf("%d events queued after the error event", n)
	}
}

func TestRun_EmptyStream(t *testing.T) {
	ln, addr := listen(t)
	h := startClient(t, addr, DefaultOptions())
	conn, _ := accept(t, ln)
	conn.Close()

	if ev := h.nextEvent(t); ev != protocol.Failure(protocol.ReasonClosed) {
		t.Errorf("Event = %v, want connection closed", ev)
	}
	h.wait(t)
	if n := h.events.Len(); n != 0 {
		t.Errorf("%d events queued after the error event", n)
	}
}

func TestRun_AnswersHandshake(t *testing.T) {
	ln, addr := listen(t)
	h := startClient(t, addr, DefaultOptions())
	conn, reader := accept(t, ln)

	conn.Write([]byte("TICTACTOE\n"))
	if line := readServerLine(t, conn, reader); line != "TICTACTOE\n" {
		t.Errorf("Handshake reply = %q, want %q", line, "TICTACTOE\n")
	}

	// The control line must not reach the display
	conn.Write([]byte("PLAYER A\n"))
	if ev := h.nextEvent(t); ev != protocol.OK("PLAYER A") {
		t.Errorf("First event = %v, want PLAYER A", ev)
	}
}

func TestRun_TurnSubmission(t *testing.T) {
	ln, addr := listen(t)
	h := startClient(t, addr, DefaultOptions())
	conn, reader := accept(t, ln)

	conn.Write([]byte("PLAYER A\nMOVE\n"))
	h.nextEvent(t)
	h.nextEvent(t)

	if err := h.requests.Submit(context.Background(), protocol.FormatTurn("A", 1, 2)); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if line := readServerLine(t, conn, reader); line != "TURN A 1 2\n" {
		t.Errorf("Server received %q, want %q", line, "TURN A 1 2\n")
	}
}

func TestRun_WritesInSubmissionOrder(t *testing.T) {
	ln, addr := listen(t)
	h := startClient(t, addr, DefaultOptions())
	conn, reader := accept(t, ln)

	var want []string
	for i := 0; i < 5; i++ {
		req := protocol.FormatTurn("X", i%3, i/3)
		want = append(want, string(req))
		if err := h.requests.Submit(context.Background(), req); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}

	for i, w := range want {
		if line := readServerLine(t, conn, reader); line != w {
			t.Errorf("Write %d = %q, want %q", i, line, w)
		}
	}
}

func TestRun_DisplayClosed(t *testing.T) {
	ln, addr := listen(t)
	h := startClient(t, addr, DefaultOptions())
	conn, reader := accept(t, ln)

	if err := h.requests.Submit(context.Background(), protocol.FormatTurn("O", 0, 0)); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := h.requests.Submit(context.Background(), protocol.Closed); err != nil {
		t.Fatalf("Submit closed failed: %v", err)
	}

	if err := h.wait(t); err != nil {
		t.Errorf("Run returned %v, want nil", err)
	}

	// The queued move still goes out before the socket closes
	if line := readServerLine(t, conn, reader); line != "TURN O 0 0\n" {
		t.Errorf("Server received %q", line)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := reader.ReadString('\n'); err == nil {
		t.Error("Expected connection to be closed")
	}

	// Lines arriving after close are not forwarded
	conn.Write([]byte("MOVE\n"))
	time.Sleep(50 * time.Millisecond)
	if n := h.events.Len(); n != 0 {
		t.Errorf("Display received %d events after closing", n)
	}
}

func TestRun_QueueCloseStopsClient(t *testing.T) {
	ln, addr := listen(t)
	h := startClient(t, addr, DefaultOptions())
	accept(t, ln)

	h.requests.Close()
	if err := h.wait(t); err != nil {
		t.Errorf("Run returned %v, want nil", err)
	}
	if err := h.requests.Submit(context.Background(), protocol.Closed); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Submit after Close = %v, want ErrQueueClosed", err)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ln, addr := listen(t)
	h := startClient(t, addr, DefaultOptions())
	accept(t, ln)

	h.cancel()
	if err := h.wait(t); err != nil {
		t.Errorf("Run returned %v, want nil", err)
	}
	if n := h.events.Len(); n != 0 {
		t.Errorf("Cancellation produced %d events", n)
	}
}

func TestRun_WebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	replies := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("TICTACTOE"))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		replies <- string(message)
		conn.WriteMessage(websocket.TextMessage, []byte("PLAYER O\nMOVE"))
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	hostPort := strings.TrimPrefix(server.URL, "http://")
	host, portStr, _ := net.SplitHostPort(hostPort)
	port, _ := strconv.Atoi(portStr)

	opts := DefaultOptions()
	opts.Transport = transport.KindWebSocket
	h := startClient(t, address.Address{Host: host, Port: port}, opts)

	select {
	case reply := <-replies:
		if reply != "TICTACTOE\n" {
			t.Errorf("Handshake reply = %q", reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("No handshake reply")
	}

	want := []protocol.Event{
		protocol.OK("PLAYER O"),
		protocol.OK("MOVE"),
		protocol.Failure(protocol.ReasonClosed),
	}
	for _, w := range want {
		if ev := h.nextEvent(t); ev != w {
			t.Errorf("Event = %v, want %v", ev, w)
		}
	}
}
