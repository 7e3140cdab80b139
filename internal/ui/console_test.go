package ui

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lawnchairsociety/tictactoe/internal/address"
	"github.com/lawnchairsociety/tictactoe/internal/game"
	"github.com/lawnchairsociety/tictactoe/internal/netclient"
)

// syncBuffer is a bytes.Buffer safe for one writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(b.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("output never contained %q:\n%s", want, b.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type consoleResult struct {
	state game.State
	err   error
}

func TestConsole_PlaysAGame(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer ln.Close()
	addr := address.Address{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	requests := netclient.NewRequestQueue(time.Second)
	events := netclient.NewEventQueue()
	go netclient.Run(ctx, addr, requests, events, netclient.DefaultOptions())

	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	defer conn.Close()
	server := bufio.NewReader(conn)

	inR, inW := io.Pipe()
	defer inW.Close()
	out := &syncBuffer{}

	done := make(chan consoleResult, 1)
	go func() {
		st, err := RunConsole(ctx, inR, out, requests, events)
		done <- consoleResult{st, err}
	}()

	conn.Write([]byte("PLAYER X\nMOVE\n"))
	out.waitFor(t, "It's your turn")

	io.WriteString(inW, "9 9\n")
	out.waitFor(t, "row and column must be 0, 1 or 2")

	io.WriteString(inW, "1 1\n")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := server.ReadString('\n')
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if line != "TURN X 1 1\n" {
		t.Fatalf("server got %q, want %q", line, "TURN X 1 1\n")
	}
	out.waitFor(t, "Opponent's turn")

	io.WriteString(inW, "0 0\n")
	out.waitFor(t, "You can't play there now")

	conn.Write([]byte("WINNER X\n"))

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("RunConsole() error = %v", res.err)
		}
		if res.state.Outcome() != game.OutcomeWon {
			t.Errorf("Outcome() = %s, want won", res.state.Outcome())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("console did not return after WINNER")
	}
	if !strings.Contains(out.String(), " X |") {
		t.Errorf("board not printed:\n%s", out.String())
	}
}

func TestConsole_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	addr := address.Address{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	requests := netclient.NewRequestQueue(time.Second)
	events := netclient.NewEventQueue()
	go netclient.Run(ctx, addr, requests, events, netclient.DefaultOptions())

	out := &syncBuffer{}
	inR, inW := io.Pipe()
	defer inW.Close()

	st, err := RunConsole(ctx, inR, out, requests, events)
	if err != nil {
		t.Fatalf("RunConsole() error = %v", err)
	}
	if st.Outcome() != game.OutcomeAborted {
		t.Errorf("Outcome() = %s, want aborted", st.Outcome())
	}
	if !strings.Contains(out.String(), "Disconnected: connection refused") {
		t.Errorf("output = %q", out.String())
	}
}

func TestConsole_QuitAndEOF(t *testing.T) {
	for _, input := range []string{"q\n", ""} {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		out := &syncBuffer{}
		_, err := RunConsole(ctx, strings.NewReader(input), out,
			netclient.NewRequestQueue(time.Second), netclient.NewEventQueue())
		cancel()
		if err != nil {
			t.Errorf("input %q: RunConsole() error = %v", input, err)
		}
	}
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		in       string
		row, col int
		wantErr  bool
	}{
		{"0 0", 0, 0, false},
		{"2  1", 2, 1, false},
		{"1", 0, 0, true},
		{"1 2 3", 0, 0, true},
		{"a b", 0, 0, true},
		{"3 0", 0, 0, true},
	}
	for _, tt := range tests {
		row, col, err := parseCell(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseCell(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && (row != tt.row || col != tt.col) {
			t.Errorf("parseCell(%q) = %d,%d", tt.in, row, col)
		}
	}
}

func TestRenderBoard(t *testing.T) {
	var b game.Board
	b = b.Place("X", 0, 0).Place("O", 1, 1)
	want := " X |   |   \n" +
		"---+---+---\n" +
		"   | O |   \n" +
		"---+---+---\n" +
		"   |   |   \n"
	if got := RenderBoard(b); got != want {
		t.Errorf("RenderBoard() =\n%s\nwant\n%s", got, want)
	}
}
