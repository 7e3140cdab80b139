package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lawnchairsociety/tictactoe/internal/game"
	"github.com/lawnchairsociety/tictactoe/internal/logger"
	"github.com/lawnchairsociety/tictactoe/internal/netclient"
	"github.com/lawnchairsociety/tictactoe/internal/protocol"
)

// RunConsole plays a game over plain text streams, for pipes and dumb
// terminals. Moves are typed as "row col"; "q" quits. It returns when the
// game ends, the connection drops, input ends or ctx is cancelled.
func RunConsole(ctx context.Context, in io.Reader, out io.Writer, requests *netclient.RequestQueue, events *netclient.EventQueue) (game.State, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	inbound := make(chan protocol.Event)
	go func() {
		for {
			ev, err := events.Next(ctx)
			if err != nil {
				return
			}
			select {
			case inbound <- ev:
			case <-ctx.Done():
				return
			}
			if ev.IsError() {
				return
			}
		}
	}()

	state := game.NewState()
	fmt.Fprintln(out, state.Status)

	for {
		select {
		case <-ctx.Done():
			return state, ctx.Err()

		case ev := <-inbound:
			if ev.IsError() {
				fmt.Fprintf(out, "Disconnected: %s\n", ev.Data)
				return state, nil
			}
			next, err := game.Apply(state, ev.Data)
			if err != nil {
				logger.Warning("Ignoring server line", "line", ev.Data, "error", err)
				continue
			}
			state = next
			if ev.Data != string(protocol.Move) {
				fmt.Fprint(out, RenderBoard(state.Board))
			}
			fmt.Fprintln(out, state.Status)
			if state.GameOver {
				return state, nil
			}

		case line, ok := <-lines:
			if !ok {
				return state, nil
			}
			line = strings.TrimSpace(line)
			if line == "q" || line == "quit" {
				return state, nil
			}
			row, col, err := parseCell(line)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			next, req, ok := game.Select(state, row, col)
			if !ok {
				fmt.Fprintln(out, "You can't play there now")
				continue
			}
			if err := requests.Submit(ctx, req); err != nil {
				fmt.Fprintf(out, "Move not sent: %v\n", err)
				continue
			}
			state = next
			fmt.Fprint(out, RenderBoard(state.Board))
			fmt.Fprintln(out, state.Status)
		}
	}
}

// parseCell reads "row col" with both in 0..2.
func parseCell(line string) (int, int, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("enter a move as \"row col\", e.g. \"1 2\"")
	}
	row, err1 := strconv.Atoi(fields[0])
	col, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || !game.InBounds(row, col) {
		return 0, 0, fmt.Errorf("row and column must be 0, 1 or 2")
	}
	return row, col, nil
}

// RenderBoard draws the board as plain text.
func RenderBoard(b game.Board) string {
	var sb strings.Builder
	for r := 0; r < game.Size; r++ {
		if r > 0 {
			sb.WriteString("---+---+---\n")
		}
		for c := 0; c < game.Size; c++ {
			if c > 0 {
				sb.WriteString("|")
			}
			token := b[r][c]
			if token == "" {
				token = " "
			}
			sb.WriteString(" " + token + " ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
