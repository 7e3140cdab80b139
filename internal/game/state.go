package game

import (
	"fmt"

	"github.com/lawnchairsociety/tictactoe/internal/protocol"
)

// Status texts shown to the player.
const (
	StatusWaiting  = "Waiting for game to start..."
	StatusStarted  = "Game started"
	StatusInvalid  = "Your move was invalid"
	StatusYourTurn = "It's your turn"
	StatusTheirs   = "Opponent's turn"
	StatusDraw     = "Draw"
)

// State is an immutable snapshot of what the display knows. Transitions
// return a new value; nothing is shared between snapshots.
type State struct {
	Token    string
	IsTurn   bool
	GameOver bool
	Winner   string
	Status   string
	Board    Board

	// pending is the optimistic local mark, undone if the server answers
	// INVALID.
	pending    [2]int
	hasPending bool
}

// NewState returns the state before the server has said anything.
func NewState() State {
	return State{Status: StatusWaiting}
}

// Apply returns the state after one game line from the server. Lines that
// are unknown or malformed leave the state unchanged; the error says why.
func Apply(s State, line string) (State, error) {
	msg := protocol.ParseMessage(line)

	switch msg.Action {
	case protocol.Player:
		if len(msg.Args) != 1 || msg.Args[0] == "" {
			return s, fmt.Errorf("malformed player line %q", line)
		}
		s.Token = msg.Args[0]
		s.Status = StatusStarted

	case protocol.Invalid:
		s = Unselect(s)
		s.IsTurn = true
		s.Status = StatusInvalid

	case protocol.Turn:
		token, row, col, err := msg.TurnArgs()
		if err != nil {
			return s, err
		}
		if !InBounds(row, col) {
			return s, fmt.Errorf("turn outside the board: %q", line)
		}
		// A TURN from the server is always the opponent's move
		s.Board = s.Board.Place(token, row, col)
		s.hasPending = false
		s.Status = fmt.Sprintf("%s moved in %d,%d", token, row, col)

	case protocol.Move:
		s.IsTurn = true
		s.hasPending = false
		s.Status = StatusYourTurn

	case protocol.Winner:
		if len(msg.Args) != 1 {
			return s, fmt.Errorf("malformed winner line %q", line)
		}
		s.GameOver = true
		s.IsTurn = false
		s.Winner = msg.Args[0]
		s.Status = winnerStatus(s.Winner, s.Token)

	default:
		return s, fmt.Errorf("unknown action %q", msg.Action)
	}

	return s, nil
}

func winnerStatus(winner, token string) string {
	switch winner {
	case protocol.NoWinner:
		return StatusDraw
	case token:
		return "You won"
	default:
		return winner + " won"
	}
}

// Select tries to play (row, col). It only succeeds when the player has a
// token, it is their turn, the game is running and the cell is free. The
// cell is marked immediately and the request to send is returned.
func Select(s State, row, col int) (State, protocol.Request, bool) {
	if s.Token == "" || !s.IsTurn || s.GameOver || !s.Board.Empty(row, col) {
		return s, "", false
	}
	s.Board = s.Board.Place(s.Token, row, col)
	s.IsTurn = false
	s.pending, s.hasPending = [2]int{row, col}, true
	s.Status = StatusTheirs
	return s, protocol.FormatTurn(s.Token, row, col), true
}

// Unselect takes back the optimistic mark left by Select and gives the turn
// back. States without a pending mark are returned unchanged.
func Unselect(s State) State {
	if !s.hasPending {
		return s
	}
	s.Board[s.pending[0]][s.pending[1]] = ""
	s.hasPending = false
	s.IsTurn = true
	return s
}

// Outcome summarises a finished (or abandoned) game from this player's
// point of view.
type Outcome string

const (
	OutcomeWon     Outcome = "won"
	OutcomeLost    Outcome = "lost"
	OutcomeDraw    Outcome = "draw"
	OutcomeAborted Outcome = "aborted"
)

// Outcome reports the result so far; games that never reached WINNER are
// aborted.
func (s State) Outcome() Outcome {
	switch {
	case !s.GameOver:
		return OutcomeAborted
	case s.Winner == protocol.NoWinner:
		return OutcomeDraw
	case s.Winner == s.Token:
		return OutcomeWon
	default:
		return OutcomeLost
	}
}
