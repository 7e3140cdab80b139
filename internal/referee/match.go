package referee

import (
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lawnchairsociety/tictactoe/internal/game"
	"github.com/lawnchairsociety/tictactoe/internal/logger"
	"github.com/lawnchairsociety/tictactoe/internal/protocol"
)

var (
	errCurLeft = errors.New("player on turn left")
	errOppLeft = errors.New("waiting player left")
	errTimeout = errors.New("turn timed out")
	errStopped = errors.New("server shutting down")
)

// Result is how a refereed game ended.
type Result struct {
	ID     string
	X, O   string // remote addresses
	Winner string // token, or protocol.NoWinner for a draw
	Moves  int
	Reason string // line, draw, forfeit, timeout or shutdown
}

// runMatch referees one game. X moves first. Both seats are closed when it
// returns.
func (s *Server) runMatch(x, o *seat) Result {
	defer x.close()
	defer o.close()

	x.token, o.token = "X", "O"
	players := [2]*seat{x, o}
	res := Result{ID: uuid.New().String(), X: x.String(), O: o.String()}

	logger.Info("Match started", "match", res.ID, "x", res.X, "o", res.O)

	for _, p := range players {
		if err := p.send(protocol.Player, p.token); err != nil {
			// The other player wins by default.
			s.finish(players, &res, other(players, p).token, "forfeit")
			return res
		}
	}

	var board game.Board
	turn := 0
	for {
		cur, opp := players[turn], players[1-turn]

		if err := cur.send(protocol.Move); err != nil {
			s.finish(players, &res, opp.token, "forfeit")
			return res
		}

		row, col, err := s.awaitMove(cur, opp, board)
		switch {
		case errors.Is(err, errStopped):
			res.Reason = "shutdown"
			return res
		case errors.Is(err, errCurLeft):
			s.finish(players, &res, opp.token, "forfeit")
			return res
		case errors.Is(err, errOppLeft):
			s.finish(players, &res, cur.token, "forfeit")
			return res
		case errors.Is(err, errTimeout):
			s.finish(players, &res, opp.token, "timeout")
			return res
		}

		board = board.Place(cur.token, row, col)
		res.Moves++
		if err := opp.send(protocol.Turn, cur.token, strconv.Itoa(row), strconv.Itoa(col)); err != nil {
			s.finish(players, &res, cur.token, "forfeit")
			return res
		}

		if winner, ok := board.Winner(); ok {
			s.finish(players, &res, winner, "line")
			return res
		}
		if board.Full() {
			s.finish(players, &res, protocol.NoWinner, "draw")
			return res
		}
		turn = 1 - turn
	}
}

// awaitMove waits for a legal TURN from cur. Illegal lines are answered with
// INVALID and a fresh MOVE.
func (s *Server) awaitMove(cur, opp *seat, board game.Board) (row, col int, err error) {
	var timeout <-chan time.Time
	if d := s.config.Game.TurnTimeout; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case line, ok := <-cur.lines:
			if !ok {
				return 0, 0, errCurLeft
			}
			row, col, err := validateTurn(line, cur.token, board)
			if err == nil {
				return row, col, nil
			}
			logger.Debug("Rejected move", "player", cur.String(), "line", line, "reason", err)
			if cur.send(protocol.Invalid) != nil || cur.send(protocol.Move) != nil {
				return 0, 0, errCurLeft
			}
		case <-opp.done:
			return 0, 0, errOppLeft
		case <-timeout:
			return 0, 0, errTimeout
		case <-s.shutdown:
			return 0, 0, errStopped
		}
	}
}

// validateTurn accepts "TURN <token> <row> <col>" for the player's own token
// on a free cell.
func validateTurn(line, token string, board game.Board) (int, int, error) {
	t, row, col, err := protocol.ParseMessage(line).TurnArgs()
	if err != nil {
		return 0, 0, err
	}
	if t != token {
		return 0, 0, errors.New("wrong token")
	}
	if !game.InBounds(row, col) {
		return 0, 0, errors.New("outside the board")
	}
	if !board.Empty(row, col) {
		return 0, 0, errors.New("cell taken")
	}
	return row, col, nil
}

// finish announces the winner to everyone still listening.
func (s *Server) finish(players [2]*seat, res *Result, winner, reason string) {
	res.Winner, res.Reason = winner, reason
	for _, p := range players {
		if isGone(p) {
			continue
		}
		if err := p.send(protocol.Winner, winner); err != nil {
			logger.Debug("Failed to send result", "player", p.String(), "error", err)
		}
	}
	logger.Info("Match finished", "match", res.ID, "x", res.X, "o", res.O, "winner", winner, "reason", reason, "moves", res.Moves)
	if s.onResult != nil {
		s.onResult(*res)
	}
}

func other(players [2]*seat, p *seat) *seat {
	if players[0] == p {
		return players[1]
	}
	return players[0]
}

func isGone(p *seat) bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
