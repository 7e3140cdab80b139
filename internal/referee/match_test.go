package referee

import (
	"testing"

	"github.com/lawnchairsociety/tictactoe/internal/game"
)

func TestValidateTurn(t *testing.T) {
	var board game.Board
	board = board.Place("O", 1, 1)

	tests := []struct {
		line    string
		wantErr bool
	}{
		{"TURN X 0 0", false},
		{"TURN X 2 2", false},
		{"TURN O 0 0", true}, // not this player's token
		{"TURN X 1 1", true}, // taken
		{"TURN X 3 0", true},
		{"TURN X 0", true},
		{"MOVE", true},
		{"", true},
	}
	for _, tt := range tests {
		row, col, err := validateTurn(tt.line, "X", board)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateTurn(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
		}
		if err == nil && !board.Empty(row, col) {
			t.Errorf("validateTurn(%q) accepted a taken cell", tt.line)
		}
	}
}
