package game

import "testing"

func TestBoardWinner(t *testing.T) {
	tests := []struct {
		name   string
		board  Board
		winner string
		ok     bool
	}{
		{"empty", Board{}, "", false},
		{"row", Board{{"X", "X", "X"}, {"O", "O", ""}, {}}, "X", true},
		{"column", Board{{"O", "X", ""}, {"O", "X", ""}, {"O", "", ""}}, "O", true},
		{"diagonal", Board{{"X", "O", ""}, {"O", "X", ""}, {"", "", "X"}}, "X", true},
		{"anti-diagonal", Board{{"", "", "O"}, {"", "O", ""}, {"O", "X", "X"}}, "O", true},
		{"full no winner", Board{{"X", "O", "X"}, {"X", "O", "O"}, {"O", "X", "X"}}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner, ok := tt.board.Winner()
			if winner != tt.winner || ok != tt.ok {
				t.Errorf("Winner() = %q, %v; want %q, %v", winner, ok, tt.winner, tt.ok)
			}
		})
	}
}

func TestBoardPlaceCopies(t *testing.T) {
	var b Board
	next := b.Place("X", 1, 1)
	if b[1][1] != "" {
		t.Error("Place modified the receiver")
	}
	if next[1][1] != "X" || next.Moves() != 1 {
		t.Errorf("Place result = %v", next)
	}
}

func TestBoardFull(t *testing.T) {
	full := Board{{"X", "O", "X"}, {"X", "O", "O"}, {"O", "X", "X"}}
	if !full.Full() {
		t.Error("Full() = false for a full board")
	}
	if (Board{}).Full() {
		t.Error("Full() = true for an empty board")
	}
	if full.Empty(0, 0) || !(Board{}).Empty(2, 2) || (Board{}).Empty(-1, 0) {
		t.Error("Empty misreports cells")
	}
}
