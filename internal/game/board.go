// Package game holds tic-tac-toe rules and the display-side game state.
package game

// Size is the board's width and height.
const Size = 3

// Board is a 3x3 grid; empty cells hold "".
type Board [Size][Size]string

// InBounds reports whether (row, col) is on the board.
func InBounds(row, col int) bool {
	return row >= 0 && row < Size && col >= 0 && col < Size
}

// Empty reports whether the cell is free. Off-board cells are never free.
func (b Board) Empty(row, col int) bool {
	return InBounds(row, col) && b[row][col] == ""
}

// Place returns a copy of b with token at (row, col).
func (b Board) Place(token string, row, col int) Board {
	b[row][col] = token
	return b
}

// Full reports whether every cell is taken.
func (b Board) Full() bool {
	for _, row := range b {
		for _, cell := range row {
			if cell == "" {
				return false
			}
		}
	}
	return true
}

// Moves counts taken cells.
func (b Board) Moves() int {
	n := 0
	for _, row := range b {
		for _, cell := range row {
			if cell != "" {
				n++
			}
		}
	}
	return n
}

var lines = [][3][2]int{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// Winner returns the token that owns a full row, column or diagonal.
func (b Board) Winner() (string, bool) {
	for _, line := range lines {
		a := b[line[0][0]][line[0][1]]
		if a != "" && a == b[line[1][0]][line[1][1]] && a == b[line[2][0]][line[2][1]] {
			return a, true
		}
	}
	return "", false
}
