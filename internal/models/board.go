package models

import (
	"fmt"
	"math/rand/v2"
)

const BoardSize = 3

// Cell values are shared with the server and must not change.
const (
	CellX     = -1
	CellEmpty = 0
	CellO     = 1
)

// Board is a BoardSize x BoardSize matrix of cell values.
type Board [][]int

func NewBoard() Board {
	b := make(Board, BoardSize)
	for i := range b {
		b[i] = make([]int, BoardSize)
	}
	return b
}

func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	out := make(Board, len(b))
	for i, row := range b {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// Validate checks the shape and cell values of the board.
func (b Board) Validate() error {
	if len(b) != BoardSize {
		return fmt.Errorf("board must have %d rows, got %d", BoardSize, len(b))
	}
	for i, row := range b {
		if len(row) != BoardSize {
			return fmt.Errorf("board row %d must have %d cells, got %d", i, BoardSize, len(row))
		}
		for j, v := range row {
			if v != CellX && v != CellO && v != CellEmpty {
				return fmt.Errorf("board cell (%d,%d) has invalid value %d", i, j, v)
			}
		}
	}
	return nil
}

func (b Board) InBounds(row, col int) bool {
	return row >= 0 && row < len(b) && col >= 0 && col < len(b[row])
}

func (b Board) IsEmpty(row, col int) bool {
	return b.InBounds(row, col) && b[row][col] == CellEmpty
}

// Place returns a copy of the board with mark set at (row, col). The
// receiver is never modified.
func (b Board) Place(row, col, mark int) (Board, error) {
	if !b.InBounds(row, col) {
		return nil, fmt.Errorf("cell (%d,%d) is out of bounds", row, col)
	}
	if b[row][col] != CellEmpty {
		return nil, fmt.Errorf("cell (%d,%d) is already taken", row, col)
	}
	out := b.Clone()
	out[row][col] = mark
	return out, nil
}

func (b Board) Count(mark int) int {
	n := 0
	for _, row := range b {
		for _, v := range row {
			if v == mark {
				n++
			}
		}
	}
	return n
}

func (b Board) Full() bool {
	return b.Count(CellEmpty) == 0
}

func (b Board) Equal(other Board) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if len(b[i]) != len(other[i]) {
			return false
		}
		for j := range b[i] {
			if b[i][j] != other[i][j] {
				return false
			}
		}
	}
	return true
}

// Diff lists the cells whose values differ between b and other. Both boards
// must have the same shape.
func (b Board) Diff(other Board) [][2]int {
	var cells [][2]int
	for i := range b {
		for j := range b[i] {
			if b[i][j] != other[i][j] {
				cells = append(cells, [2]int{i, j})
			}
		}
	}
	return cells
}

func (b Board) EmptyCells() [][2]int {
	var cells [][2]int
	for i, row := range b {
		for j, v := range row {
			if v == CellEmpty {
				cells = append(cells, [2]int{i, j})
			}
		}
	}
	return cells
}

// RandomEmptyCell picks one of the empty cells. ok is false on a full board.
func (b Board) RandomEmptyCell() (row, col int, ok bool) {
	cells := b.EmptyCells()
	if len(cells) == 0 {
		return 0, 0, false
	}
	c := cells[rand.IntN(len(cells))]
	return c[0], c[1], true
}

var lines = [8][3][2]int{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// Winner reports the player holding a complete line, if any.
func (b Board) Winner() (Player, bool) {
	if b.Validate() != nil {
		return "", false
	}
	for _, line := range lines {
		v := b[line[0][0]][line[0][1]]
		if v == CellEmpty {
			continue
		}
		if b[line[1][0]][line[1][1]] == v && b[line[2][0]][line[2][1]] == v {
			return PlayerForMark(v), true
		}
	}
	return "", false
}

// Status derives the game status from the cells alone.
func (b Board) Status() GameStatus {
	if p, ok := b.Winner(); ok {
		if p == PlayerX {
			return StatusXWon
		}
		return StatusOWon
	}
	if b.Full() {
		return StatusDraw
	}
	return StatusOngoing
}
