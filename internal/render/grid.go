// Package render turns a board into display cells, SVG markup or a PNG.
// Every call redraws the whole board.
package render

import (
	"github.com/park285/chessboard-demo/internal/board"
)

const (
	ClassLight = "light"
	ClassDark  = "dark"
)

// Cell is one rendered square. Row and Col are board coordinates, not
// display positions.
type Cell struct {
	Square string `json:"square"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Class  string `json:"class"`
	Glyph  string `json:"glyph,omitempty"`
	Piece  string `json:"piece,omitempty"`
}

// SquareClass is light when row+col is even.
func SquareClass(sq board.Square) string {
	if (sq.Row+sq.Col)%2 == 0 {
		return ClassLight
	}
	return ClassDark
}

// Grid returns the 64 cells in display order, top-left first. With flip set
// the board is seen from Black's side.
func Grid(b *board.Board, flip bool) []Cell {
	cells := make([]Cell, 0, board.Size*board.Size)
	for i := 0; i < board.Size; i++ {
		for j := 0; j < board.Size; j++ {
			sq := displaySquare(i, j, flip)
			p := b.At(sq)
			cells = append(cells, Cell{
				Square: sq.Name(),
				Row:    sq.Row,
				Col:    sq.Col,
				Class:  SquareClass(sq),
				Glyph:  p.Glyph(),
				Piece:  p.String(),
			})
		}
	}
	return cells
}

// displaySquare maps a display position to the board square shown there.
func displaySquare(i, j int, flip bool) board.Square {
	if flip {
		return board.Square{Row: board.Size - 1 - i, Col: board.Size - 1 - j}
	}
	return board.Square{Row: i, Col: j}
}
