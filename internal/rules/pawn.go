// Package rules provides the legality variants behind game.Rules.
package rules

import (
	"github.com/park285/chessboard-demo/internal/board"
)

func homeRow(s board.Side) int {
	if s == board.White {
		return 6
	}
	return 1
}

func forward(s board.Side) int {
	if s == board.White {
		return -1
	}
	return 1
}

// PawnAllows covers single step, double step from the home rank and the
// one-file diagonal capture. Nothing else.
func PawnAllows(b *board.Board, m board.Move, p board.Piece) bool {
	if p.Type() != board.Pawn || !m.From.Valid() || !m.To.Valid() {
		return false
	}
	dir := forward(p.Side())
	dr := m.To.Row - m.From.Row
	dc := m.To.Col - m.From.Col
	target := b.At(m.To)

	switch {
	case dc == 0 && dr == dir:
		return target.IsEmpty()
	case dc == 0 && dr == 2*dir && m.From.Row == homeRow(p.Side()):
		mid := board.Square{Row: m.From.Row + dir, Col: m.From.Col}
		return b.At(mid).IsEmpty() && target.IsEmpty()
	case (dc == 1 || dc == -1) && dr == dir:
		return !target.IsEmpty() && target.Side() != p.Side()
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// withinReach is true for non-null moves whose rank and file offsets are both <= n.
func withinReach(m board.Move, n int) bool {
	if m.IsNull() {
		return false
	}
	return abs(m.To.Row-m.From.Row) <= n && abs(m.To.Col-m.From.Col) <= n
}
