package rules

import (
	"github.com/park285/chessboard-demo/internal/board"
	"github.com/park285/chessboard-demo/internal/game"
)

// Scripted is the demo rule set: pawn basics for everyone, the script for Side,
// and near-anything within two squares for the other side. It is not chess.
type Scripted struct {
	Side  board.Side
	Table []board.Move
}

func NewScripted(side board.Side, table []board.Move) Scripted {
	return Scripted{Side: side, Table: append([]board.Move(nil), table...)}
}

func (r Scripted) Name() string { return VariantScripted }

func (r Scripted) Legal(s game.State, m board.Move) bool {
	if !m.From.Valid() || !m.To.Valid() || m.IsNull() {
		return false
	}
	piece := s.Board.At(m.From)
	if piece.IsEmpty() {
		return false
	}
	if PawnAllows(&s.Board, m, piece) {
		return true
	}
	if s.Turn == r.Side {
		return r.matches(s.Cursor, m)
	}
	if target := s.Board.At(m.To); !target.IsEmpty() && target.Side() == piece.Side() {
		return false
	}
	return withinReach(m, 2)
}

// Apply moves the piece and advances the cursor when the scripted side played
// exactly the current table entry.
func (r Scripted) Apply(s game.State, m board.Move) game.State {
	if s.Turn == r.Side && r.matches(s.Cursor, m) {
		s.Cursor++
	}
	s.Board.Apply(m)
	return s
}

// Next returns the table entry at cursor.
func (r Scripted) Next(cursor int) (board.Move, bool) {
	if cursor < 0 || cursor >= len(r.Table) {
		return board.Move{}, false
	}
	return r.Table[cursor], true
}

func (r Scripted) Remaining(cursor int) int {
	if cursor >= len(r.Table) {
		return 0
	}
	if cursor < 0 {
		cursor = 0
	}
	return len(r.Table) - cursor
}

func (r Scripted) matches(cursor int, m board.Move) bool {
	next, ok := r.Next(cursor)
	return ok && next == m
}
