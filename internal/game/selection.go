package game

import (
	"github.com/park285/chessboard-demo/internal/board"
)

type TransitionKind int

const (
	None TransitionKind = iota
	Selected
	Deselected
	Reselected
	Moved
	Cleared
)

func (k TransitionKind) String() string {
	switch k {
	case Selected:
		return "selected"
	case Deselected:
		return "deselected"
	case Reselected:
		return "reselected"
	case Moved:
		return "moved"
	case Cleared:
		return "cleared"
	default:
		return "none"
	}
}

// Transition reports what a user interaction did.
type Transition struct {
	Kind     TransitionKind
	Move     board.Move
	Piece    board.Piece
	Captured board.Piece
}

// Click feeds one square click through the selection state machine.
func Click(s State, r Rules, sq board.Square) (State, Transition) {
	if !sq.Valid() {
		return s, Transition{}
	}
	piece := s.Board.At(sq)

	if !s.Selection.Active {
		if !IsPieceOfCurrentPlayer(piece, s.Turn) {
			return s, Transition{}
		}
		return selectSquare(s, sq, piece), Transition{Kind: Selected, Piece: piece}
	}

	from := s.Selection.Square
	if sq == from {
		return clearSelection(s), Transition{Kind: Deselected}
	}

	// Own pieces are never capture targets, so a click on one always reselects.
	if IsPieceOfCurrentPlayer(piece, s.Turn) {
		return selectSquare(s, sq, piece), Transition{Kind: Reselected, Piece: piece}
	}
	mv := board.Move{From: from, To: sq}
	if r.Legal(s, mv) {
		return ApplyMove(s, r, mv)
	}
	return clearSelection(s), Transition{Kind: Cleared}
}

// DragStart selects the dragged square when it holds a piece of the side to move.
func DragStart(s State, sq board.Square) (State, Transition) {
	piece := s.Board.At(sq)
	if !IsPieceOfCurrentPlayer(piece, s.Turn) {
		return s, Transition{}
	}
	kind := Selected
	if s.Selection.Active {
		kind = Reselected
	}
	return selectSquare(s, sq, piece), Transition{Kind: kind, Piece: piece}
}

// Drop completes a drag. The selection is always released.
func Drop(s State, r Rules, sq board.Square) (State, Transition) {
	if !s.Selection.Active {
		return s, Transition{}
	}
	mv := board.Move{From: s.Selection.Square, To: sq}
	if sq.Valid() && !mv.IsNull() && r.Legal(s, mv) {
		return ApplyMove(s, r, mv)
	}
	return clearSelection(s), Transition{Kind: Cleared}
}

// ApplyMove applies an accepted move, clears the selection and passes the turn.
func ApplyMove(s State, r Rules, m board.Move) (State, Transition) {
	piece := s.Board.At(m.From)
	captured := s.Board.At(m.To)
	next := r.Apply(s.Clone(), m)
	next.History = append(next.History, m)
	next.Selection = Selection{}
	next.Turn = s.Turn.Opposite()
	return next, Transition{Kind: Moved, Move: m, Piece: piece, Captured: captured}
}

func selectSquare(s State, sq board.Square, p board.Piece) State {
	s.Selection = Selection{Active: true, Square: sq, Piece: p}
	return s
}

func clearSelection(s State) State {
	s.Selection = Selection{}
	return s
}
