// Package game holds the explicit game state and the pure transitions that
// drive it: selection, move application and turn toggling.
package game

import (
	"github.com/park285/chessboard-demo/internal/board"
)

// Selection is either empty or holds one square and the piece on it.
type Selection struct {
	Active bool         `json:"active"`
	Square board.Square `json:"square"`
	Piece  board.Piece  `json:"piece"`
}

// State is everything a board interaction reads or writes. Transitions take a
// State by value and return a new one; callers never share slices with it.
type State struct {
	Board     board.Board  `json:"board"`
	Turn      board.Side   `json:"turn"`
	Selection Selection    `json:"selection"`
	Cursor    int          `json:"cursor"`
	History   []board.Move `json:"history"`
}

func New() State {
	return State{Board: board.Starting(), Turn: board.White}
}

// Clone returns a copy that does not alias the history slice.
func (s State) Clone() State {
	out := s
	out.History = append([]board.Move(nil), s.History...)
	return out
}

// LastMove returns the most recent applied move.
func (s State) LastMove() (board.Move, bool) {
	if len(s.History) == 0 {
		return board.Move{}, false
	}
	return s.History[len(s.History)-1], true
}

// FEN serialises the position; the full-move counter follows the history length.
func (s State) FEN() string {
	return s.Board.FEN(s.Turn, len(s.History)/2+1)
}

// IsPieceOfCurrentPlayer reports whether p belongs to the side to move.
func IsPieceOfCurrentPlayer(p board.Piece, turn board.Side) bool {
	return !p.IsEmpty() && p.Side() == turn
}

// Rules decides move legality and applies accepted moves to the board.
// Apply must not toggle the turn or touch the selection.
type Rules interface {
	Name() string
	Legal(s State, m board.Move) bool
	Apply(s State, m board.Move) State
}

// Positioner is implemented by rules that know the exact FEN (castling, en passant).
type Positioner interface {
	FEN(s State) string
}

// Outcome describes a finished game.
type Outcome struct {
	Over   bool       `json:"over"`
	Draw   bool       `json:"draw"`
	Winner board.Side `json:"winner"`
	Method string     `json:"method,omitempty"`
}

// Finisher is implemented by rules that can detect the end of a game.
type Finisher interface {
	Outcome(s State) Outcome
}

// FENFor prefers the rules' own FEN when available.
func FENFor(r Rules, s State) string {
	if p, ok := r.(Positioner); ok {
		return p.FEN(s)
	}
	return s.FEN()
}

// OutcomeFor returns the zero Outcome for rules that never finish a game.
func OutcomeFor(r Rules, s State) Outcome {
	if f, ok := r.(Finisher); ok {
		return f.Outcome(s)
	}
	return Outcome{}
}
