package game

import (
	"testing"

	"github.com/park285/chessboard-demo/internal/board"
)

// onlyRules accepts exactly the listed moves and applies them verbatim.
type onlyRules struct{ allowed map[string]bool }

func allow(moves ...string) onlyRules {
	m := make(map[string]bool, len(moves))
	for _, mv := range moves {
		m[mv] = true
	}
	return onlyRules{allowed: m}
}

func (r onlyRules) Name() string                     { return "only" }
func (r onlyRules) Legal(_ State, m board.Move) bool { return r.allowed[m.String()] }
func (r onlyRules) Apply(s State, m board.Move) State {
	s.Board.Apply(m)
	return s
}

func sq(name string) board.Square { return board.MustSquare(name) }

func TestIsPieceOfCurrentPlayer(t *testing.T) {
	for _, p := range []board.Piece{'P', 'R', 'N', 'B', 'Q', 'K'} {
		if !IsPieceOfCurrentPlayer(p, board.White) || IsPieceOfCurrentPlayer(p, board.Black) {
			t.Fatalf("%q should belong to white only", p)
		}
	}
	for _, p := range []board.Piece{'p', 'r', 'n', 'b', 'q', 'k'} {
		if !IsPieceOfCurrentPlayer(p, board.Black) || IsPieceOfCurrentPlayer(p, board.White) {
			t.Fatalf("%q should belong to black only", p)
		}
	}
	if IsPieceOfCurrentPlayer(board.Empty, board.White) || IsPieceOfCurrentPlayer(board.Empty, board.Black) {
		t.Fatalf("empty square belongs to nobody")
	}
}

func TestClickEmptySquareLeavesSelectionEmpty(t *testing.T) {
	s := New()
	next, tr := Click(s, allow(), sq("e4"))
	if tr.Kind != None || next.Selection.Active {
		t.Fatalf("expected no transition, got %v active=%v", tr.Kind, next.Selection.Active)
	}
}

func TestClickOpponentPieceDoesNotSelect(t *testing.T) {
	next, tr := Click(New(), allow(), sq("e7"))
	if tr.Kind != None || next.Selection.Active {
		t.Fatalf("black pawn must not be selectable on white's turn")
	}
}

func TestClickSelectThenDeselect(t *testing.T) {
	s, tr := Click(New(), allow(), sq("e2"))
	if tr.Kind != Selected || !s.Selection.Active || s.Selection.Square != sq("e2") || s.Selection.Piece != 'P' {
		t.Fatalf("expected e2 selected, got %+v", s.Selection)
	}
	s, tr = Click(s, allow(), sq("e2"))
	if tr.Kind != Deselected || s.Selection.Active {
		t.Fatalf("expected deselect, got %v", tr.Kind)
	}
}

func TestClickReselectOwnPiece(t *testing.T) {
	s, _ := Click(New(), allow(), sq("e2"))
	s, tr := Click(s, allow(), sq("g1"))
	if tr.Kind != Reselected || s.Selection.Square != sq("g1") || s.Selection.Piece != 'N' {
		t.Fatalf("expected reselect to g1, got %v %+v", tr.Kind, s.Selection)
	}
}

func TestClickNearbyOwnPieceReselectsEvenWhenLegal(t *testing.T) {
	rules := allow("e2d1", "e2f1")
	s, _ := Click(New(), rules, sq("e2"))
	s, tr := Click(s, rules, sq("d1"))
	if tr.Kind != Reselected || s.Selection.Square != sq("d1") || s.Selection.Piece != 'Q' {
		t.Fatalf("expected reselect to d1, got %v %+v", tr.Kind, s.Selection)
	}
	if s.Board.At(sq("d1")) != 'Q' || s.Board.At(sq("e2")) != 'P' || s.Turn != board.White {
		t.Fatalf("reselect must not move pieces or pass the turn")
	}
}

func TestClickInvalidDestinationClears(t *testing.T) {
	s, _ := Click(New(), allow(), sq("e2"))
	s, tr := Click(s, allow(), sq("e5"))
	if tr.Kind != Cleared || s.Selection.Active {
		t.Fatalf("expected cleared selection, got %v", tr.Kind)
	}
	if s.Board.At(sq("e2")) != 'P' || s.Turn != board.White {
		t.Fatalf("rejected move must not change board or turn")
	}
}

func TestClickLegalMoveAppliesAndToggles(t *testing.T) {
	rules := allow("e2e4")
	start := New()
	s, _ := Click(start, rules, sq("e2"))
	s, tr := Click(s, rules, sq("e4"))
	if tr.Kind != Moved || tr.Move.String() != "e2e4" || tr.Piece != 'P' {
		t.Fatalf("expected e2e4 moved, got %+v", tr)
	}
	if s.Board.At(sq("e2")) != board.Empty || s.Board.At(sq("e4")) != 'P' {
		t.Fatalf("board not updated: %s", s.Board.Placement())
	}
	if s.Turn != board.Black || s.Selection.Active {
		t.Fatalf("turn should pass to black with empty selection")
	}
	if len(s.History) != 1 || s.History[0].String() != "e2e4" {
		t.Fatalf("history not recorded: %v", s.History)
	}
	if start.Board.At(sq("e2")) != 'P' || len(start.History) != 0 {
		t.Fatalf("input state was mutated")
	}
}

func TestDragAndDrop(t *testing.T) {
	rules := allow("g1f3")
	s, tr := DragStart(New(), sq("e7"))
	if tr.Kind != None {
		t.Fatalf("drag of opponent piece should be ignored")
	}
	s, tr = DragStart(s, sq("g1"))
	if tr.Kind != Selected {
		t.Fatalf("expected drag to select, got %v", tr.Kind)
	}
	bad, tr := Drop(s, rules, sq("g3"))
	if tr.Kind != Cleared || bad.Selection.Active {
		t.Fatalf("rejected drop must clear selection")
	}
	s, tr = Drop(s, rules, sq("f3"))
	if tr.Kind != Moved || s.Board.At(sq("f3")) != 'N' || s.Turn != board.Black {
		t.Fatalf("expected knight drop applied, got %v", tr.Kind)
	}
}

func TestDropWithoutSelectionIsNoop(t *testing.T) {
	s, tr := Drop(New(), allow("e2e4"), sq("e4"))
	if tr.Kind != None || s.Board.At(sq("e2")) != 'P' {
		t.Fatalf("drop without a drag must do nothing")
	}
}
