package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/park285/chessboard-demo/internal/board"
	"github.com/park285/chessboard-demo/internal/game"
)

func mv(s string) board.Move { return board.MustMove(s) }

func emptyWith(placements map[string]board.Piece) board.Board {
	var b board.Board
	for name, p := range placements {
		b.Set(board.MustSquare(name), p)
	}
	return b
}

func TestPawnSingleAndDoubleStep(t *testing.T) {
	b := board.Starting()
	if !PawnAllows(&b, mv("e2e3"), 'P') || !PawnAllows(&b, mv("e2e4"), 'P') {
		t.Fatalf("white pawn steps from home rank must be allowed")
	}
	if !PawnAllows(&b, mv("d7d5"), 'p') || !PawnAllows(&b, mv("d7d6"), 'p') {
		t.Fatalf("black pawn steps from home rank must be allowed")
	}
	if PawnAllows(&b, mv("e2e5"), 'P') || PawnAllows(&b, mv("e2e1"), 'P') {
		t.Fatalf("triple step and backward step must be rejected")
	}
}

func TestPawnDoubleStepNeedsEmptyPath(t *testing.T) {
	blocked := emptyWith(map[string]board.Piece{"e2": 'P', "e3": 'n'})
	if PawnAllows(&blocked, mv("e2e4"), 'P') {
		t.Fatalf("double step through an occupied square must be rejected")
	}
	landing := emptyWith(map[string]board.Piece{"e2": 'P', "e4": 'n'})
	if PawnAllows(&landing, mv("e2e4"), 'P') {
		t.Fatalf("double step onto an occupied square must be rejected")
	}
	off := emptyWith(map[string]board.Piece{"e3": 'P'})
	if PawnAllows(&off, mv("e3e5"), 'P') {
		t.Fatalf("double step away from the home rank must be rejected")
	}
}

func TestPawnDiagonalNeedsOpponent(t *testing.T) {
	b := emptyWith(map[string]board.Piece{"e4": 'P', "d5": 'p', "f5": 'N'})
	if !PawnAllows(&b, mv("e4d5"), 'P') {
		t.Fatalf("capture of opposing piece must be allowed")
	}
	if PawnAllows(&b, mv("e4f5"), 'P') {
		t.Fatalf("capture of own piece must be rejected")
	}
	empty := emptyWith(map[string]board.Piece{"e4": 'P'})
	if PawnAllows(&empty, mv("e4d5"), 'P') {
		t.Fatalf("diagonal onto empty square must be rejected")
	}
	if PawnAllows(&b, mv("e4c5"), 'P') {
		t.Fatalf("two-file diagonal must be rejected")
	}
	forward := emptyWith(map[string]board.Piece{"e4": 'P', "e5": 'p'})
	if PawnAllows(&forward, mv("e4e5"), 'P') {
		t.Fatalf("pawn may not capture straight ahead")
	}
}

func TestScriptedAcceptsTableMoveForScriptedSide(t *testing.T) {
	r := NewScripted(board.White, []board.Move{mv("g1f3"), mv("d1h5")})
	s := game.New()
	if !r.Legal(s, mv("g1f3")) {
		t.Fatalf("table move must be accepted")
	}
	if r.Legal(s, mv("b1c3")) {
		t.Fatalf("non-table knight move for the scripted side must be rejected")
	}
	// d1h5 is the second entry and the cursor is still at 0.
	if r.Legal(s, mv("d1h5")) {
		t.Fatalf("only the current entry may be accepted")
	}
}

func TestScriptedOpponentIsPermissive(t *testing.T) {
	r := NewScripted(board.White, nil)
	s := game.New()
	s.Turn = board.Black
	if !r.Legal(s, mv("b8c6")) || !r.Legal(s, mv("d8d6")) {
		t.Fatalf("opponent moves within two squares must be accepted")
	}
	if r.Legal(s, mv("d8d5")) {
		t.Fatalf("three-rank jump must be rejected")
	}
	if r.Legal(s, mv("d8d8")) {
		t.Fatalf("null move must be rejected")
	}
	if r.Legal(s, mv("d5d4")) {
		t.Fatalf("moving from an empty square must be rejected")
	}
}

func TestScriptedOpponentCannotTakeOwnPiece(t *testing.T) {
	r := NewScripted(board.White, DefaultScripts().White)
	s := game.New()
	s, _ = game.Click(s, r, board.MustSquare("e2"))
	s, _ = game.Click(s, r, board.MustSquare("e4"))

	if r.Legal(s, mv("e7d8")) || r.Legal(s, mv("d8e7")) {
		t.Fatalf("moves onto a piece of the same colour must be rejected")
	}
	s, _ = game.Click(s, r, board.MustSquare("e7"))
	s, tr := game.Click(s, r, board.MustSquare("d8"))
	if tr.Kind != game.Reselected || s.Selection.Square != board.MustSquare("d8") {
		t.Fatalf("expected reselect of the queen, got %v %+v", tr.Kind, s.Selection)
	}
	if s.Board.At(board.MustSquare("d8")) != 'q' || s.Board.Count() != 32 {
		t.Fatalf("queen must stay on d8 with nothing captured")
	}

	s, _ = game.DragStart(s, board.MustSquare("e7"))
	s, tr = game.Drop(s, r, board.MustSquare("d8"))
	if tr.Kind != game.Cleared || s.Board.At(board.MustSquare("d8")) != 'q' || s.Board.Count() != 32 {
		t.Fatalf("drop onto own queen must be rejected, got %v", tr.Kind)
	}
}

func TestScriptedExampleGame(t *testing.T) {
	r := NewScripted(board.White, DefaultScripts().White)
	s := game.New()
	s, _ = game.Click(s, r, board.MustSquare("e2"))
	s, tr := game.Click(s, r, board.MustSquare("e4"))
	if tr.Kind != game.Moved {
		t.Fatalf("expected e2e4 to be played, got %v", tr.Kind)
	}
	if s.Board.At(board.MustSquare("e2")) != board.Empty || s.Board.At(board.MustSquare("e4")) != 'P' {
		t.Fatalf("board not updated")
	}
	if s.Cursor != 1 {
		t.Fatalf("cursor should advance 0 -> 1, got %d", s.Cursor)
	}
	if s.Turn != board.Black {
		t.Fatalf("turn should pass to black")
	}
}

func TestScriptedCursorAdvancesOnlyOnExactMatch(t *testing.T) {
	r := NewScripted(board.White, []board.Move{mv("e2e4"), mv("f1c4")})
	s := game.New()

	// A legal pawn move that is not the table entry.
	s, _ = game.ApplyMove(s, r, mv("d2d4"))
	if s.Cursor != 0 {
		t.Fatalf("cursor must not move on an off-script move, got %d", s.Cursor)
	}
	// Opponent plays the scripted side's move shape; still no advance.
	s, _ = game.ApplyMove(s, r, mv("e7e5"))
	if s.Cursor != 0 {
		t.Fatalf("cursor must not move on opponent move, got %d", s.Cursor)
	}
	s, _ = game.ApplyMove(s, r, mv("e2e4"))
	if s.Cursor != 1 {
		t.Fatalf("cursor should be 1 after table move, got %d", s.Cursor)
	}
	s, _ = game.ApplyMove(s, r, mv("b8c6"))
	s, _ = game.ApplyMove(s, r, mv("f1c4"))
	if s.Cursor != 2 {
		t.Fatalf("cursor should be 2, got %d", s.Cursor)
	}
	if _, ok := r.Next(s.Cursor); ok || r.Remaining(s.Cursor) != 0 {
		t.Fatalf("table should be exhausted")
	}
}

func TestStandardRules(t *testing.T) {
	r := Standard{}
	s := game.New()
	if !r.Legal(s, mv("g1f3")) {
		t.Fatalf("knight development must be legal")
	}
	if r.Legal(s, mv("g1g3")) || r.Legal(s, mv("e2e5")) {
		t.Fatalf("illegal moves accepted")
	}
	for _, m := range []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6"} {
		var tr game.Transition
		s, tr = game.ApplyMove(s, r, mv(m))
		if tr.Kind != game.Moved {
			t.Fatalf("apply %s failed", m)
		}
	}
	if !r.Legal(s, mv("e1g1")) {
		t.Fatalf("castling should be legal")
	}
	s, _ = game.ApplyMove(s, r, mv("e1g1"))
	if s.Board.At(board.MustSquare("f1")) != 'R' || s.Board.At(board.MustSquare("h1")) != board.Empty {
		t.Fatalf("castling rook not moved: %s", s.Board.Placement())
	}
	if fen := r.FEN(s); !strings.HasPrefix(fen, "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQ1RK1 b ") {
		t.Fatalf("unexpected fen %q", fen)
	}
}

func TestStandardDetectsCheckmate(t *testing.T) {
	r := Standard{}
	s := game.New()
	for _, m := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		if !r.Legal(s, mv(m)) {
			t.Fatalf("%s should be legal", m)
		}
		s, _ = game.ApplyMove(s, r, mv(m))
	}
	out := r.Outcome(s)
	if !out.Over || out.Draw || out.Winner != board.Black {
		t.Fatalf("expected black to win by mate, got %+v", out)
	}
	if game.OutcomeFor(NewScripted(board.White, nil), s).Over {
		t.Fatalf("scripted rules never finish a game")
	}
}

func TestLoadScripts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	if err := os.WriteFile(path, []byte("white:\n  - d2d4\n  - c2c4\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := LoadScripts(path)
	if err != nil {
		t.Fatalf("LoadScripts: %v", err)
	}
	if len(s.White) != 2 || s.White[1] != mv("c2c4") {
		t.Fatalf("unexpected white script %v", s.White)
	}
	if len(s.Black) != len(DefaultScripts().Black) {
		t.Fatalf("black should keep default script")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(bad, []byte("white: [zz99]\n"), 0o644)
	if _, err := LoadScripts(bad); err == nil {
		t.Fatalf("expected error for bad move")
	}
}

func TestNewVariant(t *testing.T) {
	r, err := New(" Scripted ", board.Black, DefaultScripts())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sc, ok := r.(Scripted)
	if !ok || sc.Side != board.Black || len(sc.Table) != 2 {
		t.Fatalf("unexpected scripted rules %+v", r)
	}
	if _, err := New("fischer", board.White, DefaultScripts()); err == nil {
		t.Fatalf("expected unknown variant error")
	}
}
