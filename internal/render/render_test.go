package render

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/park285/chessboard-demo/internal/board"
)

func TestGridWhiteView(t *testing.T) {
	b := board.Starting()
	cells := Grid(&b, false)
	if len(cells) != 64 {
		t.Fatalf("expected 64 cells, got %d", len(cells))
	}
	first := cells[0]
	if first.Square != "a8" || first.Class != ClassLight || first.Piece != "r" || first.Glyph != "♜" {
		t.Fatalf("unexpected a8 cell %+v", first)
	}
	last := cells[63]
	if last.Square != "h1" || last.Class != ClassLight || last.Piece != "R" || last.Glyph != "♖" {
		t.Fatalf("unexpected h1 cell %+v", last)
	}
	if c := cells[1]; c.Square != "b8" || c.Class != ClassDark {
		t.Fatalf("unexpected b8 cell %+v", c)
	}
	if c := cells[36]; c.Square != "e4" || c.Piece != "" || c.Glyph != "" {
		t.Fatalf("e4 should be empty, got %+v", c)
	}
}

func TestGridFlipped(t *testing.T) {
	b := board.Starting()
	cells := Grid(&b, true)
	if cells[0].Square != "h1" || cells[63].Square != "a8" {
		t.Fatalf("flipped grid should start at h1, got %s..%s", cells[0].Square, cells[63].Square)
	}
	// Colour follows the square, not the display position.
	if cells[0].Class != ClassLight {
		t.Fatalf("h1 is light")
	}
}

func TestGridIsPure(t *testing.T) {
	b := board.Starting()
	before := b
	Grid(&b, false)
	Grid(&b, true)
	if b != before {
		t.Fatalf("Grid mutated the board")
	}
}

func TestSVGCarriesSquareData(t *testing.T) {
	b := board.Starting()
	mv := board.MustMove("e2e4")
	b.Apply(mv)
	out := string(SVG(&b, Options{LastMove: &mv}))

	if !strings.HasPrefix(out, "<svg ") || !strings.HasSuffix(out, "</svg>\n") {
		t.Fatalf("not an svg document")
	}
	if n := strings.Count(out, "data-square="); n != 64 {
		t.Fatalf("expected 64 squares, got %d", n)
	}
	if n := strings.Count(out, "data-piece="); n != 32 {
		t.Fatalf("expected 32 pieces, got %d", n)
	}
	if !strings.Contains(out, `data-square="e4" data-piece="P"`) {
		t.Fatalf("e4 pawn missing")
	}
	if strings.Count(out, `class="highlight"`) != 2 {
		t.Fatalf("last move should highlight two squares")
	}
}

func TestSVGFlipPutsH1TopLeft(t *testing.T) {
	b := board.Starting()
	out := string(SVG(&b, Options{Flip: true, SquareSize: 10}))
	if !strings.Contains(out, `data-square="h1" data-piece="R" x="0" y="0"`) {
		t.Fatalf("flipped board should show h1 at the origin")
	}
}

func TestPNG(t *testing.T) {
	b := board.Starting()
	sel := board.MustSquare("e2")
	raw, err := PNG(context.Background(), &b, Options{SquareSize: 32, Selected: &sel, Caption: "Turn: Your Turn"})
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := 32*8 + pngMargin*2
	if img.Bounds().Dx() != want {
		t.Fatalf("width %d, want %d", img.Bounds().Dx(), want)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := PNG(ctx, &b, Options{}); err == nil {
		t.Fatalf("expected context error")
	}
	if _, err := PNG(context.Background(), nil, Options{}); err == nil {
		t.Fatalf("expected nil board error")
	}
}
