// Package suggest produces the move hint shown to the player, either from a
// background engine or from the scripted move table.
package suggest

import (
	"context"

	"github.com/park285/chessboard-demo/internal/board"
	"github.com/park285/chessboard-demo/internal/game"
	"github.com/park285/chessboard-demo/internal/msgcat"
)

type Suggestion struct {
	ID        uint64 `json:"id"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Glyph     string `json:"glyph,omitempty"`
	Text      string `json:"text"`
	Pending   bool   `json:"pending"`
	Exhausted bool   `json:"exhausted"`
}

// Suggester returns the suggestion to show right now. Asynchronous variants
// return a pending suggestion and later call deliver with the result; deliver
// is never called for a request that has been superseded.
type Suggester interface {
	Suggest(ctx context.Context, st game.State, deliver func(Suggestion)) Suggestion
	Cancel()
}

// forMove fills the move fields. The glyph is the white glyph of the piece type
// standing on the from-square, so the hint icon does not depend on colour.
func forMove(cat *msgcat.Catalog, st game.State, mv board.Move) Suggestion {
	s := Suggestion{
		From: mv.From.Name(),
		To:   mv.To.Name(),
	}
	s.Text = cat.Text("suggestion.move", map[string]string{"From": s.From, "To": s.To})
	if p := st.Board.At(mv.From); !p.IsEmpty() {
		s.Glyph = board.NewPiece(board.White, p.Type()).Glyph()
	}
	return s
}
