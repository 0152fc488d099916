package suggest

import (
	"context"

	"github.com/park285/chessboard-demo/internal/game"
	"github.com/park285/chessboard-demo/internal/msgcat"
	"github.com/park285/chessboard-demo/internal/rules"
)

// Script shows the next unconsumed entry of the scripted table. It is
// synchronous and never calls deliver.
type Script struct {
	rules rules.Scripted
	cat   *msgcat.Catalog
}

func NewScript(r rules.Scripted, cat *msgcat.Catalog) *Script {
	if cat == nil {
		cat = msgcat.Default()
	}
	return &Script{rules: r, cat: cat}
}

func (s *Script) Suggest(_ context.Context, st game.State, _ func(Suggestion)) Suggestion {
	mv, ok := s.rules.Next(st.Cursor)
	if !ok {
		return Suggestion{
			Text:      s.cat.Text("suggestion.exhausted", nil),
			Exhausted: true,
		}
	}
	return forMove(s.cat, st, mv)
}

func (s *Script) Cancel() {}

// Unavailable is used when a variant needs an engine that is not configured.
type Unavailable struct {
	cat *msgcat.Catalog
}

func NewUnavailable(cat *msgcat.Catalog) *Unavailable {
	if cat == nil {
		cat = msgcat.Default()
	}
	return &Unavailable{cat: cat}
}

func (u *Unavailable) Suggest(context.Context, game.State, func(Suggestion)) Suggestion {
	return Suggestion{Text: u.cat.Text("suggestion.unavailable", nil)}
}

func (u *Unavailable) Cancel() {}
