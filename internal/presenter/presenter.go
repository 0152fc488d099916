// Package presenter turns sessions into what clients display: the status
// line, the JSON view and the render options for board images.
package presenter

import (
	"github.com/park285/chessboard-demo/internal/archive"
	"github.com/park285/chessboard-demo/internal/board"
	"github.com/park285/chessboard-demo/internal/game"
	"github.com/park285/chessboard-demo/internal/msgcat"
	"github.com/park285/chessboard-demo/internal/render"
	"github.com/park285/chessboard-demo/internal/store"
	"github.com/park285/chessboard-demo/internal/suggest"
	"github.com/park285/chessboard-demo/pkg/boarddto"
)

type Presenter struct {
	cat *msgcat.Catalog
}

func New(cat *msgcat.Catalog) *Presenter {
	if cat == nil {
		cat = msgcat.Default()
	}
	return &Presenter{cat: cat}
}

// EventMessage is the one-line note for a board interaction, empty when
// nothing changed.
func (p *Presenter) EventMessage(sess *store.Session, tr game.Transition) string {
	switch tr.Kind {
	case game.Selected, game.Reselected:
		return p.cat.Text("event.selected", map[string]string{
			"Glyph":  tr.Piece.Glyph(),
			"Square": sess.State.Selection.Square.Name(),
		})
	case game.Moved:
		return p.cat.Text("event.moved", map[string]string{"From": tr.Move.From.Name(), "To": tr.Move.To.Name()})
	case game.Cleared:
		return p.cat.Text("event.cleared", nil)
	}
	return ""
}

// Status is the turn line, or the result once the game is over.
func (p *Presenter) Status(sess *store.Session) string {
	switch {
	case sess.Outcome.Over && sess.Outcome.Draw:
		return p.cat.Text("status.draw", nil)
	case sess.Outcome.Over && sess.Outcome.Winner == sess.Player:
		return p.cat.Text("status.you_win", nil)
	case sess.Outcome.Over:
		return p.cat.Text("status.opponent_win", nil)
	case sess.State.Turn == sess.Player:
		return p.cat.Text("status.your_turn", nil)
	default:
		return p.cat.Text("status.opponent", nil)
	}
}

// View builds the client view. r supplies the exact FEN when the rules know it.
func (p *Presenter) View(sess *store.Session, r game.Rules) *boarddto.SessionView {
	if sess == nil {
		return nil
	}
	st := sess.State
	flip := sess.Player == board.Black

	grid := render.Grid(&st.Board, flip)
	cells := make([]boarddto.Cell, len(grid))
	for i, c := range grid {
		cells[i] = boarddto.Cell{Square: c.Square, Class: c.Class, Glyph: c.Glyph, Piece: c.Piece}
	}

	history := make([]string, len(st.History))
	for i, mv := range st.History {
		history[i] = mv.String()
	}

	fen := st.FEN()
	if r != nil {
		fen = game.FENFor(r, st)
	}

	view := &boarddto.SessionView{
		ID:         sess.ID,
		Variant:    sess.Variant,
		Player:     sess.Player.String(),
		Turn:       st.Turn.String(),
		Status:     p.Status(sess),
		FEN:        fen,
		Flipped:    flip,
		Cells:      cells,
		History:    history,
		Cursor:     st.Cursor,
		Suggestion: Suggestion(sess.Suggestion),
		GameNo:     sess.GameNo,
		Version:    sess.Version,
		UpdatedAt:  sess.UpdatedAt,
	}
	if st.Selection.Active {
		view.Selected = st.Selection.Square.Name()
	}
	if mv, ok := st.LastMove(); ok {
		view.LastMove = mv.String()
	}
	if sess.Outcome.Over {
		result := archive.ResultDraw
		if !sess.Outcome.Draw {
			result = sess.Outcome.Winner.String()
		}
		view.Outcome = &boarddto.Outcome{Result: result, Method: sess.Outcome.Method}
	}
	return view
}

func Suggestion(s suggest.Suggestion) boarddto.Suggestion {
	return boarddto.Suggestion{
		ID:        s.ID,
		From:      s.From,
		To:        s.To,
		Glyph:     s.Glyph,
		Text:      s.Text,
		Pending:   s.Pending,
		Exhausted: s.Exhausted,
	}
}

// RenderOptions highlights the last move and the selection, and captions the
// image with the status line.
func (p *Presenter) RenderOptions(sess *store.Session, squareSize int) render.Options {
	opts := render.Options{
		Flip:       sess.Player == board.Black,
		SquareSize: squareSize,
		Caption:    p.Status(sess),
	}
	if mv, ok := sess.State.LastMove(); ok {
		opts.LastMove = &mv
	}
	if sess.State.Selection.Active {
		sq := sess.State.Selection.Square
		opts.Selected = &sq
	}
	return opts
}

func Record(rec *archive.GameRecord) boarddto.GameRecord {
	return boarddto.GameRecord{
		SessionID:  rec.SessionID,
		GameNo:     rec.GameNo,
		Variant:    rec.Variant,
		Player:     rec.Player,
		Result:     rec.Result,
		Method:     rec.Method,
		Moves:      append([]string{}, rec.MovesUCI...),
		PGN:        rec.PGN,
		FinalFEN:   rec.FinalFEN,
		StartedAt:  rec.StartedAt,
		EndedAt:    rec.EndedAt,
		DurationMS: rec.Duration.Milliseconds(),
	}
}

func Records(recs []*archive.GameRecord) boarddto.GameList {
	out := boarddto.GameList{Games: make([]boarddto.GameRecord, 0, len(recs))}
	for _, rec := range recs {
		if rec != nil {
			out.Games = append(out.Games, Record(rec))
		}
	}
	return out
}
