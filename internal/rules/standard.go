package rules

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/chessboard-demo/internal/board"
	"github.com/park285/chessboard-demo/internal/game"
)

// Standard delegates legality to the chess library. The position is always
// rebuilt from the start by replaying the state's history.
type Standard struct{}

func (Standard) Name() string { return VariantStandard }

func (r Standard) Legal(s game.State, m board.Move) bool {
	g, err := replay(s.History)
	if err != nil {
		return false
	}
	return g.PushNotationMove(uciFor(s, m), nchess.UCINotation{}, nil) == nil
}

// Apply plays the move in the library and copies its board back, which carries
// castling rook hops, en passant captures and queen promotion.
func (r Standard) Apply(s game.State, m board.Move) game.State {
	g, err := replay(s.History)
	if err != nil {
		s.Board.Apply(m)
		return s
	}
	if err := g.PushNotationMove(uciFor(s, m), nchess.UCINotation{}, nil); err != nil {
		s.Board.Apply(m)
		return s
	}
	s.Board = fromLibrary(g.Position().Board())
	return s
}

func (r Standard) FEN(s game.State) string {
	g, err := replay(s.History)
	if err != nil {
		return s.FEN()
	}
	return g.FEN()
}

func (r Standard) Outcome(s game.State) game.Outcome {
	g, err := replay(s.History)
	if err != nil {
		return game.Outcome{}
	}
	out := game.Outcome{Method: g.Method().String()}
	switch g.Outcome() {
	case nchess.WhiteWon:
		out.Over, out.Winner = true, board.White
	case nchess.BlackWon:
		out.Over, out.Winner = true, board.Black
	case nchess.Draw:
		out.Over, out.Draw = true, true
	default:
		return game.Outcome{}
	}
	return out
}

func replay(moves []board.Move) (*nchess.Game, error) {
	g := nchess.NewGame()
	for i, mv := range moves {
		if err := pushLenient(g, mv); err != nil {
			return nil, fmt.Errorf("replay ply %d (%s): %w", i+1, mv, err)
		}
	}
	return g, nil
}

// pushLenient tries the plain move first and then the queen promotion, since
// history stores only from/to squares.
func pushLenient(g *nchess.Game, mv board.Move) error {
	err := g.PushNotationMove(mv.String(), nchess.UCINotation{}, nil)
	if err == nil {
		return nil
	}
	if perr := g.PushNotationMove(mv.String()+"q", nchess.UCINotation{}, nil); perr == nil {
		return nil
	}
	return err
}

func uciFor(s game.State, m board.Move) string {
	p := s.Board.At(m.From)
	if p.Type() == board.Pawn {
		if (p.Side() == board.White && m.To.Rank() == 8) || (p.Side() == board.Black && m.To.Rank() == 1) {
			return m.String() + "q"
		}
	}
	return m.String()
}

func fromLibrary(nb *nchess.Board) board.Board {
	var out board.Board
	for sq, piece := range nb.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		side := board.White
		if piece.Color() == nchess.Black {
			side = board.Black
		}
		out.Set(board.Square{Row: 7 - int(sq.Rank()), Col: int(sq.File())}, board.NewPiece(side, pieceType(piece.Type())))
	}
	return out
}

func pieceType(t nchess.PieceType) board.PieceType {
	switch t {
	case nchess.Pawn:
		return board.Pawn
	case nchess.Knight:
		return board.Knight
	case nchess.Bishop:
		return board.Bishop
	case nchess.Rook:
		return board.Rook
	case nchess.Queen:
		return board.Queen
	case nchess.King:
		return board.King
	default:
		return board.NoType
	}
}
