package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/chessboard-demo/internal/board"
	"github.com/park285/chessboard-demo/internal/game"
	"github.com/park285/chessboard-demo/internal/store"
	"github.com/park285/chessboard-demo/internal/suggest"
	"go.uber.org/zap"
)

type transitionFunc func(st game.State, r game.Rules) (game.State, game.Transition)

func (s *Service) Click(ctx context.Context, id, square string) (*Result, error) {
	sq, err := board.ParseSquare(square)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSquare, err)
	}
	return s.interact(ctx, id, func(st game.State, r game.Rules) (game.State, game.Transition) {
		return game.Click(st, r, sq)
	})
}

func (s *Service) DragStart(ctx context.Context, id, square string) (*Result, error) {
	sq, err := board.ParseSquare(square)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSquare, err)
	}
	return s.interact(ctx, id, func(st game.State, _ game.Rules) (game.State, game.Transition) {
		return game.DragStart(st, sq)
	})
}

// Drop accepts any square name; a drop outside the board releases the
// selection like a rejected move.
func (s *Service) Drop(ctx context.Context, id, square string) (*Result, error) {
	sq, err := board.ParseSquare(square)
	if err != nil {
		sq = board.Square{Row: -1, Col: -1}
	}
	return s.interact(ctx, id, func(st game.State, r game.Rules) (game.State, game.Transition) {
		return game.Drop(st, r, sq)
	})
}

// interact runs fn inside a store update. Suggestions and archiving happen
// after the update, never inside it.
func (s *Service) interact(ctx context.Context, id string, fn transitionFunc) (*Result, error) {
	cur, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Outcome.Over {
		return nil, ErrGameOver
	}
	ls, err := s.liveFor(cur)
	if err != nil {
		return nil, err
	}

	var tr game.Transition
	updated, err := s.store.Update(ctx, cur.ID, func(sess *store.Session) error {
		if sess.Outcome.Over {
			return ErrGameOver
		}
		if sess.Variant != ls.variant || sess.Player != ls.player {
			return store.ErrConflict
		}
		next, t := fn(sess.State, ls.rules)
		tr = t
		if t.Kind == game.None {
			return errSkip
		}
		sess.State = next
		if t.Kind == game.Moved {
			sess.Outcome = game.OutcomeFor(ls.rules, next)
		}
		return nil
	})
	if errors.Is(err, errSkip) {
		return &Result{Session: cur, Transition: tr}, nil
	}
	if err != nil {
		return nil, s.storeErr(id, err)
	}

	log := s.logger.With(zap.String("session_id", cur.ID))
	if tr.Kind == game.Moved {
		log.Info("move applied",
			zap.String("move", tr.Move.String()),
			zap.String("piece", tr.Piece.String()),
			zap.String("captured", tr.Captured.String()),
			zap.String("turn", updated.State.Turn.String()),
			zap.Int("cursor", updated.State.Cursor),
		)
		if updated.Outcome.Over {
			s.finish(ctx, updated)
		}
		updated = s.refreshSuggestion(ctx, ls, updated)
	} else {
		log.Debug("selection changed", zap.String("transition", tr.Kind.String()))
	}
	s.hub.publishTransition(updated, tr)
	return &Result{Session: updated, Transition: tr}, nil
}

// refreshSuggestion asks for a new suggestion when it is the player's turn and
// clears it otherwise.
func (s *Service) refreshSuggestion(ctx context.Context, ls *liveSession, sess *store.Session) *store.Session {
	snapshot := sess.State.Clone()
	var sug suggest.Suggestion
	if !sess.Outcome.Over && snapshot.Turn == sess.Player {
		sug = ls.suggester.Suggest(ctx, snapshot, s.deliverFunc(sess.ID, snapshot))
	} else {
		ls.suggester.Cancel()
	}
	if sug == sess.Suggestion {
		return sess
	}

	updated, err := s.store.Update(ctx, sess.ID, func(cur *store.Session) error {
		if !samePosition(cur.State, snapshot) {
			return errSkip
		}
		// 엔진이 이미 이 요청을 전달했을 수 있음
		if sug.ID != 0 && cur.Suggestion.ID == sug.ID && !cur.Suggestion.Pending {
			return errSkip
		}
		cur.Suggestion = sug
		return nil
	})
	if err != nil {
		if !errors.Is(err, errSkip) {
			s.logger.Warn("store suggestion failed", zap.String("session_id", sess.ID), zap.Error(err))
			return sess
		}
		if latest, gerr := s.store.Get(ctx, sess.ID); gerr == nil {
			return latest
		}
		return sess
	}
	return updated
}

// deliverFunc stores an engine suggestion if the board has not moved on.
// It runs under the suggester's lock, so it only touches the store and hub.
func (s *Service) deliverFunc(id string, snapshot game.State) func(suggest.Suggestion) {
	return func(sug suggest.Suggestion) {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		defer cancel()
		updated, err := s.store.Update(ctx, id, func(cur *store.Session) error {
			if cur.Outcome.Over || !samePosition(cur.State, snapshot) {
				return errSkip
			}
			cur.Suggestion = sug
			return nil
		})
		log := s.logger.With(zap.String("session_id", id), zap.Uint64("request_id", sug.ID))
		if err != nil {
			if errors.Is(err, errSkip) {
				log.Debug("suggestion for old position dropped")
			} else {
				log.Warn("deliver suggestion failed", zap.Error(err))
			}
			return
		}
		log.Debug("suggestion delivered", zap.String("from", sug.From), zap.String("to", sug.To))
		s.hub.publish(updated, ReasonSuggestion)
	}
}

func samePosition(a, b game.State) bool {
	return a.Board == b.Board && a.Turn == b.Turn && len(a.History) == len(b.History)
}
