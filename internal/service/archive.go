package service

import (
	"context"
	"errors"

	"github.com/park285/chessboard-demo/internal/archive"
	"github.com/park285/chessboard-demo/internal/game"
	"github.com/park285/chessboard-demo/internal/rules"
	"github.com/park285/chessboard-demo/internal/store"
	"go.uber.org/zap"
)

func (s *Service) finish(ctx context.Context, sess *store.Session) {
	result := archive.ResultDraw
	if !sess.Outcome.Draw {
		result = sess.Outcome.Winner.String()
	}
	s.logger.Info("game over",
		zap.String("session_id", sess.ID),
		zap.String("result", result),
		zap.String("method", sess.Outcome.Method),
		zap.Int("plies", len(sess.State.History)),
	)
	s.archiveGame(ctx, sess, result, sess.Outcome.Method)
}

// archiveGame writes the game to the archive. Failures are logged only; the
// session itself is already stored.
func (s *Service) archiveGame(ctx context.Context, sess *store.Session, result, method string) {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ArchiveTimeout)
	defer cancel()

	moves := make([]string, len(sess.State.History))
	for i, mv := range sess.State.History {
		moves[i] = mv.String()
	}
	fen := sess.State.FEN()
	if r, err := s.rulesFor(sess.Variant, sess.Player); err == nil {
		fen = game.FENFor(r, sess.State)
	}
	now := s.now().UTC()
	rec := &archive.GameRecord{
		SessionID: sess.ID,
		GameNo:    sess.GameNo,
		Variant:   sess.Variant,
		Player:    sess.Player.String(),
		Result:    result,
		Method:    method,
		MovesUCI:  moves,
		FinalFEN:  fen,
		StartedAt: sess.StartedAt,
		EndedAt:   now,
		Duration:  now.Sub(sess.StartedAt),
	}
	if sess.Variant == rules.VariantStandard {
		rec.PGN = archive.BuildPGN(rec)
	}

	log := s.logger.With(zap.String("session_id", sess.ID), zap.Int("game_no", sess.GameNo))
	id, err := s.repo.InsertGame(ctx, rec)
	if err != nil {
		if errors.Is(err, archive.ErrDuplicateGame) {
			log.Debug("game already archived")
			return
		}
		log.Warn("archive game failed", zap.Error(err))
		return
	}
	log.Info("game archived", zap.Int64("game_id", id), zap.String("result", result))
}
