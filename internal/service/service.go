// Package service owns board sessions: it runs user interactions through the
// game model, keeps the suggestion current and archives finished games.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chessboard-demo/internal/archive"
	"github.com/park285/chessboard-demo/internal/board"
	"github.com/park285/chessboard-demo/internal/game"
	"github.com/park285/chessboard-demo/internal/msgcat"
	"github.com/park285/chessboard-demo/internal/rules"
	"github.com/park285/chessboard-demo/internal/store"
	"github.com/park285/chessboard-demo/internal/suggest"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound   = errors.New("board session not found")
	ErrUnknownVariant    = errors.New("unknown board variant")
	ErrInvalidSquare     = errors.New("invalid square")
	ErrInvalidSide       = errors.New("invalid side")
	ErrEngineUnavailable = errors.New("suggestion engine unavailable")
	ErrGameOver          = errors.New("game is over")
)

// errSkip aborts a store update without reporting a failure.
var errSkip = errors.New("skip update")

const (
	defaultArchiveTimeout = 5 * time.Second
	defaultSweepInterval  = time.Minute
	deliverTimeout        = 5 * time.Second
)

type Config struct {
	DefaultVariant string
	Scripts        rules.Scripts
	ArchiveTimeout time.Duration
	// 만료된 세션의 프로세스 내 상태를 정리하는 주기
	SweepInterval time.Duration
}

// Result is the session after an interaction plus what the interaction did.
type Result struct {
	Session    *store.Session
	Transition game.Transition
}

type Service struct {
	store  store.Store
	repo   archive.Repository
	mover  suggest.BestMover
	cat    *msgcat.Catalog
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	live map[string]*liveSession
	hub  *hub

	stop     chan struct{}
	stopOnce sync.Once
	sweeper  sync.WaitGroup
}

// liveSession is the in-process part of a session that cannot be stored.
type liveSession struct {
	variant   string
	player    board.Side
	rules     game.Rules
	suggester suggest.Suggester
}

// New wires the service. mover may be nil, in which case standard games get
// no engine suggestions.
func New(st store.Store, repo archive.Repository, mover suggest.BestMover, cat *msgcat.Catalog, cfg Config, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("session store not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cat == nil {
		cat = msgcat.Default()
	}
	cfg.DefaultVariant = rules.NormalizeVariant(cfg.DefaultVariant)
	if cfg.DefaultVariant == "" {
		cfg.DefaultVariant = rules.VariantScripted
	}
	if cfg.Scripts.White == nil && cfg.Scripts.Black == nil {
		cfg.Scripts = rules.DefaultScripts()
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = defaultArchiveTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	s := &Service{
		store:  st,
		repo:   repo,
		mover:  mover,
		cat:    cat,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		live:   make(map[string]*liveSession),
		hub:    newHub(),
		stop:   make(chan struct{}),
	}
	s.sweeper.Add(1)
	go s.sweepLoop()
	return s, nil
}

// Catalog returns the message catalog used for suggestion texts.
func (s *Service) Catalog() *msgcat.Catalog { return s.cat }

// Start creates a session. An empty variant uses the configured default and an
// empty side means white.
func (s *Service) Start(ctx context.Context, variant, side string) (*store.Session, error) {
	v := rules.NormalizeVariant(variant)
	if v == "" {
		v = s.cfg.DefaultVariant
	}
	player, err := parseSide(side, board.White)
	if err != nil {
		return nil, err
	}
	if _, err := s.rulesFor(v, player); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sess := &store.Session{
		ID:        uuid.NewString(),
		Variant:   v,
		Player:    player,
		State:     game.New(),
		GameNo:    1,
		CreatedAt: now,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	ls, err := s.liveFor(sess)
	if err != nil {
		return nil, err
	}
	s.logger.Info("board session started",
		zap.String("session_id", sess.ID),
		zap.String("variant", v),
		zap.String("player", player.String()),
	)
	return s.refreshSuggestion(ctx, ls, sess), nil
}

func (s *Service) View(ctx context.Context, id string) (*store.Session, error) {
	return s.get(ctx, id)
}

// Reset starts a new game in the same session. An empty side keeps the
// current one. An unfinished game with moves is archived as abandoned.
func (s *Service) Reset(ctx context.Context, id, side string) (*store.Session, error) {
	cur, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	player, err := parseSide(side, cur.Player)
	if err != nil {
		return nil, err
	}

	var before *store.Session
	updated, err := s.store.Update(ctx, id, func(sess *store.Session) error {
		before = sess.Clone()
		sess.Player = player
		sess.State = game.New()
		sess.Outcome = game.Outcome{}
		sess.Suggestion = suggest.Suggestion{}
		sess.GameNo++
		sess.StartedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, s.storeErr(id, err)
	}
	if before != nil && !before.Outcome.Over && len(before.State.History) > 0 {
		s.archiveGame(ctx, before, archive.ResultAbandoned, "reset")
	}

	ls, err := s.liveFor(updated)
	if err != nil {
		return nil, err
	}
	s.logger.Info("board session reset",
		zap.String("session_id", id),
		zap.Int("game_no", updated.GameNo),
		zap.String("player", player.String()),
	)
	updated = s.refreshSuggestion(ctx, ls, updated)
	s.hub.publish(updated, ReasonReset)
	return updated, nil
}

// Delete removes the session and closes its subscriptions.
func (s *Service) Delete(ctx context.Context, id string) error {
	cur, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return mapStoreErr(id, err)
	}
	if !cur.Outcome.Over && len(cur.State.History) > 0 {
		s.archiveGame(ctx, cur, archive.ResultAbandoned, "deleted")
	}

	s.forget(id)

	s.logger.Info("board session deleted", zap.String("session_id", id))
	return nil
}

// RequestSuggestion recomputes the suggestion for the current position.
func (s *Service) RequestSuggestion(ctx context.Context, id string) (*store.Session, error) {
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
	if _, ok := ls.suggester.(*suggest.Unavailable); ok {
		return nil, ErrEngineUnavailable
	}
	updated := s.refreshSuggestion(ctx, ls, cur)
	s.hub.publish(updated, ReasonSuggestion)
	return updated, nil
}

// RulesFor exposes the rule set of a session, for FEN rendering.
func (s *Service) RulesFor(sess *store.Session) (game.Rules, error) {
	ls, err := s.liveFor(sess)
	if err != nil {
		return nil, err
	}
	return ls.rules, nil
}

func (s *Service) RecentGames(ctx context.Context, limit int) ([]*archive.GameRecord, error) {
	if s.repo == nil {
		return []*archive.GameRecord{}, nil
	}
	return s.repo.Recent(ctx, limit)
}

func (s *Service) SessionGames(ctx context.Context, id string) ([]*archive.GameRecord, error) {
	if s.repo == nil {
		return []*archive.GameRecord{}, nil
	}
	return s.repo.ListBySession(ctx, id)
}

// Close stops every outstanding suggestion request.
func (s *Service) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.sweeper.Wait()
	s.mu.Lock()
	live := s.live
	s.live = make(map[string]*liveSession)
	s.mu.Unlock()
	for _, ls := range live {
		ls.suggester.Cancel()
	}
	for _, ls := range live {
		if w, ok := ls.suggester.(interface{ Wait() }); ok {
			w.Wait()
		}
	}
}

func (s *Service) get(ctx context.Context, id string) (*store.Session, error) {
	sess, err := s.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, s.storeErr(id, err)
	}
	return sess, nil
}

// storeErr maps store errors and drops in-process state of sessions the store
// no longer has.
func (s *Service) storeErr(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		s.forget(strings.TrimSpace(id))
	}
	return mapStoreErr(id, err)
}

// forget: 제안 요청 취소 + 구독 채널 종료
func (s *Service) forget(id string) {
	s.mu.Lock()
	if ls, ok := s.live[id]; ok {
		ls.suggester.Cancel()
		delete(s.live, id)
	}
	s.mu.Unlock()
	s.hub.closeSession(id)
}

func (s *Service) sweepLoop() {
	defer s.sweeper.Done()
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SweepInterval)
			s.sweep(ctx)
			cancel()
		}
	}
}

// 스토어 TTL로 사라진 세션의 live 항목 정리
func (s *Service) sweep(ctx context.Context) int {
	s.mu.Lock()
	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	dropped := 0
	for _, id := range ids {
		_, err := s.store.Get(ctx, id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.forget(id)
			dropped++
		case err != nil:
			s.logger.Warn("session sweep failed", zap.String("session_id", id), zap.Error(err))
			return dropped
		}
	}
	if dropped > 0 {
		s.logger.Debug("expired sessions dropped", zap.Int("count", dropped))
	}
	return dropped
}

// liveFor returns the cached rules and suggester, rebuilding them when the
// session changed variant or side.
func (s *Service) liveFor(sess *store.Session) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ls, ok := s.live[sess.ID]; ok && ls.variant == sess.Variant && ls.player == sess.Player {
		return ls, nil
	}
	r, err := s.rulesFor(sess.Variant, sess.Player)
	if err != nil {
		return nil, err
	}
	if old, ok := s.live[sess.ID]; ok {
		old.suggester.Cancel()
	}
	ls := &liveSession{
		variant:   sess.Variant,
		player:    sess.Player,
		rules:     r,
		suggester: s.suggesterFor(sess.ID, r),
	}
	s.live[sess.ID] = ls
	return ls, nil
}

func (s *Service) rulesFor(variant string, player board.Side) (game.Rules, error) {
	r, err := rules.New(variant, player, s.cfg.Scripts)
	if err != nil {
		if errors.Is(err, rules.ErrUnknownVariant) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
		}
		return nil, err
	}
	return r, nil
}

func (s *Service) suggesterFor(id string, r game.Rules) suggest.Suggester {
	if scripted, ok := r.(rules.Scripted); ok {
		return suggest.NewScript(scripted, s.cat)
	}
	if s.mover == nil {
		return suggest.NewUnavailable(s.cat)
	}
	return suggest.NewEngine(s.mover, r, s.cat, s.logger.With(zap.String("session_id", id)))
}

func parseSide(side string, fallback board.Side) (board.Side, error) {
	if strings.TrimSpace(side) == "" {
		return fallback, nil
	}
	p, err := board.ParseSide(side)
	if err != nil {
		return fallback, fmt.Errorf("%w: %v", ErrInvalidSide, err)
	}
	return p, nil
}

func mapStoreErr(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return err
}
