package suggest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/park285/chessboard-demo/internal/board"
	"github.com/park285/chessboard-demo/internal/game"
	"github.com/park285/chessboard-demo/internal/msgcat"
	"go.uber.org/zap"
)

// BestMover is the engine call behind Engine.
type BestMover interface {
	BestMove(ctx context.Context, fen string) (string, error)
}

// Engine asks a BestMover in the background. Each request gets the next id,
// cancels the one before it, and only the latest id may deliver. Deliver runs
// with the Engine's lock held and must not call back into it.
type Engine struct {
	mover  BestMover
	rules  game.Rules
	cat    *msgcat.Catalog
	logger *zap.Logger

	seq    atomic.Uint64
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEngine(mover BestMover, rules game.Rules, cat *msgcat.Catalog, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cat == nil {
		cat = msgcat.Default()
	}
	return &Engine{mover: mover, rules: rules, cat: cat, logger: logger}
}

func (e *Engine) Suggest(ctx context.Context, st game.State, deliver func(Suggestion)) Suggestion {
	fen := game.FENFor(e.rules, st)

	// The search outlives the caller's request; only Cancel or a newer
	// request stops it.
	reqCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.mu.Lock()
	id := e.seq.Add(1)
	if e.cancel != nil {
		e.cancel()
	}
	e.cancel = cancel
	e.mu.Unlock()

	pending := Suggestion{
		ID:      id,
		Text:    e.cat.Text("suggestion.calculating", nil),
		Pending: true,
	}

	snapshot := st.Clone()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		e.run(reqCtx, id, fen, snapshot, deliver)
	}()
	return pending
}

func (e *Engine) run(ctx context.Context, id uint64, fen string, st game.State, deliver func(Suggestion)) {
	log := e.logger.With(zap.Uint64("request_id", id))
	raw, err := e.mover.BestMove(ctx, fen)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("suggestion cancelled")
			return
		}
		// The suggestion stays pending.
		log.Warn("suggestion failed", zap.String("fen", fen), zap.Error(err))
		return
	}
	mv, err := board.ParseMove(raw)
	if err != nil {
		log.Warn("malformed engine move ignored", zap.String("move", raw))
		return
	}
	out := forMove(e.cat, st, mv)
	out.ID = id

	// Suggest and Cancel bump seq under mu, so the check and the delivery
	// cannot interleave with a newer request.
	e.mu.Lock()
	defer e.mu.Unlock()
	if id != e.seq.Load() {
		log.Debug("stale suggestion discarded", zap.String("move", raw))
		return
	}
	if deliver != nil {
		deliver(out)
	}
}

// Cancel stops the outstanding request, if any, and marks every earlier id stale.
func (e *Engine) Cancel() {
	e.mu.Lock()
	e.seq.Add(1)
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()
}

// Wait blocks until every background request has returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}
