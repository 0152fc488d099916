// Package engine wraps the pooled UCI client behind a best-move call.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/chessboard-demo/internal/engine/uci"
	"go.uber.org/zap"
)

const defaultDepth = 10

var ErrUnavailable = errors.New("engine unavailable")

type Config struct {
	BinaryPath string
	Depth      int
	PoolSize   int
	Threads    int
	HashMB     int
}

type Engine struct {
	pool   *uci.Pool
	opt    uci.Options
	limits uci.Limits
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: cfg.BinaryPath, Capacity: cfg.PoolSize})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	depth := cfg.Depth
	if depth <= 0 {
		depth = defaultDepth
	}
	return &Engine{
		pool:   pool,
		opt:    uci.Options{Threads: cfg.Threads, HashMB: cfg.HashMB},
		limits: uci.Limits{Depth: depth},
		logger: logger,
	}, nil
}

// BestMove asks the engine for its move in the given FEN position with
// "go depth N". The returned move is in coordinate notation.
func (e *Engine) BestMove(ctx context.Context, fen string) (string, error) {
	start := time.Now()
	mv, err := e.pool.Search(ctx, e.opt, uci.SearchRequest{FEN: fen, Limits: e.limits})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		e.logger.Warn("engine search failed",
			zap.String("fen", fen),
			zap.Int("depth", e.limits.Depth),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	e.logger.Debug("engine best move",
		zap.String("fen", fen),
		zap.String("move", mv),
		zap.Duration("elapsed", time.Since(start)))
	return mv, nil
}

func (e *Engine) Depth() int { return e.limits.Depth }

func (e *Engine) Close() error {
	return e.pool.Close()
}
