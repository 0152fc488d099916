// Package builder assembles the board server from configuration.
package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/chessboard-demo/internal/archive"
	"github.com/park285/chessboard-demo/internal/config"
	"github.com/park285/chessboard-demo/internal/engine"
	"github.com/park285/chessboard-demo/internal/msgcat"
	"github.com/park285/chessboard-demo/internal/presenter"
	"github.com/park285/chessboard-demo/internal/rules"
	"github.com/park285/chessboard-demo/internal/server"
	"github.com/park285/chessboard-demo/internal/service"
	"github.com/park285/chessboard-demo/internal/store"
	"github.com/park285/chessboard-demo/internal/suggest"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

type Deps struct {
	Service *service.Service
	Server  *server.Server
	Store   store.Store
	Repo    archive.Repository
	Engine  *engine.Engine

	logger *zap.Logger
}

// New builds every dependency. Redis, Postgres and the engine are optional;
// without them sessions and archives stay in memory and standard games get no
// suggestions.
func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{logger: logger}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	scripts, err := rules.LoadScripts(cfg.ScriptFile)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	// 세션 스토어 (Redis 선택)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rs, err := store.OpenRedis(ctx, cfg.RedisURL, cfg.SessionTTL())
		if err != nil {
			return nil, fmt.Errorf("init session store: %w", err)
		}
		d.Store = rs
		logger.Info("session store: redis")
	} else {
		d.Store = store.NewMemory(cfg.SessionTTL())
		logger.Info("session store: memory")
	}

	// 대국 기록 (Postgres 선택)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := archive.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		d.Repo = repo
		logger.Info("game archive: postgres")
	} else {
		d.Repo = archive.NewMemory()
		logger.Info("game archive: memory")
	}

	// Engine (optional)
	var mover suggest.BestMover
	if cfg.EngineEnabled() {
		eng, err := engine.New(engine.Config{
			BinaryPath: cfg.StockfishPath,
			Depth:      cfg.EngineDepth,
			PoolSize:   cfg.EnginePoolSize,
			Threads:    cfg.EngineThreads,
			HashMB:     cfg.EngineHashMB,
		}, logger)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init engine: %w", err)
		}
		d.Engine = eng
		mover = eng
		logger.Info("engine ready", zap.String("path", cfg.StockfishPath), zap.Int("depth", eng.Depth()))
	} else {
		logger.Warn("STOCKFISH_PATH not set; standard games run without suggestions")
	}

	svc, err := service.New(d.Store, d.Repo, mover, cat, service.Config{
		DefaultVariant: cfg.DefaultVariant,
		Scripts:        scripts,
	}, logger)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Service = svc
	d.Server = server.New(svc, presenter.New(cat), server.Config{
		AllowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
	}, logger)
	return d, nil
}

// Close stops pending suggestions and releases the backends.
func (d *Deps) Close() error {
	if d.Service != nil {
		d.Service.Close()
	}
	var errs []error
	if d.Engine != nil {
		errs = append(errs, d.Engine.Close())
	}
	if d.Repo != nil {
		errs = append(errs, d.Repo.Close())
	}
	if d.Store != nil {
		errs = append(errs, d.Store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		d.logger.Warn("close dependencies", zap.Error(err))
		return err
	}
	return nil
}
