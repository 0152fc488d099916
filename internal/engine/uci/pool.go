package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
)

var ErrPoolClosed = errors.New("engine pool closed")

type PoolConfig struct {
	BinaryPath string
	// Capacity caps live processes per distinct Options value.
	Capacity int
}

// Pool keeps idle engine sessions grouped by the options they were started
// with, so a session is never reconfigured between searches.
type Pool struct {
	binaryPath string
	capacity   int

	mu       sync.Mutex
	closed   bool
	groups   map[Options]*group
	sessions map[*Session]*group
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	return &Pool{
		binaryPath: cfg.BinaryPath,
		capacity:   capacity,
		groups:     make(map[Options]*group),
		sessions:   make(map[*Session]*group),
	}, nil
}

// Search runs one best-move search on a pooled session. Sessions that fail
// are discarded instead of returned.
func (p *Pool) Search(ctx context.Context, opt Options, req SearchRequest) (string, error) {
	session, err := p.Acquire(ctx, opt)
	if err != nil {
		return "", err
	}
	var releaseErr error
	defer func() { p.Release(session, releaseErr) }()

	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return "", err
	}
	mv, err := session.BestMove(ctx, req)
	if err != nil && !errors.Is(err, ErrNoBestMove) {
		releaseErr = err
	}
	return mv, err
}

func (p *Pool) Acquire(ctx context.Context, opt Options) (*Session, error) {
	g, err := p.group(opt)
	if err != nil {
		return nil, err
	}

	for {
		if s, ok := g.tryIdle(); ok {
			if ready(ctx, g, s) {
				p.track(s, g)
				return s, nil
			}
			continue
		}

		s, err := g.spawn(ctx)
		if err == nil {
			p.track(s, g)
			return s, nil
		}
		if !errors.Is(err, errGroupFull) {
			return nil, err
		}

		select {
		case s := <-g.idle:
			if s == nil || !ready(ctx, g, s) {
				continue
			}
			p.track(s, g)
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	p.mu.Lock()
	g, ok := p.sessions[s]
	delete(p.sessions, s)
	closed := p.closed
	p.mu.Unlock()

	if !ok {
		_ = s.Close()
		return
	}
	if err != nil || closed || !g.put(s) {
		g.drop(s)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	groups := make([]*group, 0, len(p.groups))
	for _, g := range p.groups {
		groups = append(groups, g)
	}
	p.mu.Unlock()

	var errs []error
	for _, g := range groups {
		errs = append(errs, g.drain()...)
	}
	return errors.Join(errs...)
}

// ready pings an idle session and drops it from g when it no longer answers.
func ready(ctx context.Context, g *group, s *Session) bool {
	if err := s.EnsureReady(ctx); err != nil {
		g.drop(s)
		return false
	}
	return true
}

func (p *Pool) track(s *Session, g *group) {
	p.mu.Lock()
	p.sessions[s] = g
	p.mu.Unlock()
}

func (p *Pool) group(opt Options) (*group, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	g, ok := p.groups[opt]
	if !ok {
		g = &group{
			binaryPath: p.binaryPath,
			opt:        opt,
			capacity:   p.capacity,
			idle:       make(chan *Session, p.capacity),
		}
		p.groups[opt] = g
	}
	return g, nil
}

type group struct {
	binaryPath string
	opt        Options
	capacity   int

	mu    sync.Mutex
	total int
	idle  chan *Session
}

var errGroupFull = errors.New("engine group at capacity")

func (g *group) tryIdle() (*Session, bool) {
	select {
	case s := <-g.idle:
		return s, s != nil
	default:
		return nil, false
	}
}

func (g *group) spawn(ctx context.Context) (*Session, error) {
	g.mu.Lock()
	if g.total >= g.capacity {
		g.mu.Unlock()
		return nil, errGroupFull
	}
	g.total++
	g.mu.Unlock()

	s, err := NewSession(ctx, g.binaryPath, g.opt)
	if err != nil {
		g.decrement()
		return nil, err
	}
	return s, nil
}

func (g *group) put(s *Session) bool {
	select {
	case g.idle <- s:
		return true
	default:
		return false
	}
}

func (g *group) drop(s *Session) {
	_ = s.Close()
	g.decrement()
}

func (g *group) drain() []error {
	var errs []error
	for {
		select {
		case s := <-g.idle:
			if s == nil {
				continue
			}
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			g.decrement()
		default:
			return errs
		}
	}
}

func (g *group) decrement() {
	g.mu.Lock()
	if g.total > 0 {
		g.total--
	}
	g.mu.Unlock()
}

func defaultCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 4 {
		return 4
	}
	return cpu
}
