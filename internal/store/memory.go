package store

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	session  *Session
	expireAt time.Time
}

// Memory is the in-process store used when no REDIS_URL is configured.
type Memory struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]entry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, m: make(map[string]entry)}
}

func (s *Memory) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(sess.ID); ok {
		return ErrExists
	}
	s.put(sess.Clone())
	return nil
}

func (s *Memory) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(id)
	if !ok {
		return nil, ErrNotFound
	}
	return e.session.Clone(), nil
}

func (s *Memory) Update(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(id)
	if !ok {
		return nil, ErrNotFound
	}
	cur := e.session.Clone()
	if err := fn(cur); err != nil {
		return nil, err
	}
	cur.Version++
	cur.UpdatedAt = s.now()
	s.put(cur)
	return cur.Clone(), nil
}

func (s *Memory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(id); !ok {
		return ErrNotFound
	}
	delete(s.m, id)
	return nil
}

func (s *Memory) Close() error { return nil }

// 만료된 항목은 조회 시 제거
func (s *Memory) live(id string) (entry, bool) {
	e, ok := s.m[id]
	if !ok {
		return entry{}, false
	}
	if !e.expireAt.IsZero() && s.now().After(e.expireAt) {
		delete(s.m, id)
		return entry{}, false
	}
	return e, true
}

func (s *Memory) put(sess *Session) {
	e := entry{session: sess}
	if s.ttl > 0 {
		e.expireAt = s.now().Add(s.ttl)
	}
	s.m[sess.ID] = e
}
