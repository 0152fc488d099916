package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/chessboard-demo/internal/board"
	"github.com/park285/chessboard-demo/internal/game"
	"github.com/redis/go-redis/v9"
)

func newSession(id string) *Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &Session{
		ID:        id,
		Variant:   "scripted",
		Player:    board.Black,
		State:     game.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedis(rdb, time.Hour), mr
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Create(ctx, newSession("s1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, newSession("s1")); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Player != board.Black || got.State.Board != board.Starting() || got.State.Turn != board.White {
		t.Fatalf("session did not round trip: %+v", got)
	}

	updated, err := s.Update(ctx, "s1", func(sess *Session) error {
		sess.State, _ = game.Click(sess.State, allowAll{}, board.MustSquare("e2"))
		sess.State, _ = game.Click(sess.State, allowAll{}, board.MustSquare("e4"))
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Version != 1 || len(updated.State.History) != 1 || updated.State.Turn != board.Black {
		t.Fatalf("unexpected update result %+v", updated)
	}
	again, _ := s.Get(ctx, "s1")
	if again.State.Board.At(board.MustSquare("e4")) != 'P' || again.State.History[0] != board.MustMove("e2e4") {
		t.Fatalf("update not persisted")
	}

	boom := errors.New("boom")
	if _, err := s.Update(ctx, "s1", func(*Session) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if cur, _ := s.Get(ctx, "s1"); cur.Version != 1 {
		t.Fatalf("failed update must not be stored, version=%d", cur.Version)
	}
	if _, err := s.Update(ctx, "nope", func(*Session) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}

	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

type allowAll struct{}

func (allowAll) Name() string                      { return "all" }
func (allowAll) Legal(game.State, board.Move) bool { return true }
func (allowAll) Apply(s game.State, m board.Move) game.State {
	s.Board.Apply(m)
	return s
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory(time.Hour))
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedisStore(t)
	exerciseStore(t, s)
}

func TestMemoryExpiry(t *testing.T) {
	s := NewMemory(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()
	_ = s.Create(ctx, newSession("s1"))

	now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session should be gone, got %v", err)
	}
}

func TestRedisTTL(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()
	_ = s.Create(ctx, newSession("s1"))
	if ttl := mr.TTL(sessionKey("s1")); ttl != time.Hour {
		t.Fatalf("ttl %v", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := s.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session should be gone, got %v", err)
	}
}

func TestConcurrentUpdatesAreSerialised(t *testing.T) {
	for name, s := range map[string]Store{
		"memory": NewMemory(time.Hour),
		"redis":  func() Store { r, _ := newRedisStore(t); return r }(),
	} {
		ctx := context.Background()
		if err := s.Create(ctx, newSession("c")); err != nil {
			t.Fatalf("%s Create: %v", name, err)
		}
		var wg sync.WaitGroup
		var mu sync.Mutex
		okCount := 0
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Update(ctx, "c", func(sess *Session) error {
					sess.State.Cursor++
					return nil
				}); err == nil {
					mu.Lock()
					okCount++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		cur, _ := s.Get(ctx, "c")
		if int(cur.Version) != okCount || cur.State.Cursor != okCount {
			t.Fatalf("%s: lost update, version=%d cursor=%d ok=%d", name, cur.Version, cur.State.Cursor, okCount)
		}
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@localhost:6379/2")
	if err != nil || opts.Addr != "localhost:6379" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected options %+v err=%v", opts, err)
	}
	if opts.TLSConfig != nil {
		t.Fatalf("plain redis:// must not enable TLS")
	}

	opts, err = parseRedisURL("rediss://user:pw@cache.example.com/0")
	if err != nil {
		t.Fatalf("rediss: %v", err)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.ServerName != "cache.example.com" {
		t.Fatalf("rediss:// must enable TLS for the host, got %+v", opts.TLSConfig)
	}
	if opts.Addr != "cache.example.com:6379" || opts.Username != "user" || opts.Password != "pw" {
		t.Fatalf("unexpected rediss options %+v", opts)
	}
	if _, err := parseRedisURL("http://localhost"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
