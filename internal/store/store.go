// Package store keeps live board sessions, in memory or in Redis.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/park285/chessboard-demo/internal/board"
	"github.com/park285/chessboard-demo/internal/game"
	"github.com/park285/chessboard-demo/internal/suggest"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
	ErrConflict = errors.New("session changed concurrently")
)

// Session is one player's board. Version increases on every stored change;
// GameNo increases on every reset.
type Session struct {
	ID         string             `json:"id"`
	Variant    string             `json:"variant"`
	Player     board.Side         `json:"player"`
	State      game.State         `json:"state"`
	Suggestion suggest.Suggestion `json:"suggestion"`
	Outcome    game.Outcome       `json:"outcome"`
	GameNo     int                `json:"game_no"`
	Version    int64              `json:"version"`
	CreatedAt  time.Time          `json:"created_at"`
	StartedAt  time.Time          `json:"started_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Clone copies the session without sharing the history slice.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.State = s.State.Clone()
	return &out
}

// Store persists sessions. Update runs fn against the current session and
// stores the result atomically; fn may run more than once on contention.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
