package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestNewMissingBinary(t *testing.T) {
	_, err := New(Config{BinaryPath: filepath.Join(t.TempDir(), "stockfish")}, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestBestMoveUsesConfiguredDepth(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}
	// Replies with a move only when asked for depth 7.
	script := `#!/bin/sh
while read line; do
  case "$line" in
    uci) echo uciok ;;
    isready) echo readyok ;;
    "go depth 7") echo "bestmove g1f3" ;;
    go*) echo "bestmove a2a3" ;;
  esac
done
`
	bin := filepath.Join(t.TempDir(), "engine.sh")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	e, err := New(Config{BinaryPath: bin, Depth: 7, PoolSize: 1}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mv, err := e.BestMove(ctx, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if err != nil || mv != "g1f3" {
		t.Fatalf("BestMove: %q %v", mv, err)
	}
	if e.Depth() != 7 {
		t.Fatalf("depth %d", e.Depth())
	}
}
