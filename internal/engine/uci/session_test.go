package uci

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

const fakeEngine = `#!/bin/sh
while read line; do
  case "$line" in
    uci) echo "id name fake"; echo "uciok" ;;
    isready) echo "readyok" ;;
    "position fen 8/8/8/8/8/8/8/k6K w - - 0 1") stalemate=1 ;;
    position*) stalemate= ;;
    go*)
      echo "info depth 1 score cp 20 pv e2e4 e7e5"
      if [ -n "$stalemate" ]; then echo "bestmove (none)"; else echo "bestmove e2e4 ponder e7e5"; fi ;;
    quit) exit 0 ;;
  esac
done
`

func writeFakeEngine(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}
	path := filepath.Join(t.TempDir(), "engine.sh")
	if err := os.WriteFile(path, []byte(fakeEngine), 0o755); err != nil {
		t.Fatalf("write fake engine: %v", err)
	}
	return path
}

func TestParseBestMove(t *testing.T) {
	mv, ok := ParseBestMove("bestmove e2e4 ponder e7e5")
	if !ok || mv != "e2e4" {
		t.Fatalf("got %q %v", mv, ok)
	}
	if mv, ok := ParseBestMove("bestmove e7e8q"); !ok || mv != "e7e8q" {
		t.Fatalf("promotion move lost: %q", mv)
	}
	for _, line := range []string{"info depth 3 pv e2e4", "readyok", "", "  ", "bestmovee2e4", "xbestmove e2e4"} {
		if _, ok := ParseBestMove(line); ok {
			t.Fatalf("line %q should not match", line)
		}
	}
	for _, line := range []string{"bestmove", "bestmove (none)", "bestmove e2"} {
		mv, ok := ParseBestMove(line)
		if !ok || mv != "" {
			t.Fatalf("line %q: got %q %v", line, mv, ok)
		}
	}
}

func TestBuildCommands(t *testing.T) {
	if got := BuildPositionCommand("", nil); got != "position startpos\n" {
		t.Fatalf("startpos: %q", got)
	}
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	if got := BuildPositionCommand(fen, nil); got != "position fen "+fen+"\n" {
		t.Fatalf("fen: %q", got)
	}
	if got := BuildPositionCommand("startpos", []string{"e2e4", "e7e5"}); got != "position startpos moves e2e4 e7e5\n" {
		t.Fatalf("moves: %q", got)
	}
	tokens, err := BuildGoTokens(Limits{Depth: 10})
	if err != nil || len(tokens) != 3 || tokens[1] != "depth" || tokens[2] != "10" {
		t.Fatalf("go tokens %v err=%v", tokens, err)
	}
	if _, err := BuildGoTokens(Limits{}); err == nil {
		t.Fatalf("expected error without limits")
	}
}

func TestValidateOptions(t *testing.T) {
	if err := validateOptions(Options{}); err != nil {
		t.Fatalf("zero options should be valid: %v", err)
	}
	if err := validateOptions(Options{SkillLevel: 21}); err == nil {
		t.Fatalf("expected skill level error")
	}
	if err := validateOptions(Options{HashMB: -1}); err == nil {
		t.Fatalf("expected hash error")
	}
}

func TestSessionBestMove(t *testing.T) {
	bin := writeFakeEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := NewSession(ctx, bin, Options{Threads: 1, HashMB: 16})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	if err := s.NewGame(ctx); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	mv, err := s.BestMove(ctx, SearchRequest{
		FEN:    "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		Limits: Limits{Depth: 4},
	})
	if err != nil || mv != "e2e4" {
		t.Fatalf("BestMove: %q %v", mv, err)
	}
	if _, err := s.BestMove(ctx, SearchRequest{FEN: "8/8/8/8/8/8/8/k6K w - - 0 1", Limits: Limits{Depth: 1}}); err != ErrNoBestMove {
		t.Fatalf("expected ErrNoBestMove, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSessionReadHonoursContext(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}
	// Answers the handshake and then never replies to go.
	script := "#!/bin/sh\nwhile read line; do\n  case \"$line\" in\n    uci) echo uciok ;;\n    isready) echo readyok ;;\n  esac\ndone\n"
	path := filepath.Join(t.TempDir(), "mute.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := NewSession(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := s.BestMove(ctx, SearchRequest{Limits: Limits{Depth: 1}}); err == nil {
		t.Fatalf("expected timeout")
	}
}

func TestPoolSearchReusesSession(t *testing.T) {
	bin := writeFakeEngine(t)
	pool, err := NewPool(PoolConfig{BinaryPath: bin, Capacity: 1})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	opt := Options{Threads: 1}
	for i := 0; i < 3; i++ {
		mv, err := pool.Search(ctx, opt, SearchRequest{Limits: Limits{Depth: 2}})
		if err != nil || mv != "e2e4" {
			t.Fatalf("search %d: %q %v", i, mv, err)
		}
	}
	g, _ := pool.group(opt)
	if g.total != 1 || len(g.idle) != 1 {
		t.Fatalf("expected one pooled session, total=%d idle=%d", g.total, len(g.idle))
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := pool.Acquire(ctx, opt); err != ErrPoolClosed {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestNewPoolRequiresBinary(t *testing.T) {
	if _, err := NewPool(PoolConfig{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := NewPool(PoolConfig{BinaryPath: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatalf("expected error for missing binary")
	}
}
