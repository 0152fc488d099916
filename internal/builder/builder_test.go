package builder

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/park285/chessboard-demo/internal/config"
	"github.com/park285/chessboard-demo/internal/store"
)

func TestNewInMemory(t *testing.T) {
	d, err := New(&config.AppConfig{SessionTTLSec: 60, DefaultVariant: "standard"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if _, ok := d.Store.(*store.Memory); !ok {
		t.Fatalf("expected memory store, got %T", d.Store)
	}
	if d.Engine != nil {
		t.Fatalf("engine should be disabled")
	}
	sess, err := d.Service.Start(context.Background(), "", "")
	if err != nil || sess.Variant != "standard" {
		t.Fatalf("start: %+v %v", sess, err)
	}
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	d, err := New(&config.AppConfig{SessionTTLSec: 60, RedisURL: "redis://" + mr.Addr() + "/0"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if _, ok := d.Store.(*store.Redis); !ok {
		t.Fatalf("expected redis store, got %T", d.Store)
	}
	sess, err := d.Service.Start(context.Background(), "scripted", "black")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !mr.Exists("board:session:" + sess.ID) {
		t.Fatalf("session not written to redis")
	}
}

func TestNewRejectsBadEngine(t *testing.T) {
	_, err := New(&config.AppConfig{StockfishPath: "/nonexistent/stockfish"}, nil)
	if err == nil {
		t.Fatalf("expected engine init error")
	}
}

func TestNewRejectsNilConfig(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}
