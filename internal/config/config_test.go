package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"LISTEN_ADDR", "STOCKFISH_PATH", "ENGINE_DEPTH", "SESSION_TTL", "DEFAULT_VARIANT", "ALLOWED_ORIGINS", "REDIS_URL", "DATABASE_URL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.EngineDepth != 10 || cfg.DefaultVariant != "scripted" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SessionTTL() != time.Hour {
		t.Fatalf("ttl %v", cfg.SessionTTL())
	}
	if cfg.EngineEnabled() {
		t.Fatalf("engine should be disabled without STOCKFISH_PATH")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("STOCKFISH_PATH", "/usr/games/stockfish")
	t.Setenv("ENGINE_DEPTH", "14")
	t.Setenv("ENGINE_POOL_SIZE", "3")
	t.Setenv("SESSION_TTL", "60")
	t.Setenv("DEFAULT_VARIANT", "Standard")
	t.Setenv("ALLOWED_ORIGINS", "example.com, *.example.org ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" || cfg.EngineDepth != 14 || cfg.EnginePoolSize != 3 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.DefaultVariant != "standard" || !cfg.EngineEnabled() || cfg.SessionTTLSec != 60 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "*.example.org" {
		t.Fatalf("origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DEFAULT_VARIANT", "blitz")
	if _, err := Load(); err == nil {
		t.Fatalf("expected variant error")
	}
	t.Setenv("DEFAULT_VARIANT", "")
	t.Setenv("ENGINE_DEPTH", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected depth error")
	}
}
