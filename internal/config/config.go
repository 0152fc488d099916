package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string

	StockfishPath  string
	EngineDepth    int
	EnginePoolSize int
	EngineThreads  int
	EngineHashMB   int

	RedisURL    string
	DatabaseURL string

	SessionTTLSec  int
	DefaultVariant string
	ScriptFile     string
	MessagesDir    string

	AllowedOrigins []string
}

func (c *AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}

// EngineEnabled reports whether suggestions come from an external engine.
func (c *AppConfig) EngineEnabled() bool {
	return c.StockfishPath != ""
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:     ":8080",
		EngineDepth:    10,
		SessionTTLSec:  3600,
		DefaultVariant: "scripted",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if v := strings.TrimSpace(os.Getenv("ENGINE_DEPTH")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("ENGINE_DEPTH must be a positive integer: %q", v)
		}
		cfg.EngineDepth = n
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_POOL_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EnginePoolSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_THREADS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineThreads = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_HASH_MB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineHashMB = n
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_VARIANT")); v != "" {
		cfg.DefaultVariant = strings.ToLower(v)
	}
	cfg.ScriptFile = strings.TrimSpace(os.Getenv("SCRIPT_FILE"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	switch cfg.DefaultVariant {
	case "scripted", "standard":
	default:
		return nil, fmt.Errorf("DEFAULT_VARIANT must be scripted or standard: %q", cfg.DefaultVariant)
	}
	if cfg.ListenAddr == "" {
		return nil, errors.New("LISTEN_ADDR is required")
	}

	return cfg, nil
}
