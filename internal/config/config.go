// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/star-market/internal/engine"
)

// Config holds the server settings.
type Config struct {
	Addr          string
	DBPath        string
	CatalogPath   string // Empty uses the embedded catalog
	Seed          int64  // 0 seeds from crypto/rand
	SaveSlot      string
	AutosaveEvery time.Duration
	RateLimit     float64 // Requests per second per IP
	RateBurst     int
	Engine        engine.Config
}

// LoadFromEnv reads STARMARKET_* variables, falling back to defaults.
func LoadFromEnv() (Config, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("STARMARKET_ADDR", ":8080")
	}

	eng := engine.DefaultConfig()
	eng.FrameEvery = envDurationDefault("STARMARKET_FRAME_EVERY", eng.FrameEvery)
	eng.EventCheckEvery = envDurationDefault("STARMARKET_EVENT_CHECK_EVERY", eng.EventCheckEvery)
	eng.EventChance = envFloatDefault("STARMARKET_EVENT_CHANCE", eng.EventChance)

	cfg := Config{
		Addr:          addr,
		DBPath:        envDefault("STARMARKET_DB_PATH", "starmarket.db"),
		CatalogPath:   strings.TrimSpace(os.Getenv("STARMARKET_CATALOG")),
		Seed:          envInt64Default("STARMARKET_SEED", 0),
		SaveSlot:      envDefault("STARMARKET_SAVE_SLOT", "main"),
		AutosaveEvery: envDurationDefault("STARMARKET_AUTOSAVE_EVERY", time.Minute),
		RateLimit:     envFloatDefault("STARMARKET_RATE_LIMIT", 10),
		RateBurst:     int(envInt64Default("STARMARKET_RATE_BURST", 20)),
		Engine:        eng,
	}
	if cfg.Engine.FrameEvery <= 0 {
		return cfg, fmt.Errorf("STARMARKET_FRAME_EVERY must be positive")
	}
	if cfg.Engine.EventChance < 0 || cfg.Engine.EventChance > 1 {
		return cfg, fmt.Errorf("STARMARKET_EVENT_CHANCE must be within [0, 1]")
	}
	if cfg.RateLimit <= 0 || cfg.RateBurst <= 0 {
		return cfg, fmt.Errorf("rate limit and burst must be positive")
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
