package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.SaveSlot != "main" || cfg.AutosaveEvery != time.Minute {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Engine.FrameEvery != 50*time.Millisecond || cfg.Engine.EventChance != 0.3 {
		t.Fatalf("engine defaults = %+v", cfg.Engine)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STARMARKET_SEED", "77")
	t.Setenv("STARMARKET_FRAME_EVERY", "100ms")
	t.Setenv("STARMARKET_EVENT_CHANCE", "0.5")
	t.Setenv("STARMARKET_AUTOSAVE_EVERY", "not-a-duration")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.Seed != 77 {
		t.Fatalf("addr=%q seed=%d", cfg.Addr, cfg.Seed)
	}
	if cfg.Engine.FrameEvery != 100*time.Millisecond || cfg.Engine.EventChance != 0.5 {
		t.Fatalf("engine = %+v", cfg.Engine)
	}
	if cfg.AutosaveEvery != time.Minute {
		t.Fatalf("malformed duration should fall back, got %v", cfg.AutosaveEvery)
	}
}

func TestLoadFromEnvRejectsBadChance(t *testing.T) {
	t.Setenv("STARMARKET_EVENT_CHANCE", "1.5")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected an error for an out-of-range chance")
	}
}
