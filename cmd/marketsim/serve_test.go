package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talgya/star-market/internal/config"
	"github.com/talgya/star-market/internal/engine"
)

func TestServeReportsUnusableDataDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{
		Addr:     "127.0.0.1:0",
		DBPath:   filepath.Join(blocker, "data", "market.db"),
		SaveSlot: "main",
		Engine:   engine.DefaultConfig(),
	}

	err := serve(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "create data dir") {
		t.Fatalf("err = %v, want data dir failure", err)
	}
}
