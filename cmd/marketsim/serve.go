package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/star-market/internal/api"
	"github.com/talgya/star-market/internal/config"
	"github.com/talgya/star-market/internal/engine"
	"github.com/talgya/star-market/internal/persistence"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Catalog ───────────────────────────────────────────────────────
	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		slog.Warn("catalog has dangling references", "error", err)
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Engine ────────────────────────────────────────────────────────
	src := newSource(cfg.Seed)
	feed := api.NewFeed(500)
	trades := persistence.NewTradeLog(db, 1024)
	eng := engine.New(cat,
		engine.WithConfig(cfg.Engine),
		engine.WithSource(src),
		engine.WithNotifier(feed),
		engine.WithSounds(feed),
		engine.WithEncounters(feed),
		engine.WithTradeHook(trades.Record),
	)

	snap, err := db.LoadGame(ctx, cfg.SaveSlot)
	tampered := false
	switch {
	case errors.Is(err, persistence.ErrNoSave):
		slog.Info("no saved game, starting fresh", "slot", cfg.SaveSlot)
	case errors.Is(err, persistence.ErrChecksum):
		slog.Warn("save failed verification, starting fresh", "slot", cfg.SaveSlot)
		snap = engine.Snapshot{}
		tampered = true
	case err != nil:
		return err
	}
	if err := eng.InitializeGameState(snap); err != nil {
		return fmt.Errorf("initialize game: %w", err)
	}
	if tampered {
		eng.MarkCheater()
	}
	for k, v := range map[string]string{
		"last_seed": strconv.FormatInt(cfg.Seed, 10),
		"last_slot": cfg.SaveSlot,
	} {
		if err := db.SaveMeta(k, v); err != nil {
			slog.Warn("could not write world meta", "key", k, "error", err)
		}
	}

	go eng.Run(ctx)
	tradesDone := make(chan struct{})
	go func() {
		defer close(tradesDone)
		trades.Run(ctx, time.Second)
	}()
	go autosave(ctx, db, eng, cfg.SaveSlot, cfg.AutosaveEvery)

	// ── HTTP API ──────────────────────────────────────────────────────
	server := api.New(eng, feed, db, api.Options{
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		SaveSlot:  cfg.SaveSlot,
	})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				server.Limiter().Sweep(time.Hour)
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP API starting", "addr", cfg.Addr, "seed", cfg.Seed)
	serveErr := httpServer.ListenAndServe()
	stop()
	// Run drains the trade buffer on its way out.
	<-tradesDone
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", serveErr)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveGame(context.Background(), cfg.SaveSlot, eng.ExportSnapshot()); err != nil {
		slog.Error("final save failed", "error", err)
	}
	if n := trades.Flush(context.Background()); n > 0 {
		slog.Info("flushed late trades", "trades", n)
	}
	if n := trades.Dropped(); n > 0 {
		slog.Warn("trade log dropped trades", "trades", n)
	}
	return nil
}

func autosave(ctx context.Context, db *persistence.DB, eng *engine.Engine, slot string, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.SaveGame(ctx, slot, eng.ExportSnapshot()); err != nil {
				slog.Error("autosave failed", "error", err)
			}
		}
	}
}
