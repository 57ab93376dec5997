package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/star-market/internal/engine"
)

type simOptions struct {
	duration    time.Duration
	seed        int64
	processors  int
	credits     int
	hopEvery    time.Duration
	galaxy      string
	catalogPath string
	verbose     bool
}

func newSimulateCmd() *cobra.Command {
	opts := simOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a headless session on a synthetic clock",
		RunE: func(cmd *cobra.Command, args []string) error {
			return simulate(cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.DurationVar(&opts.duration, "duration", 10*time.Minute, "simulated time to run")
	f.Int64Var(&opts.seed, "seed", 1, "random seed (0 uses crypto randomness)")
	f.IntVar(&opts.processors, "processors", 2, "quantum processors to start with")
	f.IntVar(&opts.credits, "credits", 5000, "starting credits")
	f.DurationVar(&opts.hopEvery, "hop-every", time.Minute, "move to the next trader this often (0 stays put)")
	f.StringVar(&opts.galaxy, "galaxy", "", "starting galaxy (default: first in catalog)")
	f.StringVar(&opts.catalogPath, "catalog", "", "catalog YAML file (default: embedded)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "print every notice")
	return cmd
}

// simStats tallies what the engine reported during a run.
type simStats struct {
	out      io.Writer
	verbose  bool
	clock    func() time.Time
	start    time.Time
	notices  map[string]int
	enemies  []string
	trades   int
	autoHits int
	profit   int
}

func (s *simStats) AddFloatingMessage(text, category string) {
	s.notices[category]++
	if s.verbose {
		fmt.Fprintf(s.out, "[%8s] %-8s %s\n", s.clock().Sub(s.start).Truncate(time.Second), category, text)
	}
}

func (s *simStats) SpawnEnemy(name string) {
	s.enemies = append(s.enemies, name)
}

func (s *simStats) trade(tr engine.TradeRecord) {
	s.trades++
	if tr.Auto {
		s.autoHits++
	}
	s.profit += tr.Profit
}

func simulate(out io.Writer, opts simOptions) error {
	cat, err := loadCatalog(opts.catalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	start := time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	clock := func() time.Time { return now }
	stats := &simStats{
		out:     out,
		verbose: opts.verbose,
		clock:   clock,
		start:   start,
		notices: make(map[string]int),
	}

	cfg := engine.DefaultConfig()
	eng := engine.New(cat,
		engine.WithConfig(cfg),
		engine.WithSource(newSource(opts.seed)),
		engine.WithClock(clock),
		engine.WithNotifier(stats),
		engine.WithEncounters(stats),
		engine.WithTradeHook(stats.trade),
	)

	snap := engine.Snapshot{
		Credits:           &opts.credits,
		QuantumProcessors: &opts.processors,
	}
	if opts.galaxy != "" {
		snap.GalaxyName = &opts.galaxy
	}
	if err := eng.InitializeGameState(snap); err != nil {
		return err
	}
	if opts.processors > 0 {
		eng.SetQuantumPower(true)
	}

	eng.Tick(now)
	nextHop := start.Add(opts.hopEvery)
	for now.Sub(start) < opts.duration {
		now = now.Add(cfg.FrameEvery)
		eng.Tick(now)
		if opts.hopEvery > 0 && !now.Before(nextHop) {
			eng.HandleNextTrader()
			nextHop = now.Add(opts.hopEvery)
		}
	}

	v := eng.View()
	fmt.Fprintf(out, "simulated %s in %s\n", opts.duration, v.GalaxyName)
	fmt.Fprintf(out, "  credits:  %s -> %s\n", humanize.Comma(int64(opts.credits)), humanize.Comma(int64(v.Credits)))
	fmt.Fprintf(out, "  trades:   %d (%d automated), realized profit %s\n",
		stats.trades, stats.autoHits, humanize.Comma(int64(stats.profit)))
	fmt.Fprintf(out, "  fuel:     %d/%d\n", v.Fuel, v.MaxFuel)
	fmt.Fprintf(out, "  events:   %d notices, %d errors\n", stats.notices[engine.CategoryEvent], stats.notices[engine.CategoryError])
	if len(stats.enemies) > 0 {
		fmt.Fprintf(out, "  enemies:  %v\n", stats.enemies)
	}
	for _, inv := range v.Inventory {
		fmt.Fprintf(out, "  holding:  %-24s x%d\n", inv.Name, inv.Quantity)
	}
	return nil
}
