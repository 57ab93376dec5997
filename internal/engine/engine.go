package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/star-market/internal/catalog"
	"github.com/talgya/star-market/internal/effects"
	"github.com/talgya/star-market/internal/entropy"
	"github.com/talgya/star-market/internal/market"
)

// Engine owns the market state. Every exported method is safe for
// concurrent use; the engine is the only writer of its State.
type Engine struct {
	mu sync.Mutex

	cfg   Config
	cat   *catalog.Catalog
	src   entropy.Source
	log   *slog.Logger
	clock func() time.Time

	notify      Notifier
	sounds      Sounds
	progression Progression
	encounters  Encounters
	onTrade     func(TradeRecord)

	prices *market.PriceTicker
	fuel   *market.FuelPricer
	sched  Scheduler
	st     State

	automating bool // Set while tickAutomation trades
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option { return func(e *Engine) { e.cfg = cfg } }

// WithSource sets the random source. The default is crypto backed.
func WithSource(src entropy.Source) Option { return func(e *Engine) { e.src = src } }

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithClock overrides time.Now, mainly for replays and tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.clock = now } }

// WithNotifier routes player notices.
func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notify = n } }

// WithSounds routes sound cues.
func WithSounds(s Sounds) Option { return func(e *Engine) { e.sounds = s } }

// WithProgression reports AI level and courier drone changes.
func WithProgression(p Progression) Option { return func(e *Engine) { e.progression = p } }

// WithEncounters receives hostile spawns.
func WithEncounters(x Encounters) Option { return func(e *Engine) { e.encounters = x } }

// WithTradeHook registers a callback for every committed trade. It runs
// under the engine lock and must not block.
func WithTradeHook(fn func(TradeRecord)) Option { return func(e *Engine) { e.onTrade = fn } }

// New creates an engine over cat. The state is uninitialized until
// InitializeGameState is called; until then every handler is a no-op.
func New(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		cfg:         DefaultConfig(),
		cat:         cat,
		log:         slog.Default(),
		clock:       time.Now,
		notify:      nopNotifier{},
		sounds:      nopSounds{},
		progression: nopProgression{},
		encounters:  nopEncounters{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.src = entropy.OrDefault(e.src)
	e.prices = market.NewPriceTicker(cat, e.src)
	e.fuel = market.NewFuelPricer(int64(e.src.Intn(math.MaxInt32)))
	e.st = newState(e.cfg)
	e.registerJobs()
	return e
}

// registerJobs wires the periodic systems. Order matters: transit resolves
// before prices move so an arriving player sees the post-arrival tick.
func (e *Engine) registerJobs() {
	e.sched.Every("travel", e.cfg.TransitEvery, e.tickTravel)
	e.sched.Every("jump", e.cfg.TransitEvery, e.tickJump)
	e.sched.Every("prices", e.cfg.PriceTickEvery, e.tickPrices)
	e.sched.Every("deliveries", e.cfg.DeliveryEvery, e.tickDeliveries)
	e.sched.Every("statuses", e.cfg.StatusSweepEvery, e.tickStatuses)
	e.sched.Every("event-expiry", e.cfg.StatusSweepEvery, e.tickEventExpiry)
	e.sched.Every("stock-regen", e.cfg.StockRegenEvery, e.tickStockRegen)
	e.sched.Every("ai-decay", e.cfg.AIDecayEvery, e.tickAIDecay)
	e.sched.Every("events", e.cfg.EventCheckEvery, e.tickEventCheck)
	e.sched.Every("automation", e.cfg.AutomationEvery, e.tickAutomation)
}

// Tick advances the simulation to now and returns the number of systems run.
func (e *Engine) Tick(now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.st.Initialized {
		return 0
	}
	return e.sched.Advance(now)
}

// Run drives Tick from the engine clock until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.FrameEvery)
	defer ticker.Stop()

	e.log.Info("market engine started", "frame", e.cfg.FrameEvery)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("market engine stopped")
			return ctx.Err()
		case <-ticker.C:
			e.Tick(e.clock())
		}
	}
}

// Catalog returns the reference data the engine was built with.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Config returns the engine balance.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) say(text, category string) {
	e.notify.AddFloatingMessage(text, category)
}

// reject reports a refused action. Domain refusals are not errors.
// Refusals of automated trades are only logged.
func (e *Engine) reject(format string, args ...any) bool {
	if e.automating {
		e.log.Debug("automated trade refused", "reason", fmt.Sprintf(format, args...))
		return false
	}
	e.say(fmt.Sprintf(format, args...), CategoryError)
	e.sounds.Play(SoundError)
	return false
}

var brokeMessages = []string{
	"Not enough credits.",
	"Still not enough credits.",
	"Your wallet is empty, trader.",
	"The trader is starting to laugh at you.",
}

// rejectBroke reports insufficient credits, escalating with the streak.
func (e *Engine) rejectBroke(need int) bool {
	if e.automating {
		return e.reject("insufficient credits for %s", credits(need))
	}
	e.st.RejectionStreak++
	i := min(e.st.RejectionStreak, len(brokeMessages)) - 1
	return e.reject("%s Need %s credits, have %s.", brokeMessages[i], credits(need), credits(e.st.Credits))
}

func credits(n int) string { return humanize.Comma(int64(n)) }

// transit returns whether the player is moving and how far along they are.
func (e *Engine) transit() (bool, float64) {
	var left, total time.Duration
	switch {
	case e.st.Travel.InTravel:
		left, total = e.st.Travel.TimeLeft, e.st.Travel.TotalTime
	case e.st.Jump.Active:
		left, total = e.st.Jump.TimeLeft, e.st.Jump.TotalTime
	default:
		return false, 0
	}
	if total <= 0 {
		return true, 1
	}
	frac := 1 - float64(left)/float64(total)
	return true, math.Max(0, math.Min(1, frac))
}

// displayPrice is what a listing costs right now. While moving, prices rise
// linearly toward the full travel markup.
func (e *Engine) displayPrice(l market.Listing) int {
	moving, frac := e.transit()
	if !moving {
		return l.Price
	}
	return int(math.Ceil(float64(l.Price) * (1 + e.cfg.TravelMarkup*frac)))
}

// fuelFactor is the active fuel cost multiplier, 1 when none.
func (e *Engine) fuelFactor(now time.Time) float64 {
	if f, ok := e.st.Status.Level(effects.FuelCostModifier, now); ok && f > 0 {
		return f
	}
	return 1
}

func (e *Engine) galaxy() *catalog.Galaxy {
	g, _ := e.cat.Galaxy(e.st.GalaxyID)
	return g
}

func (e *Engine) activeEvent() *catalog.Event {
	if e.st.Event == nil {
		return nil
	}
	return e.st.Event.Event
}

func (e *Engine) record(tr TradeRecord) {
	e.st.TradeHistory = append(e.st.TradeHistory, tr)
	if e.onTrade != nil {
		e.onTrade(tr)
	}
}

func (e *Engine) setAILevel(v float64) {
	v = math.Max(0, v)
	if v == e.st.AILevel {
		return
	}
	e.st.AILevel = v
	e.progression.SetAILevel(v)
}

func (e *Engine) setCourierDrones(n int) {
	n = max(0, n)
	if n == e.st.CourierDrones {
		return
	}
	e.st.CourierDrones = n
	e.progression.SetCourierDrones(n)
}

// syncQuantumStatus mirrors the processor count onto the status board.
func (e *Engine) syncQuantumStatus(now time.Time) {
	if e.st.QuantumProcessors > 0 {
		e.st.Status.Apply(effects.QuantumStatus, float64(e.st.QuantumProcessors), 0, now)
		return
	}
	e.st.Status.Remove(effects.QuantumStatus)
	e.st.QuantumPower = false
}

// DangerLevel is a 0..0.9 estimate of how hostile the current space is.
func (e *Engine) DangerLevel() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dangerLevel()
}

func (e *Engine) dangerLevel() float64 {
	d := e.st.AILevel / 2000
	if g := e.galaxy(); g != nil {
		if g.Danger {
			d += 0.25
		}
		if g.War {
			d += 0.25
		}
	}
	if e.carryingContraband() {
		d += 0.1
	}
	return math.Max(0, math.Min(0.9, d))
}

func (e *Engine) carryingContraband() bool {
	for _, inv := range e.st.Inventory {
		if it, ok := e.cat.ItemByName(inv.Name); ok && it.Illegal {
			return true
		}
	}
	return false
}
