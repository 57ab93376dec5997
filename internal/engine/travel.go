package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/talgya/star-market/internal/catalog"
	"github.com/talgya/star-market/internal/entropy"
	"github.com/talgya/star-market/internal/market"
)

// HandleNextTrader starts a hop to the next trader of the galaxy.
func (e *Engine) HandleNextTrader() bool { return e.hop(1) }

// HandlePrevTrader starts a hop to the previous trader of the galaxy.
func (e *Engine) HandlePrevTrader() bool { return e.hop(-1) }

func (e *Engine) hop(dir int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.st.currentTrader(); !ok {
		return false
	}
	if e.st.inTransit() {
		return e.reject("You're already under way.")
	}
	n := len(e.st.Traders)
	if n < 2 {
		return e.reject("There is nobody else to visit here.")
	}
	now := e.clock()
	cost := e.hopFuelCost(now)
	if e.st.Fuel < cost {
		return e.reject("Not enough fuel. The hop needs %d.", cost)
	}

	dest := ((e.st.TraderIndex+dir)%n + n) % n
	e.st.Fuel -= cost
	e.st.Travel = TravelState{
		InTravel:      true,
		TimeLeft:      e.cfg.TravelDuration,
		TotalTime:     e.cfg.TravelDuration,
		PendingTrader: e.st.Traders[dest],
		pendingIndex:  dest,
	}
	e.say(fmt.Sprintf("Heading to %s.", e.traderName(e.st.Traders[dest])), CategoryInfo)
	e.sounds.Play(SoundTravel)
	return true
}

func (e *Engine) hopFuelCost(now time.Time) int {
	return int(math.Ceil(float64(e.cfg.HopFuel) * e.fuelFactor(now)))
}

func (e *Engine) tickTravel(_ time.Time, elapsed time.Duration) {
	if !e.st.Travel.InTravel {
		return
	}
	e.st.Travel.TimeLeft -= elapsed
	if e.st.Travel.TimeLeft > 0 {
		return
	}
	idx := e.st.Travel.pendingIndex
	e.st.Travel = TravelState{}
	if idx >= 0 && idx < len(e.st.Traders) {
		e.st.TraderIndex = idx
	}
	e.say(fmt.Sprintf("Arrived at %s.", e.traderName(e.st.Traders[e.st.TraderIndex])), CategoryInfo)
}

func (e *Engine) traderName(id string) string {
	if tr, ok := e.cat.Trader(id); ok && tr.Name != "" {
		return tr.Name
	}
	return id
}

// TravelToGalaxy starts a jump to another galaxy, by id or name.
func (e *Engine) TravelToGalaxy(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.st.currentTrader(); !ok {
		return false
	}
	if e.st.inTransit() {
		return e.reject("You're already under way.")
	}
	g, ok := e.cat.Galaxy(name)
	if !ok {
		return e.reject("No charts for %q.", name)
	}
	if g.ID == e.st.GalaxyID {
		return e.reject("You're already in %s.", g.Name)
	}
	now := e.clock()
	cost := e.jumpFuelCost(e.galaxy(), g, now)
	if e.st.Fuel < cost {
		return e.reject("Not enough fuel. The jump needs %d.", cost)
	}

	e.st.Fuel -= cost
	if e.st.QuantumPower {
		e.st.QuantumPower = false
		e.say("Quantum power shut down for the jump.", CategoryQuantum)
	}
	e.st.Jump = JumpState{
		Active:      true,
		TimeLeft:    e.cfg.JumpDuration,
		TotalTime:   e.cfg.JumpDuration,
		Destination: g.ID,
	}
	e.say(fmt.Sprintf("Jumping to %s.", g.Name), CategoryInfo)
	e.sounds.Play(SoundJump)
	return true
}

// JumpFuelCost returns the fuel needed to jump from the current galaxy to
// the named one.
func (e *Engine) JumpFuelCost(name string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.cat.Galaxy(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", catalog.ErrUnknownGalaxy, name)
	}
	return e.jumpFuelCost(e.galaxy(), g, e.clock()), nil
}

func (e *Engine) jumpFuelCost(from, to *catalog.Galaxy, now time.Time) int {
	base := float64(to.JumpFuel) + math.Round(distance(from, to)*e.cfg.JumpFuelPerUnit)
	return int(math.Ceil(base * e.fuelFactor(now)))
}

func distance(a, b *catalog.Galaxy) float64 {
	if a == nil || b == nil {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(a.Coordinates) && i < len(b.Coordinates); i++ {
		d := a.Coordinates[i] - b.Coordinates[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func (e *Engine) tickJump(now time.Time, elapsed time.Duration) {
	if !e.st.Jump.Active {
		return
	}
	e.st.Jump.TimeLeft -= elapsed
	if e.st.Jump.TimeLeft > 0 {
		return
	}
	dest := e.st.Jump.Destination
	e.st.Jump = JumpState{}
	g, ok := e.cat.Galaxy(dest)
	if !ok {
		e.log.Error("jump destination vanished", "galaxy", dest)
		return
	}
	if err := e.enterGalaxy(g); err != nil {
		e.log.Error("entering galaxy failed", "galaxy", dest, "error", err)
		return
	}
	e.say(fmt.Sprintf("Arrived in %s.", g.Name), CategoryInfo)
	e.arrivalChecks(g)
}

// enterGalaxy re-rolls every trader of g and moves the player to its first
// trader. Transient travel state is discarded.
func (e *Engine) enterGalaxy(g *catalog.Galaxy) error {
	rolled, err := market.PrepareGalaxy(e.cat, g.ID, e.src)
	if err != nil {
		return fmt.Errorf("prepare galaxy %s: %w", g.ID, err)
	}
	listings := make(map[string][]market.Listing, len(g.Traders))
	for i, id := range g.Traders {
		listings[id] = rolled[i]
	}
	e.st.GalaxyID = g.ID
	e.st.Traders = append([]string(nil), g.Traders...)
	e.st.TraderIndex = 0
	e.st.Listings = listings
	e.st.Travel = TravelState{}
	e.st.Jump = JumpState{}
	e.prices.Reset()
	e.log.Info("entered galaxy", "galaxy", g.ID, "traders", len(g.Traders))
	return nil
}

// arrivalChecks rolls for enforcement encounters on arrival.
func (e *Engine) arrivalChecks(g *catalog.Galaxy) {
	if e.st.quantumHoldings() > e.cfg.QuantumLimit && entropy.Chance(e.src, e.cfg.QuantumEnforcementChance) {
		e.say("Quantum Enforcement is scanning your hold!", CategoryWarning)
		e.sounds.Play(SoundAlarm)
		e.encounters.SpawnEnemy("Quantum Enforcement")
		return
	}
	if g.Danger || g.War || !e.carryingContraband() {
		return
	}
	chance := e.cfg.ContrabandChance
	if e.st.StealthActive {
		chance /= 2
	}
	if entropy.Chance(e.src, chance) {
		e.say("Customs flagged your cargo!", CategoryWarning)
		e.sounds.Play(SoundAlarm)
		e.encounters.SpawnEnemy("Customs Patrol")
	}
}

// FuelPrice returns the current trader's fuel price per unit.
func (e *Engine) FuelPrice() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fuelPrice(e.clock())
}

func (e *Engine) fuelPrice(now time.Time) int {
	return e.fuel.Price(e.galaxy(), e.st.TraderIndex, now)
}

// BuyFuel buys up to amount units of fuel from the current trader, limited
// by tank space.
func (e *Engine) BuyFuel(amount int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.st.currentTrader(); !ok {
		return false
	}
	if e.st.inTransit() {
		return e.reject("You can't refuel while traveling.")
	}
	if amount <= 0 {
		return e.reject("Nothing to buy.")
	}
	space := e.cfg.MaxFuel - e.st.Fuel
	if space <= 0 {
		return e.reject("Your tank is full.")
	}
	amount = min(amount, space)
	cost := amount * e.fuelPrice(e.clock())
	if e.st.Credits < cost {
		return e.rejectBroke(cost)
	}
	e.st.Credits -= cost
	e.st.Fuel += amount
	e.st.RejectionStreak = 0
	e.say(fmt.Sprintf("Bought %d fuel for %s credits.", amount, credits(cost)), CategorySuccess)
	e.sounds.Play(SoundBuy)
	return true
}
