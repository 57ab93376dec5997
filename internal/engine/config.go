package engine

import "time"

// MaxHealth is the player health ceiling.
const MaxHealth = 100

// QuantumItem is the catalog name of the regulated processor item.
const QuantumItem = "Quantum Processor"

// Config tunes the simulation cadence and balance.
type Config struct {
	FrameEvery       time.Duration // Base clock for Run
	PriceTickEvery   time.Duration // Global price clock; listings still honour their own interval
	TransitEvery     time.Duration // Travel and jump countdowns
	DeliveryEvery    time.Duration
	StatusSweepEvery time.Duration
	StockRegenEvery  time.Duration
	AIDecayEvery     time.Duration
	AIDecayAmount    float64
	EventCheckEvery  time.Duration
	EventChance      float64       // Chance per check to roll an event
	EventCooldown    time.Duration // Shrinks as danger rises
	AutomationEvery  time.Duration

	TravelDuration  time.Duration // Hop between traders
	JumpDuration    time.Duration // Jump between galaxies
	TravelMarkup    float64       // Price markup at the end of a hop
	HopFuel         int
	JumpFuelPerUnit float64 // Extra jump fuel per unit of galaxy distance

	MaxFuel         int
	StartingCredits int
	StartingFuel    int

	QuantumTraderCap         int // Trader refuses processors once holding this many
	QuantumLimit             int // Possession above this invites enforcement
	QuantumEnforcementChance float64
	ContrabandChance         float64
	MarketPoliceThreshold    float64 // AI level that summons the Market Police

	AutoSellMargin  float64 // Sell when price beats cost basis by this fraction
	AutoBuyDiscount float64 // Buy when price is this far under base price
	TradeLogLimit   int     // Trades kept in the view
}

// DefaultConfig returns the standard game balance.
func DefaultConfig() Config {
	return Config{
		FrameEvery:       50 * time.Millisecond,
		PriceTickEvery:   50 * time.Millisecond,
		TransitEvery:     50 * time.Millisecond,
		DeliveryEvery:    100 * time.Millisecond,
		StatusSweepEvery: time.Second,
		StockRegenEvery:  30 * time.Second,
		AIDecayEvery:     10 * time.Second,
		AIDecayAmount:    5,
		EventCheckEvery:  30 * time.Second,
		EventChance:      0.3,
		EventCooldown:    2 * time.Minute,
		AutomationEvery:  5 * time.Second,

		TravelDuration:  3 * time.Second,
		JumpDuration:    10 * time.Second,
		TravelMarkup:    0.5,
		HopFuel:         5,
		JumpFuelPerUnit: 0.2,

		MaxFuel:         100,
		StartingCredits: 500,
		StartingFuel:    100,

		QuantumTraderCap:         4,
		QuantumLimit:             10,
		QuantumEnforcementChance: 0.5,
		ContrabandChance:         0.35,
		MarketPoliceThreshold:    1000,

		AutoSellMargin:  0.15,
		AutoBuyDiscount: 0.2,
		TradeLogLimit:   50,
	}
}
