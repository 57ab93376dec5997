package engine

import (
	"time"

	"github.com/talgya/star-market/internal/effects"
	"github.com/talgya/star-market/internal/market"
)

// ListingView is a listing as the player sees it right now.
type ListingView struct {
	market.Listing
	DisplayPrice int `json:"display_price"`
	Held         int `json:"held"`
}

// EventView describes the active major event.
type EventView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartedAt   time.Time `json:"started_at"`
	EndsAt      time.Time `json:"ends_at,omitzero"`
}

// View is a read-only copy of the state for rendering.
type View struct {
	Initialized       bool    `json:"initialized"`
	Credits           int     `json:"credits"`
	Health            int     `json:"health"`
	Fuel              int     `json:"fuel"`
	MaxFuel           int     `json:"max_fuel"`
	FuelPrice         int     `json:"fuel_price"`
	CourierDrones     int     `json:"courier_drones"`
	QuantumProcessors int     `json:"quantum_processors"`
	QuantumPower      bool    `json:"quantum_power"`
	AILevel           float64 `json:"ai_level"`
	EscapeChance      float64 `json:"escape_chance"`
	ShieldActive      bool    `json:"shield_active"`
	StealthActive     bool    `json:"stealth_active"`
	IsCheater         bool    `json:"is_cheater"`
	DangerLevel       float64 `json:"danger_level"`

	Galaxy      string        `json:"galaxy"`
	GalaxyName  string        `json:"galaxy_name"`
	Trader      string        `json:"trader"`
	TraderName  string        `json:"trader_name"`
	TraderIndex int           `json:"trader_index"`
	Traders     []string      `json:"traders"`
	Listings    []ListingView `json:"listings"`

	Inventory  []InventoryEntry `json:"inventory"`
	Deliveries []Delivery       `json:"deliveries"`
	Statuses   []effects.Status `json:"statuses"`
	Trades     []TradeRecord    `json:"trades"`
	Travel     TravelState      `json:"travel"`
	Jump       JumpState        `json:"jump"`
	Event      *EventView       `json:"event,omitempty"`
}

// View returns a snapshot of everything a client renders.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := &e.st
	now := e.clock()
	v := View{
		Initialized:       st.Initialized,
		Credits:           st.Credits,
		Health:            st.Health,
		Fuel:              st.Fuel,
		MaxFuel:           e.cfg.MaxFuel,
		CourierDrones:     st.CourierDrones,
		QuantumProcessors: st.QuantumProcessors,
		QuantumPower:      st.QuantumPower,
		AILevel:           st.AILevel,
		EscapeChance:      st.EscapeChance,
		ShieldActive:      st.ShieldActive,
		StealthActive:     st.StealthActive,
		IsCheater:         st.IsCheater,
		DangerLevel:       e.dangerLevel(),
		Galaxy:            st.GalaxyID,
		TraderIndex:       st.TraderIndex,
		Traders:           append([]string(nil), st.Traders...),
		Inventory:         append([]InventoryEntry{}, st.Inventory...),
		Deliveries:        append([]Delivery{}, st.Deliveries...),
		Statuses:          remaining(st.Status.List(), now),
		Travel:            st.Travel,
		Jump:              st.Jump,
	}
	if g := e.galaxy(); g != nil {
		v.GalaxyName = g.Name
	}
	if id, ok := st.currentTrader(); ok {
		v.Trader = id
		v.TraderName = e.traderName(id)
		v.FuelPrice = e.fuelPrice(now)
		for _, l := range st.Listings[id] {
			v.Listings = append(v.Listings, ListingView{
				Listing:      l,
				DisplayPrice: e.displayPrice(l),
				Held:         st.holding(l.Name),
			})
		}
	}
	trades := st.TradeHistory
	if n := e.cfg.TradeLogLimit; n > 0 && len(trades) > n {
		trades = trades[len(trades)-n:]
	}
	v.Trades = append([]TradeRecord{}, trades...)
	if ae := st.Event; ae != nil {
		v.Event = &EventView{
			ID:          ae.Event.ID,
			Name:        ae.Event.Name,
			Description: ae.Event.Description,
			StartedAt:   ae.StartedAt,
			EndsAt:      ae.EndsAt,
		}
	}
	return v
}

// remaining recomputes countdowns against now.
func remaining(list []effects.Status, now time.Time) []effects.Status {
	for i := range list {
		if list[i].Timed() {
			list[i].Remaining = max(0, list[i].ExpiresAt.Sub(now))
		}
	}
	return list
}

// Recommendations ranks arbitrage opportunities across the galaxy.
func (e *Engine) Recommendations() []market.Recommendation {
	e.mu.Lock()
	defer e.mu.Unlock()

	holdings := make(map[string]int, len(e.st.Inventory))
	for _, inv := range e.st.Inventory {
		holdings[inv.Name] = inv.Quantity
	}
	return market.Recommend(e.st.Traders, e.st.Listings, holdings, e.st.PurchaseHistory)
}

// TradeHistory returns the full trade log.
func (e *Engine) TradeHistory() []TradeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]TradeRecord{}, e.st.TradeHistory...)
}
