package engine

import (
	"time"

	"github.com/talgya/star-market/internal/catalog"
	"github.com/talgya/star-market/internal/effects"
	"github.com/talgya/star-market/internal/market"
)

// InventoryEntry is an owned stack of one item.
type InventoryEntry struct {
	ItemID   int    `json:"itemId"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"` // Always > 0; empty entries are pruned
	Price    int    `json:"price"`    // Last known unit price, informational
}

// Delivery is a purchase in flight.
type Delivery struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	ItemID    int           `json:"item_id"`
	Quantity  int           `json:"quantity"`
	Price     int           `json:"price"`
	TimeLeft  time.Duration `json:"time_left"`
	TotalTime time.Duration `json:"total_time"`
}

// TradeRecord is an append-only trade log entry.
type TradeRecord struct {
	Time     time.Time `json:"time"`
	Type     string    `json:"type"` // "buy" or "sell"
	Name     string    `json:"name"`
	Quantity int       `json:"quantity"`
	Price    int       `json:"price"` // Unit price
	Profit   int       `json:"profit"`
	Trader   string    `json:"trader"`
	Auto     bool      `json:"auto,omitempty"` // Placed by quantum automation
}

// TravelState is a hop between traders of the current galaxy.
type TravelState struct {
	InTravel      bool          `json:"in_travel"`
	TimeLeft      time.Duration `json:"time_left"`
	TotalTime     time.Duration `json:"total_time"`
	PendingTrader string        `json:"pending_trader,omitempty"`
	pendingIndex  int
}

// JumpState is a jump to another galaxy.
type JumpState struct {
	Active      bool          `json:"active"`
	TimeLeft    time.Duration `json:"time_left"`
	TotalTime   time.Duration `json:"total_time"`
	Destination string        `json:"destination,omitempty"`
}

// ActiveEvent is the major event currently shaping prices.
type ActiveEvent struct {
	Event     *catalog.Event
	StartedAt time.Time
	EndsAt    time.Time // Zero = until replaced
}

// State is everything the engine owns. Only the engine mutates it.
type State struct {
	Initialized bool

	Health            int
	Fuel              int
	Credits           int
	CourierDrones     int
	ShieldActive      bool
	StealthActive     bool
	QuantumProcessors int
	QuantumPower      bool
	AILevel           float64
	EscapeChance      float64
	IsCheater         bool

	GalaxyID    string
	Traders     []string                    // Trader ids in galaxy order
	TraderIndex int                         // Current trader
	Listings    map[string][]market.Listing // Trader id → listings

	Inventory       []InventoryEntry
	PurchaseHistory map[string][]int // Item name → FIFO unit costs still held
	Deliveries      []Delivery
	Status          *effects.Board
	TradeHistory    []TradeRecord

	Travel TravelState
	Jump   JumpState

	Event              *ActiveEvent
	EventLastFired     map[string]time.Time
	EventCooldownUntil time.Time

	RejectionStreak int
}

func newState(cfg Config) State {
	return State{
		Health:          MaxHealth,
		Fuel:            cfg.StartingFuel,
		Credits:         cfg.StartingCredits,
		Listings:        make(map[string][]market.Listing),
		PurchaseHistory: make(map[string][]int),
		Status:          effects.NewBoard(),
		EventLastFired:  make(map[string]time.Time),
	}
}

func (s *State) inventoryIndex(name string) int {
	for i := range s.Inventory {
		if s.Inventory[i].Name == name {
			return i
		}
	}
	return -1
}

// holding returns the owned quantity of an item.
func (s *State) holding(name string) int {
	if i := s.inventoryIndex(name); i >= 0 {
		return s.Inventory[i].Quantity
	}
	return 0
}

// addInventory merges qty units into the inventory.
func (s *State) addInventory(itemID int, name string, qty, price int) {
	if qty <= 0 {
		return
	}
	if i := s.inventoryIndex(name); i >= 0 {
		s.Inventory[i].Quantity += qty
		s.Inventory[i].Price = price
		return
	}
	s.Inventory = append(s.Inventory, InventoryEntry{ItemID: itemID, Name: name, Quantity: qty, Price: price})
}

// removeInventory takes up to qty units and prunes empty entries. It returns
// how many units were removed.
func (s *State) removeInventory(name string, qty int) int {
	i := s.inventoryIndex(name)
	if i < 0 || qty <= 0 {
		return 0
	}
	if qty > s.Inventory[i].Quantity {
		qty = s.Inventory[i].Quantity
	}
	s.Inventory[i].Quantity -= qty
	if s.Inventory[i].Quantity <= 0 {
		s.Inventory = append(s.Inventory[:i], s.Inventory[i+1:]...)
	}
	return qty
}

// popCosts removes up to n of the oldest purchase prices for an item.
func (s *State) popCosts(name string, n int) []int {
	h := s.PurchaseHistory[name]
	if n > len(h) {
		n = len(h)
	}
	if n <= 0 {
		return nil
	}
	popped := append([]int(nil), h[:n]...)
	rest := h[n:]
	if len(rest) == 0 {
		delete(s.PurchaseHistory, name)
	} else {
		s.PurchaseHistory[name] = append([]int(nil), rest...)
	}
	return popped
}

func (s *State) pushCosts(name string, price, n int) {
	for i := 0; i < n; i++ {
		s.PurchaseHistory[name] = append(s.PurchaseHistory[name], price)
	}
}

func (s *State) currentTrader() (string, bool) {
	if !s.Initialized || s.TraderIndex < 0 || s.TraderIndex >= len(s.Traders) {
		return "", false
	}
	return s.Traders[s.TraderIndex], true
}

func (s *State) inTransit() bool {
	return s.Travel.InTravel || s.Jump.Active
}

// quantumHoldings counts installed processors plus those in the hold.
func (s *State) quantumHoldings() int {
	return s.QuantumProcessors + s.holding(QuantumItem)
}
