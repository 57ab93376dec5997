package engine

import (
	"errors"
	"math"
	"strings"

	"github.com/talgya/star-market/internal/catalog"
)

// Snapshot is the persisted subset of the game state. Absent fields leave
// the corresponding state untouched on load.
type Snapshot struct {
	Health            *int             `json:"health,omitempty"`
	Fuel              *int             `json:"fuel,omitempty"`
	Credits           *int             `json:"credits,omitempty"`
	CourierDrones     *int             `json:"courierDrones,omitempty"`
	ShieldActive      *bool            `json:"shieldActive,omitempty"`
	StealthActive     *bool            `json:"stealthActive,omitempty"`
	Inventory         []InventoryEntry `json:"inventory,omitempty"`
	QuantumProcessors *int             `json:"quantumProcessors,omitempty"`
	AILevel           *float64         `json:"aiLevel,omitempty"`
	GalaxyName        *string          `json:"galaxyName,omitempty"`
	IsCheater         *bool            `json:"isCheater,omitempty"`
}

// ErrNoGalaxy is returned when the catalog has nowhere to put the player.
var ErrNoGalaxy = errors.New("catalog has no galaxies")

// InitializeGameState applies a snapshot and, when the galaxy changes or the
// engine was never initialized, rolls fresh listings for every trader.
// Out-of-range values are clamped and malformed inventory entries dropped.
func (e *Engine) InitializeGameState(s Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock()

	if s.Health != nil {
		e.st.Health = clampInt(*s.Health, 0, MaxHealth)
	}
	if s.Fuel != nil {
		e.st.Fuel = clampInt(*s.Fuel, 0, e.cfg.MaxFuel)
	}
	if s.Credits != nil {
		e.st.Credits = max(0, *s.Credits)
	}
	if s.CourierDrones != nil {
		e.setCourierDrones(*s.CourierDrones)
	}
	if s.ShieldActive != nil {
		e.st.ShieldActive = *s.ShieldActive
	}
	if s.StealthActive != nil {
		e.st.StealthActive = *s.StealthActive
	}
	if s.Inventory != nil {
		e.st.Inventory = nil
		for _, inv := range s.Inventory {
			name := strings.TrimSpace(inv.Name)
			if name == "" || inv.Quantity <= 0 || inv.Price < 0 {
				continue
			}
			id := inv.ItemID
			if it, ok := e.cat.ItemByName(name); ok {
				id = it.ID
			}
			e.st.addInventory(id, name, inv.Quantity, inv.Price)
		}
	}
	if s.QuantumProcessors != nil {
		e.st.QuantumProcessors = max(0, *s.QuantumProcessors)
	}
	if s.AILevel != nil && !math.IsNaN(*s.AILevel) {
		e.setAILevel(*s.AILevel)
	}
	if s.IsCheater != nil {
		e.st.IsCheater = *s.IsCheater
	}
	e.syncQuantumStatus(now)

	var g *catalog.Galaxy
	if s.GalaxyName != nil {
		if found, ok := e.cat.Galaxy(*s.GalaxyName); ok {
			g = found
		} else {
			e.log.Warn("saved galaxy not in catalog, using default", "galaxy", *s.GalaxyName)
		}
	}
	if g == nil && e.st.Initialized {
		return nil
	}
	if g == nil {
		g = e.cat.FirstGalaxy()
	}
	if g == nil {
		return ErrNoGalaxy
	}
	if err := e.enterGalaxy(g); err != nil {
		return err
	}
	e.st.Initialized = true
	return nil
}

// ExportSnapshot captures the persisted subset of the state.
func (e *Engine) ExportSnapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := &e.st
	galaxy := ""
	if g := e.galaxy(); g != nil {
		galaxy = g.Name
	}
	inv := append([]InventoryEntry{}, st.Inventory...)
	return Snapshot{
		Health:            ptr(st.Health),
		Fuel:              ptr(st.Fuel),
		Credits:           ptr(st.Credits),
		CourierDrones:     ptr(st.CourierDrones),
		ShieldActive:      ptr(st.ShieldActive),
		StealthActive:     ptr(st.StealthActive),
		Inventory:         inv,
		QuantumProcessors: ptr(st.QuantumProcessors),
		AILevel:           ptr(st.AILevel),
		GalaxyName:        ptr(galaxy),
		IsCheater:         ptr(st.IsCheater),
	}
}

// MarkCheater flags the save as tampered with.
func (e *Engine) MarkCheater() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.IsCheater = true
}

func ptr[T any](v T) *T { return &v }
