// Package effects turns item effect keys into typed effects and tracks the
// time-boxed status effects they install.
package effects

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/talgya/star-market/internal/catalog"
	"github.com/talgya/star-market/internal/entropy"
)

// Status effect types.
const (
	ToolReceiver     = "tool_receiver"
	ToolReverter     = "tool_reverter"
	TranslateCHIK    = "translate_CHIK"
	TranslateLAY     = "translate_LAY"
	FuelCostModifier = "fuel_cost"
	QuantumStatus    = "Quantum Processor"
	ShieldStatus     = "shield"
	StealthStatus    = "stealth"
)

// DefaultFuelCostDuration is how long a fuel_cost modifier lasts.
const DefaultFuelCostDuration = 5 * time.Minute

// Effect is one resolved item effect. The set of implementations is closed.
type Effect interface {
	effect()
}

type (
	// Heal changes player health.
	Heal struct{ Amount float64 }
	// FuelDelta changes fuel.
	FuelDelta struct{ Amount float64 }
	// CreditDelta changes credits.
	CreditDelta struct{ Amount float64 }
	// AIBoost changes the AI level.
	AIBoost struct{ Amount float64 }
	// CourierDelta changes the number of courier drones.
	CourierDelta struct{ Amount int }
	// EscapeChance changes the chance to flee encounters.
	EscapeChance struct{ Amount float64 }
	// ToggleTool installs (Enable) or removes a status effect. Zero Duration is permanent.
	ToggleTool struct {
		Kind     string
		Enable   bool
		Duration time.Duration
	}
	// FuelCost installs a travel fuel multiplier for Duration.
	FuelCost struct {
		Factor   float64
		Duration time.Duration
	}
	// QuantumProcessor installs or removes processors.
	QuantumProcessor struct{ Delta int }
	// Unknown is an effect key nothing handles.
	Unknown struct{ Key string }
)

func (Heal) effect()             {}
func (FuelDelta) effect()        {}
func (CreditDelta) effect()      {}
func (AIBoost) effect()          {}
func (CourierDelta) effect()     {}
func (EscapeChance) effect()     {}
func (ToggleTool) effect()       {}
func (FuelCost) effect()         {}
func (QuantumProcessor) effect() {}
func (Unknown) effect()          {}

// Resolve parses an effect key ("+heal_player", "-fuel_cost", ...) and
// samples its value. Ranges are drawn here, at application time.
func Resolve(key string, v catalog.Value, src entropy.Source) (Effect, error) {
	sign, name := 1.0, key
	switch {
	case strings.HasPrefix(key, "+"):
		name = key[1:]
	case strings.HasPrefix(key, "-"):
		sign, name = -1, key[1:]
	}

	switch name {
	case ToolReceiver, ToolReverter, TranslateCHIK, TranslateLAY, ShieldStatus, StealthStatus:
		// Toggles tolerate a missing or malformed value: it means "no expiry".
		var d time.Duration
		if lo, hi, ok := v.Bounds(); ok {
			d = seconds(entropy.Between(src, lo, hi))
		}
		return ToggleTool{Kind: name, Enable: sign > 0, Duration: d}, nil
	}

	lo, hi, ok := v.Bounds()
	if !ok {
		return nil, fmt.Errorf("effect %q: malformed value", key)
	}
	amount := sign * entropy.Between(src, lo, hi)

	switch name {
	case "heal_player":
		return Heal{Amount: amount}, nil
	case "fuel_amount":
		return FuelDelta{Amount: amount}, nil
	case "credit_balance":
		return CreditDelta{Amount: amount}, nil
	case "improved_AI":
		return AIBoost{Amount: amount}, nil
	case "delivery_speed":
		return CourierDelta{Amount: int(math.Round(amount))}, nil
	case "escape_chance":
		return EscapeChance{Amount: amount}, nil
	case FuelCostModifier:
		factor := 1 + amount
		if factor < 0.1 {
			factor = 0.1
		}
		return FuelCost{Factor: factor, Duration: DefaultFuelCostDuration}, nil
	case "quantum_processor":
		return QuantumProcessor{Delta: int(math.Round(amount))}, nil
	}
	return Unknown{Key: key}, nil
}

// Keys returns effect keys in a stable order so application is replayable.
func Keys(m map[string]catalog.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
