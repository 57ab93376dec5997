package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/talgya/star-market/internal/catalog"
	"github.com/talgya/star-market/internal/effects"
)

// HandleUseItem consumes one unit of an owned item and applies its effects.
func (e *Engine) HandleUseItem(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.st.currentTrader(); !ok {
		return false
	}
	if e.st.holding(name) <= 0 {
		return e.reject("You don't have any %s.", name)
	}
	item, ok := e.cat.ItemByName(name)
	if !ok {
		return e.reject("Nobody knows what %s does.", name)
	}
	if len(item.Effects) == 0 {
		return e.reject("%s can't be used.", name)
	}

	now := e.clock()
	e.st.removeInventory(name, 1)
	for _, key := range effects.Keys(item.Effects) {
		eff, err := effects.Resolve(key, item.Effects[key], e.src)
		if err != nil {
			e.log.Warn("skipping malformed item effect", "item", item.Name, "effect", key, "error", err)
			continue
		}
		e.applyEffect(item, eff, now)
	}
	e.say(fmt.Sprintf("Used %s.", item.Name), CategorySuccess)
	e.sounds.Play(SoundUse)
	return true
}

func (e *Engine) applyEffect(item *catalog.Item, eff effects.Effect, now time.Time) {
	switch x := eff.(type) {
	case effects.Heal:
		e.st.Health = clampInt(e.st.Health+int(math.Round(x.Amount)), 0, MaxHealth)
	case effects.FuelDelta:
		e.st.Fuel = clampInt(e.st.Fuel+int(math.Round(x.Amount)), 0, e.cfg.MaxFuel)
	case effects.CreditDelta:
		e.st.Credits = max(0, e.st.Credits+int(math.Round(x.Amount)))
	case effects.AIBoost:
		before := e.st.AILevel
		e.setAILevel(before + x.Amount)
		limit := e.cfg.MarketPoliceThreshold
		if item.Illegal && before <= limit && e.st.AILevel > limit {
			e.say("Your AI tripped a Market Police scanner!", CategoryWarning)
			e.sounds.Play(SoundAlarm)
			e.encounters.SpawnEnemy("Market Police")
		}
	case effects.CourierDelta:
		e.setCourierDrones(e.st.CourierDrones + x.Amount)
	case effects.EscapeChance:
		e.st.EscapeChance = math.Max(0, math.Min(1, e.st.EscapeChance+x.Amount))
	case effects.ToggleTool:
		if x.Enable {
			e.st.Status.Apply(x.Kind, 1, x.Duration, now)
		} else {
			e.st.Status.Remove(x.Kind)
		}
		switch x.Kind {
		case effects.ShieldStatus:
			e.st.ShieldActive = x.Enable
		case effects.StealthStatus:
			e.st.StealthActive = x.Enable
		}
	case effects.FuelCost:
		e.st.Status.Apply(effects.FuelCostModifier, x.Factor, x.Duration, now)
	case effects.QuantumProcessor:
		e.st.QuantumProcessors = max(0, e.st.QuantumProcessors+x.Delta)
		e.syncQuantumStatus(now)
	default:
		e.log.Warn("unhandled item effect", "item", item.Name, "effect", fmt.Sprintf("%#v", eff))
	}
}

// tickStatuses expires timed statuses and clears the flags they back.
func (e *Engine) tickStatuses(now time.Time, _ time.Duration) {
	for _, typ := range e.st.Status.Sweep(now) {
		switch typ {
		case effects.ShieldStatus:
			e.st.ShieldActive = false
		case effects.StealthStatus:
			e.st.StealthActive = false
		}
		e.say(fmt.Sprintf("%s wore off.", statusLabel(typ)), CategoryInfo)
	}
}

func statusLabel(typ string) string {
	switch typ {
	case effects.ToolReceiver:
		return "Signal receiver"
	case effects.ToolReverter:
		return "Particle reverter"
	case effects.TranslateCHIK:
		return "Chik translation"
	case effects.TranslateLAY:
		return "Lay translation"
	case effects.FuelCostModifier:
		return "Fuel optimization"
	}
	return typ
}

// tickAIDecay bleeds the AI level back toward zero.
func (e *Engine) tickAIDecay(time.Time, time.Duration) {
	if e.st.AILevel > 0 {
		e.setAILevel(e.st.AILevel - e.cfg.AIDecayAmount)
	}
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
