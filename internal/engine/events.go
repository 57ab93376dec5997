package engine

import (
	"fmt"
	"time"

	"github.com/talgya/star-market/internal/catalog"
	"github.com/talgya/star-market/internal/entropy"
	"github.com/talgya/star-market/internal/market"
)

// tickPrices lets every listing of the galaxy move on its own interval.
func (e *Engine) tickPrices(now time.Time, _ time.Duration) {
	ev := e.activeEvent()
	for _, id := range e.st.Traders {
		e.prices.Tick(now, id, e.st.Listings[id], ev)
	}
}

func (e *Engine) tickStockRegen(time.Time, time.Duration) {
	for _, id := range e.st.Traders {
		rate := 1
		if tr, ok := e.cat.Trader(id); ok && tr.StockRegen > 0 {
			rate = tr.StockRegen
		}
		market.RegenStock(e.st.Listings[id], rate)
	}
}

// tickEventCheck rolls for a new major event once the cooldown has passed.
func (e *Engine) tickEventCheck(now time.Time, _ time.Duration) {
	if now.Before(e.st.EventCooldownUntil) {
		return
	}
	if !entropy.Chance(e.src, e.cfg.EventChance) {
		return
	}
	if ev := SelectEvent(e.cat.Events, e.st.EventLastFired, now, e.src); ev != nil {
		e.startEvent(ev, now)
	}
}

func (e *Engine) tickEventExpiry(now time.Time, _ time.Duration) {
	ae := e.st.Event
	if ae == nil || ae.EndsAt.IsZero() || now.Before(ae.EndsAt) {
		return
	}
	e.st.Event = nil
	e.prices.Reset()
	e.say(fmt.Sprintf("%s has ended.", ae.Event.Name), CategoryEvent)
}

// SelectEvent draws one eligible event weighted by rarity. An event is
// eligible when it has positive rarity and its minimum gap since it last
// fired has passed. It returns nil when nothing is eligible.
func SelectEvent(events []catalog.Event, lastFired map[string]time.Time, now time.Time, src entropy.Source) *catalog.Event {
	var eligible []*catalog.Event
	total := 0.0
	for i := range events {
		ev := &events[i]
		if ev.Rarity <= 0 {
			continue
		}
		if last, ok := lastFired[ev.ID]; ok && now.Sub(last) < time.Duration(ev.MinCycleGap*float64(time.Second)) {
			continue
		}
		eligible = append(eligible, ev)
		total += ev.Rarity
	}
	if len(eligible) == 0 {
		return nil
	}
	r := entropy.OrDefault(src).Float64() * total
	for _, ev := range eligible {
		r -= ev.Rarity
		if r < 0 {
			return ev
		}
	}
	return eligible[len(eligible)-1]
}

// TriggerEvent starts a specific event immediately, bypassing chance and
// cooldown.
func (e *Engine) TriggerEvent(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.st.currentTrader(); !ok {
		return false
	}
	for i := range e.cat.Events {
		if e.cat.Events[i].ID == id {
			e.startEvent(&e.cat.Events[i], e.clock())
			return true
		}
	}
	return false
}

// startEvent replaces the active event and shocks every listing it touches.
func (e *Engine) startEvent(ev *catalog.Event, now time.Time) {
	ae := &ActiveEvent{Event: ev, StartedAt: now}
	if ev.Duration > 0 {
		ae.EndsAt = now.Add(time.Duration(ev.Duration * float64(time.Second)))
	}
	e.st.Event = ae
	e.st.EventLastFired[ev.ID] = now
	cooldown := time.Duration(float64(e.cfg.EventCooldown) * (1 - e.dangerLevel()))
	e.st.EventCooldownUntil = now.Add(cooldown)

	touched := 0
	for _, id := range e.st.Traders {
		touched += market.ApplyEvent(e.st.Listings[id], ev, e.src)
	}
	// Tick rates depend on the event, so every slot re-samples.
	e.prices.Reset()

	e.log.Info("major event", "event", ev.ID, "listings", touched)
	e.say(fmt.Sprintf("%s: %s", ev.Name, ev.Description), CategoryEvent)
	if ev.Effect.SpawnEnemy {
		if g := e.galaxy(); g != nil && (g.Danger || g.War) {
			kind := ev.Effect.Enemy
			if kind == "" {
				kind = "Raiders"
			}
			e.sounds.Play(SoundAlarm)
			e.encounters.SpawnEnemy(kind)
		}
	}
}
