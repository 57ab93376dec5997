package engine

import (
	"time"

	"github.com/talgya/star-market/internal/market"
)

// SetQuantumPower switches trade automation on or off.
func (e *Engine) SetQuantumPower(on bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.st.currentTrader(); !ok {
		return false
	}
	if on && e.st.QuantumProcessors <= 0 {
		return e.reject("Install a quantum processor first.")
	}
	if on && e.st.Jump.Active {
		return e.reject("Quantum power can't start mid-jump.")
	}
	e.st.QuantumPower = on
	if on {
		e.say("Quantum power online.", CategoryQuantum)
	} else {
		e.say("Quantum power offline.", CategoryQuantum)
	}
	return true
}

// tickAutomation trades at the current trader on the player's behalf. Each
// installed processor buys one more unit per run. Automated trades go
// through the same pipeline as manual ones; their refusals stay quiet.
func (e *Engine) tickAutomation(now time.Time, _ time.Duration) {
	if !e.st.QuantumPower || e.st.QuantumProcessors <= 0 || e.st.inTransit() {
		return
	}
	traderID, ok := e.st.currentTrader()
	if !ok {
		return
	}
	e.automating = true
	defer func() { e.automating = false }()

	for _, l := range market.Clone(e.st.Listings[traderID]) {
		costs := e.st.PurchaseHistory[l.Name]
		if e.st.holding(l.Name) <= 0 || len(costs) == 0 {
			continue
		}
		sum := 0
		for _, c := range costs {
			sum += c
		}
		avg := float64(sum) / float64(len(costs))
		if float64(l.Price) >= avg*(1+e.cfg.AutoSellMargin) {
			e.sellAll(ByItemID(l.ItemID), now, true)
		}
	}

	for range e.st.QuantumProcessors {
		best, bestRatio := -1, 1-e.cfg.AutoBuyDiscount
		for i, l := range e.st.Listings[traderID] {
			if l.Stock <= 0 || l.BasePrice <= 0 || l.Illegal || l.Price > e.st.Credits {
				continue
			}
			if r := float64(l.Price) / float64(l.BasePrice); r <= bestRatio {
				best, bestRatio = i, r
			}
		}
		if best < 0 || !e.buyOne(ByIndex(best), now, true) {
			return
		}
	}
}
