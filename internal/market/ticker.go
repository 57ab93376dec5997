package market

import (
	"time"

	"github.com/talgya/star-market/internal/catalog"
	"github.com/talgya/star-market/internal/entropy"
)

var (
	// DefaultTickRate applies to items without a usable price_tick_rate (seconds).
	DefaultTickRate = catalog.Range{5, 15}

	// DefaultEventMultiplier replaces malformed event multiplier data.
	DefaultEventMultiplier = catalog.Range{0.8, 1.5}
)

const minTickRate = 100 * time.Millisecond

// SlotKey identifies one listing slot of one trader.
type SlotKey struct {
	Trader string
	Slot   int
}

// TickRecord tracks when a slot last moved and how long until it may move again.
type TickRecord struct {
	LastMutation time.Time
	Rate         time.Duration
}

// PriceTicker mutates listings on their own cadence. It is not safe for
// concurrent use; the engine serializes access.
type PriceTicker struct {
	cat     *catalog.Catalog
	src     entropy.Source
	records map[SlotKey]TickRecord
}

// NewPriceTicker creates a ticker with no slot history.
func NewPriceTicker(cat *catalog.Catalog, src entropy.Source) *PriceTicker {
	return &PriceTicker{
		cat:     cat,
		src:     entropy.OrDefault(src),
		records: make(map[SlotKey]TickRecord),
	}
}

// Reset forgets all slot history, e.g. after the galaxy is re-rolled.
func (p *PriceTicker) Reset() {
	p.records = make(map[SlotKey]TickRecord)
}

// Record returns the tick record of a slot.
func (p *PriceTicker) Record(key SlotKey) (TickRecord, bool) {
	r, ok := p.records[key]
	return r, ok
}

// EffectiveTickRate samples an item's tick interval, scaled by the active
// event's priceTickRateMultiplier when the event defines one.
func EffectiveTickRate(item *catalog.Item, ev *catalog.Event, src entropy.Source) time.Duration {
	rate := DefaultTickRate
	if item != nil {
		rate = item.PriceTickRate.Or(DefaultTickRate)
	}
	secs := rate.Sample(src)
	if ev != nil {
		if _, _, ok := ev.Effect.PriceTickRateMultiplier.Bounds(); ok {
			secs *= ev.Effect.PriceTickRateMultiplier.Sample(src, DefaultEventMultiplier)
		}
	}
	d := time.Duration(secs * float64(time.Second))
	if d < minTickRate {
		d = minTickRate
	}
	return d
}

// Tick mutates every listing of one trader whose interval has elapsed and
// returns how many changed. A slot seen for the first time only gets a record.
func (p *PriceTicker) Tick(now time.Time, traderID string, listings []Listing, ev *catalog.Event) int {
	changed := 0
	for i := range listings {
		item, ok := p.cat.Item(listings[i].ItemID)
		if !ok {
			continue
		}
		key := SlotKey{Trader: traderID, Slot: i}
		rec, seen := p.records[key]
		if !seen {
			p.records[key] = TickRecord{LastMutation: now, Rate: EffectiveTickRate(item, ev, p.src)}
			continue
		}
		if now.Sub(rec.LastMutation) < rec.Rate {
			continue
		}
		MutatePrice(&listings[i], ev, p.src)
		p.records[key] = TickRecord{LastMutation: now, Rate: EffectiveTickRate(item, ev, p.src)}
		changed++
	}
	return changed
}

// MutatePrice applies one price step: an event resample for affected items,
// otherwise a bounded random walk.
func MutatePrice(l *Listing, ev *catalog.Event, src entropy.Source) {
	if ev != nil && ev.Affects(l.ItemID) {
		mult := ev.Effect.PriceMultiplierRange.Sample(src, DefaultEventMultiplier)
		l.Price = roundPrice(float64(l.BasePrice) * mult)
		return
	}
	vol := l.VolatilityRange.Or(DefaultVolatility)
	step := vol.SampleInt(src) * entropy.Sign(src)
	l.Price += step
	if l.Price < 1 {
		l.Price = 1
	}
}

// ApplyEvent shocks every affected listing: prices are resampled around the
// base price and, when the event defines it, stock is scaled.
func ApplyEvent(listings []Listing, ev *catalog.Event, src entropy.Source) int {
	if ev == nil {
		return 0
	}
	_, _, scaleStock := ev.Effect.StockMultiplierRange.Bounds()
	n := 0
	for i := range listings {
		l := &listings[i]
		if !ev.Affects(l.ItemID) {
			continue
		}
		mult := ev.Effect.PriceMultiplierRange.Sample(src, DefaultEventMultiplier)
		l.Price = roundPrice(float64(l.BasePrice) * mult)
		if scaleStock {
			stock := int(float64(l.Stock)*ev.Effect.StockMultiplierRange.Sample(src, DefaultEventMultiplier) + 0.5)
			if stock < 0 {
				stock = 0
			}
			l.Stock = stock
		}
		n++
	}
	return n
}
