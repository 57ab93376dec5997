// Package market provides per-trader item listings and the mechanics that
// move them: generation on galaxy entry, per-listing price ticks, stock
// regeneration, event shocks and restocking.
package market

import (
	"math"

	"github.com/talgya/star-market/internal/catalog"
)

const (
	// StockRegenCap bounds the periodic regeneration sweep.
	StockRegenCap = 1000

	// DefaultRestockCap applies when an item has no max_stock.
	DefaultRestockCap = 99
)

// Listing is one item a trader currently offers.
type Listing struct {
	ItemID          int           `json:"item_id"`
	Name            string        `json:"name"`
	Price           int           `json:"price"`      // Current unit price, always >= 1
	BasePrice       int           `json:"base_price"` // Fixed reference for event shocks
	Stock           int           `json:"stock"`      // Never negative
	VolatilityRange catalog.Range `json:"volatility_range"`
	Illegal         bool          `json:"illegal"`
}

// Find returns the index of the listing with the given item name, or -1.
func Find(listings []Listing, name string) int {
	for i := range listings {
		if listings[i].Name == name {
			return i
		}
	}
	return -1
}

// FindByID returns the index of the listing with the given item id, or -1.
func FindByID(listings []Listing, itemID int) int {
	for i := range listings {
		if listings[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// Clone copies a listing slice so snapshots never alias live state.
func Clone(listings []Listing) []Listing {
	if listings == nil {
		return nil
	}
	out := make([]Listing, len(listings))
	copy(out, listings)
	return out
}

// RestockCap is the ceiling applied when a trader buys units back.
func RestockCap(item *catalog.Item) int {
	if item == nil || item.MaxStock <= 0 {
		return DefaultRestockCap
	}
	return item.MaxStock
}

// Restock adds qty units, never pushing stock above ceiling. Stock that is
// already above the ceiling (from regeneration) is left as is.
func Restock(l *Listing, qty, ceiling int) {
	if qty <= 0 || l.Stock >= ceiling {
		return
	}
	l.Stock += qty
	if l.Stock > ceiling {
		l.Stock = ceiling
	}
}

// RegenStock adds rate units to every listing, capped at StockRegenCap.
func RegenStock(listings []Listing, rate int) {
	if rate <= 0 {
		return
	}
	for i := range listings {
		if listings[i].Stock >= StockRegenCap {
			continue
		}
		listings[i].Stock += rate
		if listings[i].Stock > StockRegenCap {
			listings[i].Stock = StockRegenCap
		}
	}
}

// roundPrice rounds to the nearest credit with a floor of 1.
func roundPrice(v float64) int {
	p := int(math.Round(v))
	if p < 1 {
		return 1
	}
	return p
}
