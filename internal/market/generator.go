package market

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/star-market/internal/catalog"
	"github.com/talgya/star-market/internal/entropy"
)

// Defaults for malformed trader ranges.
var (
	DefaultPriceMult     = catalog.Range{1, 2}
	DefaultStockRange    = catalog.Range{1, 10}
	DefaultVolatility    = catalog.Range{1, 1}
	DefaultNumberOfItems = catalog.Range{5, 8}
)

// rareSwapChance is the probability a rare item replaces a random slot.
const rareSwapChance = 0.5

// PrepareGalaxy rolls listings for every trader of a galaxy, one inner
// slice per trader in galaxy order. Unknown traders yield an empty slice so
// indices stay aligned with the galaxy's trader list.
func PrepareGalaxy(cat *catalog.Catalog, galaxyName string, src entropy.Source) ([][]Listing, error) {
	g, ok := cat.Galaxy(galaxyName)
	if !ok {
		return nil, fmt.Errorf("prepare galaxy %q: %w", galaxyName, catalog.ErrUnknownGalaxy)
	}
	src = entropy.OrDefault(src)

	out := make([][]Listing, 0, len(g.Traders))
	for _, id := range g.Traders {
		tr, ok := cat.Trader(id)
		if !ok {
			slog.Warn("galaxy references unknown trader", "galaxy", g.ID, "trader", id)
			out = append(out, []Listing{})
			continue
		}
		out = append(out, GenerateListings(cat, tr, src))
	}
	slog.Info("galaxy prepared", "galaxy", g.Name, "traders", len(out))
	return out, nil
}

// GenerateListings picks a trader's items and rolls their prices and stock.
func GenerateListings(cat *catalog.Catalog, tr *catalog.Trader, src entropy.Source) []Listing {
	src = entropy.OrDefault(src)
	count := int(math.Round(tr.NumberOfItems.Or(DefaultNumberOfItems).Hi()))

	reliable := make(map[int]bool, len(tr.ReliableItems))
	var chosen []int
	for _, id := range tr.ReliableItems {
		if reliable[id] {
			continue
		}
		if _, ok := cat.Item(id); !ok {
			slog.Warn("trader references unknown reliable item", "trader", tr.ID, "item", id)
			continue
		}
		reliable[id] = true
		chosen = append(chosen, id)
	}

	// Fill the remaining slots from everything that is not reliable.
	pool := make([]int, 0, len(cat.Items))
	for _, it := range cat.Items {
		if !reliable[it.ID] {
			pool = append(pool, it.ID)
		}
	}
	entropy.Shuffle(src, len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if need := count - len(chosen); need > 0 {
		if need > len(pool) {
			need = len(pool)
		}
		chosen = append(chosen, pool[:need]...)
	}

	rare := make(map[int]bool, len(tr.RareItems))
	for _, id := range tr.RareItems {
		rare[id] = true
	}
	if len(tr.RareItems) > 0 && entropy.Chance(src, rareSwapChance) {
		chosen = swapInRare(cat, tr, chosen, reliable, src)
	}

	priceMult := tr.PriceMult.Or(DefaultPriceMult)
	stockRange := tr.StockRange.Or(DefaultStockRange)
	volatility := tr.VolatilityRange.Or(DefaultVolatility)

	listings := make([]Listing, 0, len(chosen))
	for _, id := range chosen {
		it, ok := cat.Item(id)
		if !ok {
			continue
		}
		// Filtering after selection may leave fewer than count listings.
		if it.Illegal && !tr.IllegalItems {
			continue
		}
		baseMult := priceMult.Sample(src)
		vol := volatility.Sample(src)
		stock := stockRange.SampleInt(src)
		if stock < 0 {
			stock = 0
		}
		if stock < 1 && (reliable[id] || rare[id]) {
			stock = 1
		}
		listings = append(listings, Listing{
			ItemID:          it.ID,
			Name:            it.Name,
			Price:           roundPrice(float64(it.BasePrice) * baseMult * vol),
			BasePrice:       it.BasePrice,
			Stock:           stock,
			VolatilityRange: append(catalog.Range(nil), volatility...),
			Illegal:         it.Illegal,
		})
	}
	return listings
}

// swapInRare replaces one non-reliable slot with a rare item not already chosen.
func swapInRare(cat *catalog.Catalog, tr *catalog.Trader, chosen []int, reliable map[int]bool, src entropy.Source) []int {
	present := make(map[int]bool, len(chosen))
	for _, id := range chosen {
		present[id] = true
	}
	var candidates []int
	for _, id := range tr.RareItems {
		if _, ok := cat.Item(id); ok && !present[id] {
			candidates = append(candidates, id)
		}
	}
	var slots []int
	for i, id := range chosen {
		if !reliable[id] {
			slots = append(slots, i)
		}
	}
	if len(candidates) == 0 || len(slots) == 0 {
		return chosen
	}
	chosen[slots[src.Intn(len(slots))]] = candidates[src.Intn(len(candidates))]
	return chosen
}
