package market

import (
	"math"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/star-market/internal/catalog"
)

// DefaultFuelPriceRange applies to galaxies without a usable fuel_price_range.
var DefaultFuelPriceRange = catalog.Range{2, 5}

// fuelDriftPeriod is roughly how long fuel prices take to wander across the range.
const fuelDriftPeriod = 5 * time.Minute

// FuelPricer derives each trader's fuel price from smooth noise so prices
// drift slowly over time instead of jumping between ticks.
type FuelPricer struct {
	noise opensimplex.Noise
}

// NewFuelPricer creates a pricer for the given seed.
func NewFuelPricer(seed int64) *FuelPricer {
	return &FuelPricer{noise: opensimplex.NewNormalized(seed)}
}

// Price returns the per-unit fuel price at trader slot of galaxy g at time t.
func (f *FuelPricer) Price(g *catalog.Galaxy, slot int, t time.Time) int {
	r := DefaultFuelPriceRange
	gx := 0.0
	if g != nil {
		r = g.FuelPriceRange.Or(DefaultFuelPriceRange)
		if len(g.Coordinates) > 0 {
			gx = g.Coordinates[0]
		}
	}
	x := gx*0.1 + float64(slot)*3.7
	y := float64(t.UnixMilli()) / float64(fuelDriftPeriod.Milliseconds())
	n := f.noise.Eval2(x, y) // [0, 1]
	return roundPrice(math.Round(r.Lo() + n*(r.Hi()-r.Lo())))
}
