// Package catalog holds the static reference data of the market: items,
// trader configs, galaxies and major events. A Catalog is immutable once
// loaded and safe to share between goroutines.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

var (
	ErrUnknownItem   = errors.New("unknown item")
	ErrUnknownTrader = errors.New("unknown trader")
	ErrUnknownGalaxy = errors.New("unknown galaxy")
)

// Item is a tradable good.
type Item struct {
	ID            int              `yaml:"id" json:"id"`
	Name          string           `yaml:"name" json:"name"` // Unique, used as a map key throughout
	Description   string           `yaml:"description" json:"description"`
	BasePrice     int              `yaml:"base_price" json:"base_price"`
	DeliveryTime  float64          `yaml:"delivery_time" json:"delivery_time"` // Seconds
	Illegal       bool             `yaml:"illegal" json:"illegal"`
	MaxStock      int              `yaml:"max_stock" json:"max_stock"`
	PriceTickRate Range            `yaml:"price_tick_rate" json:"price_tick_rate"` // Seconds
	Effects       map[string]Value `yaml:"effects" json:"-"`
	TravelSell    bool             `yaml:"travel_sell" json:"travel_sell"` // Sellable while traveling
}

// Trader configures how a trader's listings are rolled.
type Trader struct {
	ID                        string `yaml:"id"`
	Name                      string `yaml:"name"`
	NumberOfItems             Range  `yaml:"number_of_items"`
	PriceMult                 Range  `yaml:"price_mult"`
	VolatilityRange           Range  `yaml:"volatility_range"`
	StockRange                Range  `yaml:"stock_range"`
	StockRegen                int    `yaml:"stock_regen"` // Units added per regen sweep
	ReliableItems             []int  `yaml:"reliable_items"`
	RareItems                 []int  `yaml:"rare_items"`
	IllegalItems              bool   `yaml:"illegal_items"`
	MaxSecretRejections       int    `yaml:"max_secret_rejections"`
	SecretAddiction           int    `yaml:"secret_addiction"`
	SecretAddictionMultiplier Range  `yaml:"secret_addiction_multiplier"`
	LanguageRange             Range  `yaml:"language_range"`
}

// Galaxy is a jump destination holding an ordered set of traders.
type Galaxy struct {
	ID             string    `yaml:"id" json:"id"`
	Name           string    `yaml:"name" json:"name"`
	Traders        []string  `yaml:"traders" json:"traders"`
	Danger         bool      `yaml:"danger" json:"danger"`
	War            bool      `yaml:"war" json:"war"`
	FuelPriceRange Range     `yaml:"fuel_price_range" json:"fuel_price_range"`
	Coordinates    []float64 `yaml:"coordinates" json:"coordinates"`
	JumpFuel       int       `yaml:"jump_fuel" json:"jump_fuel"` // Base fuel for jumping here
}

// EventEffect describes how a major event shocks the market.
type EventEffect struct {
	AffectedItems           []int  `yaml:"affected_items"` // Empty means every listing
	PriceMultiplierRange    Value  `yaml:"price_multiplier_range"`
	StockMultiplierRange    Value  `yaml:"stock_multiplier_range"`
	PriceTickRateMultiplier Value  `yaml:"price_tick_rate_multiplier"`
	SpawnEnemy              bool   `yaml:"spawn_enemy"`
	Enemy                   string `yaml:"enemy"`
}

// Event is a random major event.
type Event struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Rarity      float64     `yaml:"rarity"`        // Relative weight
	MinCycleGap float64     `yaml:"min_cycle_gap"` // Seconds since this event last fired
	Duration    float64     `yaml:"duration"`      // Seconds, 0 = until replaced
	Effect      EventEffect `yaml:"effect"`
}

// Affects reports whether the event touches the given item.
func (e *Event) Affects(itemID int) bool {
	if e == nil {
		return false
	}
	if len(e.Effect.AffectedItems) == 0 {
		return true
	}
	for _, id := range e.Effect.AffectedItems {
		if id == itemID {
			return true
		}
	}
	return false
}

// Catalog is the loaded reference data with lookup indices.
type Catalog struct {
	Items    []Item   `yaml:"items"`
	Traders  []Trader `yaml:"traders"`
	Galaxies []Galaxy `yaml:"galaxies"`
	Events   []Event  `yaml:"events"`

	itemsByID   map[int]*Item
	itemsByName map[string]*Item
	tradersByID map[string]*Trader
	galaxies    map[string]*Galaxy // ID and lower-cased name → galaxy
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and builds its indices.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	c.itemsByID = make(map[int]*Item, len(c.Items))
	c.itemsByName = make(map[string]*Item, len(c.Items))
	for i := range c.Items {
		it := &c.Items[i]
		if _, dup := c.itemsByID[it.ID]; dup {
			return fmt.Errorf("duplicate item id %d", it.ID)
		}
		if _, dup := c.itemsByName[it.Name]; dup {
			return fmt.Errorf("duplicate item name %q", it.Name)
		}
		c.itemsByID[it.ID] = it
		c.itemsByName[it.Name] = it
	}

	c.tradersByID = make(map[string]*Trader, len(c.Traders))
	for i := range c.Traders {
		tr := &c.Traders[i]
		if _, dup := c.tradersByID[tr.ID]; dup {
			return fmt.Errorf("duplicate trader id %q", tr.ID)
		}
		c.tradersByID[tr.ID] = tr
	}

	c.galaxies = make(map[string]*Galaxy, 2*len(c.Galaxies))
	for i := range c.Galaxies {
		g := &c.Galaxies[i]
		if _, dup := c.galaxies[g.ID]; dup {
			return fmt.Errorf("duplicate galaxy id %q", g.ID)
		}
		c.galaxies[g.ID] = g
		c.galaxies[strings.ToLower(g.Name)] = g
	}
	return nil
}

// Item resolves an item definition by id.
func (c *Catalog) Item(id int) (*Item, bool) {
	it, ok := c.itemsByID[id]
	return it, ok
}

// ItemByName resolves an item definition by its display name.
func (c *Catalog) ItemByName(name string) (*Item, bool) {
	it, ok := c.itemsByName[name]
	return it, ok
}

// Trader resolves a trader config by id.
func (c *Catalog) Trader(id string) (*Trader, bool) {
	tr, ok := c.tradersByID[id]
	return tr, ok
}

// Galaxy resolves a galaxy by id or case-insensitive name.
func (c *Catalog) Galaxy(key string) (*Galaxy, bool) {
	if g, ok := c.galaxies[key]; ok {
		return g, true
	}
	g, ok := c.galaxies[strings.ToLower(key)]
	return g, ok
}

// FirstGalaxy returns the first galaxy in catalog order, or nil.
func (c *Catalog) FirstGalaxy() *Galaxy {
	if len(c.Galaxies) == 0 {
		return nil
	}
	return &c.Galaxies[0]
}

// Validate reports dangling references. The market tolerates them at
// runtime (they are skipped with a warning), so this is advisory.
func (c *Catalog) Validate() error {
	var errs []error
	for _, tr := range c.Traders {
		for _, id := range tr.ReliableItems {
			if _, ok := c.Item(id); !ok {
				errs = append(errs, fmt.Errorf("trader %q reliable item %d: %w", tr.ID, id, ErrUnknownItem))
			}
		}
		for _, id := range tr.RareItems {
			if _, ok := c.Item(id); !ok {
				errs = append(errs, fmt.Errorf("trader %q rare item %d: %w", tr.ID, id, ErrUnknownItem))
			}
		}
		if !tr.PriceMult.Valid() {
			errs = append(errs, fmt.Errorf("trader %q: malformed price_mult", tr.ID))
		}
	}
	for _, g := range c.Galaxies {
		for _, id := range g.Traders {
			if _, ok := c.Trader(id); !ok {
				errs = append(errs, fmt.Errorf("galaxy %q trader %q: %w", g.ID, id, ErrUnknownTrader))
			}
		}
	}
	for _, ev := range c.Events {
		for _, id := range ev.Effect.AffectedItems {
			if _, ok := c.Item(id); !ok {
				errs = append(errs, fmt.Errorf("event %q affected item %d: %w", ev.ID, id, ErrUnknownItem))
			}
		}
		if ev.Rarity <= 0 {
			errs = append(errs, fmt.Errorf("event %q: rarity must be > 0", ev.ID))
		}
	}
	return errors.Join(errs...)
}
