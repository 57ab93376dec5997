package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/talgya/star-market/internal/catalog"
	"github.com/talgya/star-market/internal/effects"
	"github.com/talgya/star-market/internal/entropy"
	"github.com/talgya/star-market/internal/market"
)

const testCatalog = `
items:
  - {id: 1, name: Widget, base_price: 50, delivery_time: 5, max_stock: 20, travel_sell: true, price_tick_rate: [3600, 3600]}
  - {id: 2, name: Gadget, base_price: 20, delivery_time: 2, price_tick_rate: [3600, 3600]}
  - {id: 3, name: Neural Booster, base_price: 100, delivery_time: 1, illegal: true, effects: {"+improved_AI": 600}}
  - {id: 4, name: Med Kit, base_price: 10, delivery_time: 1, effects: {"+heal_player": 30}}
  - {id: 5, name: Signal Receiver, base_price: 10, delivery_time: 1, effects: {"+tool_receiver": 60}}
  - {id: 6, name: Quantum Processor, base_price: 400, delivery_time: 1, max_stock: 8, price_tick_rate: [3600, 3600], effects: {"+quantum_processor": 1}}
  - {id: 7, name: Fuel Optimizer, base_price: 10, delivery_time: 1, effects: {"-fuel_cost": 0.5}}
  - {id: 8, name: Particle Reverter, base_price: 10, delivery_time: 1, effects: {"+tool_reverter": 60}}
traders:
  - {id: alpha, name: Alpha Post, number_of_items: [2, 2], price_mult: [1, 1], volatility_range: [1, 1], stock_range: [10, 10], reliable_items: [1, 2]}
  - {id: beta, name: Beta Hub, number_of_items: [2, 2], price_mult: [1, 1], volatility_range: [1, 1], stock_range: [5, 5], reliable_items: [1, 6]}
galaxies:
  - {id: home, name: Home, traders: [alpha, beta], coordinates: [0, 0], jump_fuel: 10}
  - {id: far, name: Far Reach, traders: [beta], coordinates: [30, 40], jump_fuel: 10, danger: true}
events:
  - id: boom
    name: Boom
    description: Widgets are the rage.
    rarity: 1
    min_cycle_gap: 60
    duration: 30
    effect: {affected_items: [1], price_multiplier_range: 2}
`

type recorder struct {
	notes   []string
	sounds  []string
	enemies []string
	ai      []float64
	drones  []int
}

func (r *recorder) AddFloatingMessage(text, _ string) { r.notes = append(r.notes, text) }
func (r *recorder) Play(name string)                  { r.sounds = append(r.sounds, name) }
func (r *recorder) SpawnEnemy(kind string)            { r.enemies = append(r.enemies, kind) }
func (r *recorder) SetAILevel(v float64)              { r.ai = append(r.ai, v) }
func (r *recorder) SetCourierDrones(n int)            { r.drones = append(r.drones, n) }

func (r *recorder) saw(fragment string) int {
	n := 0
	for _, note := range r.notes {
		if strings.Contains(note, fragment) {
			n++
		}
	}
	return n
}

type harness struct {
	t   *testing.T
	e   *Engine
	rec *recorder
	now time.Time
}

func newHarness(t *testing.T, snap Snapshot) *harness {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	cfg := DefaultConfig()
	cfg.EventChance = 0

	h := &harness{t: t, rec: &recorder{}, now: time.Unix(1_700_000_000, 0)}
	h.e = New(cat,
		WithConfig(cfg),
		WithSource(entropy.NewSeeded(42)),
		WithClock(func() time.Time { return h.now }),
		WithNotifier(h.rec),
		WithSounds(h.rec),
		WithEncounters(h.rec),
		WithProgression(h.rec),
	)
	if err := h.e.InitializeGameState(snap); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	h.e.Tick(h.now)
	return h
}

// advance moves the clock in frame-sized steps, ticking after each.
func (h *harness) advance(d time.Duration) {
	for end := h.now.Add(d); h.now.Before(end); {
		h.now = h.now.Add(50 * time.Millisecond)
		h.e.Tick(h.now)
	}
}

func (h *harness) listing(trader, name string) *market.Listing {
	h.t.Helper()
	ls := h.e.st.Listings[trader]
	i := market.Find(ls, name)
	if i < 0 {
		h.t.Fatalf("%s does not list %s", trader, name)
	}
	return &ls[i]
}

func TestHandlersAreNoopsBeforeInitialization(t *testing.T) {
	cat, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	e := New(cat, WithNotifier(rec), WithSource(entropy.NewSeeded(1)))

	if e.HandleBuyClick(ByIndex(0)) || e.HandleSellAll(ByName("Widget")) || e.HandleNextTrader() || e.HandleUseItem("Med Kit") {
		t.Fatalf("handlers must refuse before initialization")
	}
	if n := e.Tick(time.Now()); n != 0 {
		t.Fatalf("tick ran %d systems before initialization", n)
	}
	if len(rec.notes) != 0 {
		t.Fatalf("unexpected notices %v", rec.notes)
	}
}

func TestBuyQueuesDeliveryShortenedByDrones(t *testing.T) {
	h := newHarness(t, Snapshot{CourierDrones: ptr(1)})

	if !h.e.HandleBuyClick(ByName("Widget")) {
		t.Fatalf("buy rejected: %v", h.rec.notes)
	}
	if h.e.st.Credits != 450 {
		t.Fatalf("credits = %d, want 450", h.e.st.Credits)
	}
	if got := h.listing("alpha", "Widget").Stock; got != 9 {
		t.Fatalf("stock = %d, want 9", got)
	}
	if len(h.e.st.Deliveries) != 1 || h.e.st.Deliveries[0].TotalTime != 2500*time.Millisecond {
		t.Fatalf("deliveries = %+v", h.e.st.Deliveries)
	}
	if h.e.st.holding("Widget") != 0 {
		t.Fatalf("purchase must not reach inventory before delivery")
	}

	h.advance(2400 * time.Millisecond)
	if h.e.st.holding("Widget") != 0 {
		t.Fatalf("delivered early")
	}
	h.advance(100 * time.Millisecond)
	if h.e.st.holding("Widget") != 1 || len(h.e.st.Deliveries) != 0 {
		t.Fatalf("delivery not completed: inv=%+v queue=%+v", h.e.st.Inventory, h.e.st.Deliveries)
	}
}

func TestSellUsesFIFOCostBasis(t *testing.T) {
	h := newHarness(t, Snapshot{})
	widget := h.listing("alpha", "Widget")

	h.e.HandleBuyClick(ByName("Widget")) // 50
	widget.Price = 60
	h.e.HandleBuyClick(ByName("Widget")) // 60
	h.advance(5 * time.Second)
	if h.e.st.holding("Widget") != 2 {
		t.Fatalf("expected 2 widgets, have %d", h.e.st.holding("Widget"))
	}

	widget.Price = 70
	if !h.e.HandleSellClick(ByName("Widget")) {
		t.Fatalf("sell rejected: %v", h.rec.notes)
	}
	last := h.e.st.TradeHistory[len(h.e.st.TradeHistory)-1]
	if last.Type != "sell" || last.Profit != 20 {
		t.Fatalf("first sale should be against the oldest cost: %+v", last)
	}
	if got := h.e.st.PurchaseHistory["Widget"]; len(got) != 1 || got[0] != 60 {
		t.Fatalf("remaining history = %v", got)
	}
	if widget.Stock != 9 {
		t.Fatalf("trader should restock what it buys, stock = %d", widget.Stock)
	}
	if h.e.st.Credits != 500-50-60+70 {
		t.Fatalf("credits = %d", h.e.st.Credits)
	}
}

func TestSellAllDrainsCostBasis(t *testing.T) {
	h := newHarness(t, Snapshot{})
	gadget := h.listing("alpha", "Gadget")

	h.e.HandleBuyClick(ByName("Gadget")) // 20
	gadget.Price = 30
	h.e.HandleBuyClick(ByName("Gadget")) // 30
	h.advance(2 * time.Second)

	gadget.Price = 40
	if !h.e.HandleSellAll(ByName("Gadget")) {
		t.Fatalf("sell all rejected: %v", h.rec.notes)
	}
	last := h.e.st.TradeHistory[len(h.e.st.TradeHistory)-1]
	if last.Quantity != 2 || last.Profit != 30 {
		t.Fatalf("sell all record = %+v", last)
	}
	if h.e.st.holding("Gadget") != 0 || h.e.st.inventoryIndex("Gadget") >= 0 {
		t.Fatalf("empty inventory entries must be pruned")
	}
	if _, ok := h.e.st.PurchaseHistory["Gadget"]; ok {
		t.Fatalf("history should be drained")
	}
}

func TestSellAllBooksUncostedUnitsAtSalePrice(t *testing.T) {
	h := newHarness(t, Snapshot{Inventory: []InventoryEntry{{Name: "Gadget", Quantity: 3, Price: 10}}})
	h.e.st.PurchaseHistory["Gadget"] = []int{10}
	h.listing("alpha", "Gadget").Price = 15

	if !h.e.HandleSellAll(ByName("Gadget")) {
		t.Fatalf("sell all rejected: %v", h.rec.notes)
	}
	last := h.e.st.TradeHistory[len(h.e.st.TradeHistory)-1]
	if last.Quantity != 3 || last.Profit != 5 {
		t.Fatalf("only the costed unit earns profit: %+v", last)
	}
	if h.e.st.Credits != 545 {
		t.Fatalf("credits = %d, want 545", h.e.st.Credits)
	}
}

func TestSellRejectsWhatPlayerDoesNotOwn(t *testing.T) {
	h := newHarness(t, Snapshot{})
	if h.e.HandleSellClick(ByName("Widget")) {
		t.Fatalf("sold a widget the player never owned")
	}
	if h.e.st.Credits != 500 || h.listing("alpha", "Widget").Stock != 10 {
		t.Fatalf("rejected sale mutated state")
	}
}

func TestBuyAllIsAllOrNothing(t *testing.T) {
	h := newHarness(t, Snapshot{Credits: ptr(699)})

	if h.e.HandleBuyAll() {
		t.Fatalf("bulk buy should fail when the total (700) is unaffordable")
	}
	if h.e.st.Credits != 699 || len(h.e.st.Deliveries) != 0 {
		t.Fatalf("failed bulk buy mutated state: credits=%d deliveries=%d", h.e.st.Credits, len(h.e.st.Deliveries))
	}
	for _, l := range h.e.st.Listings["alpha"] {
		if l.Stock != 10 {
			t.Fatalf("%s stock changed to %d", l.Name, l.Stock)
		}
	}

	if err := h.e.InitializeGameState(Snapshot{Credits: ptr(1000)}); err != nil {
		t.Fatal(err)
	}
	if !h.e.HandleBuyAll() {
		t.Fatalf("bulk buy rejected: %v", h.rec.notes)
	}
	if h.e.st.Credits != 300 {
		t.Fatalf("credits = %d, want 300", h.e.st.Credits)
	}
	for _, l := range h.e.st.Listings["alpha"] {
		if l.Stock != 0 {
			t.Fatalf("%s stock = %d after bulk buy", l.Name, l.Stock)
		}
	}
	if len(h.e.st.Deliveries) != 2 || len(h.e.st.PurchaseHistory["Widget"]) != 10 {
		t.Fatalf("deliveries=%+v history=%v", h.e.st.Deliveries, h.e.st.PurchaseHistory)
	}
}

func TestInsufficientCreditsEscalates(t *testing.T) {
	h := newHarness(t, Snapshot{Credits: ptr(30)})

	h.e.HandleBuyClick(ByName("Widget"))
	h.e.HandleBuyClick(ByName("Widget"))
	if h.e.st.RejectionStreak != 2 {
		t.Fatalf("streak = %d", h.e.st.RejectionStreak)
	}
	if h.rec.notes[0] == h.rec.notes[1] {
		t.Fatalf("repeated rejections should escalate: %v", h.rec.notes)
	}
	if !h.e.HandleBuyClick(ByName("Gadget")) || h.e.st.RejectionStreak != 0 {
		t.Fatalf("a successful purchase resets the streak")
	}
}

func TestTravelGatesTrading(t *testing.T) {
	h := newHarness(t, Snapshot{Inventory: []InventoryEntry{{Name: "Signal Receiver", Quantity: 1, Price: 10}}})

	if !h.e.HandleNextTrader() {
		t.Fatalf("hop rejected: %v", h.rec.notes)
	}
	if h.e.st.Fuel != 95 || !h.e.st.Travel.InTravel || h.e.st.Travel.PendingTrader != "beta" {
		t.Fatalf("travel state = %+v fuel=%d", h.e.st.Travel, h.e.st.Fuel)
	}
	if h.e.HandleNextTrader() {
		t.Fatalf("second hop must be refused while under way")
	}

	before := h.e.st.Credits
	if h.e.HandleBuyClick(ByName("Widget")) || h.e.HandleBuyAll() {
		t.Fatalf("buying in transit requires a receiver")
	}
	if h.e.st.Credits != before || h.listing("alpha", "Widget").Stock != 10 || h.e.st.RejectionStreak != 0 {
		t.Fatalf("gated purchase mutated state")
	}

	h.advance(1500 * time.Millisecond)
	if !h.e.HandleUseItem("Signal Receiver") {
		t.Fatalf("use rejected: %v", h.rec.notes)
	}
	if !h.e.HandleBuyClick(ByName("Widget")) {
		t.Fatalf("receiver should allow buying in transit: %v", h.rec.notes)
	}
	// Halfway through the hop: 50 * (1 + 0.5*0.5) = 62.5, rounded up.
	if got := before - h.e.st.Credits; got != 63 {
		t.Fatalf("paid %d in transit, want 63", got)
	}

	h.advance(1500 * time.Millisecond)
	if h.e.st.Travel.InTravel || h.e.st.TraderIndex != 1 {
		t.Fatalf("should have arrived at beta: %+v index=%d", h.e.st.Travel, h.e.st.TraderIndex)
	}
}

func TestTravelSellNeedsReverterAndTravelSell(t *testing.T) {
	h := newHarness(t, Snapshot{Inventory: []InventoryEntry{
		{Name: "Widget", Quantity: 2, Price: 50},
		{Name: "Gadget", Quantity: 2, Price: 20},
		{Name: "Particle Reverter", Quantity: 1, Price: 10},
	}})
	if !h.e.HandleNextTrader() {
		t.Fatalf("hop rejected: %v", h.rec.notes)
	}
	h.advance(1500 * time.Millisecond)
	widget := h.listing("alpha", "Widget")

	before := h.e.st.Credits
	if h.e.HandleSellClick(ByName("Widget")) || h.e.HandleSellAll(ByName("Widget")) {
		t.Fatalf("selling in transit requires a reverter")
	}
	if h.e.st.Credits != before || h.e.st.holding("Widget") != 2 || widget.Stock != 10 {
		t.Fatalf("gated sale mutated state")
	}

	if !h.e.HandleUseItem("Particle Reverter") {
		t.Fatalf("use rejected: %v", h.rec.notes)
	}
	if h.e.HandleSellClick(ByName("Gadget")) {
		t.Fatalf("gadgets are not sellable in transit even with a reverter")
	}
	if h.e.st.Credits != before || h.e.st.holding("Gadget") != 2 {
		t.Fatalf("gated sale mutated state")
	}

	if !h.e.HandleSellClick(ByName("Widget")) {
		t.Fatalf("reverter should allow selling widgets in transit: %v", h.rec.notes)
	}
	// Same markup as buying halfway through the hop.
	if got := h.e.st.Credits - before; got != 63 {
		t.Fatalf("received %d in transit, want 63", got)
	}
	if h.e.st.holding("Widget") != 1 || widget.Stock != 11 {
		t.Fatalf("held=%d stock=%d", h.e.st.holding("Widget"), widget.Stock)
	}
}

func TestTraderRefusesProcessorsAboveCap(t *testing.T) {
	h := newHarness(t, Snapshot{Inventory: []InventoryEntry{{Name: QuantumItem, Quantity: 2, Price: 400}}})
	h.e.HandlePrevTrader() // wraps to beta
	h.advance(3 * time.Second)
	if id, _ := h.e.st.currentTrader(); id != "beta" {
		t.Fatalf("at %q, want beta", id)
	}

	qp := h.listing("beta", QuantumItem)
	if h.e.HandleSellClick(ByName(QuantumItem)) {
		t.Fatalf("trader holding %d processors must refuse more", qp.Stock)
	}
	qp.Stock = 3
	if !h.e.HandleSellClick(ByName(QuantumItem)) {
		t.Fatalf("sale under the cap rejected: %v", h.rec.notes)
	}
	if qp.Stock != 4 || h.e.HandleSellClick(ByName(QuantumItem)) {
		t.Fatalf("cap not enforced after restock, stock = %d", qp.Stock)
	}
}

func TestUseItemAppliesEffects(t *testing.T) {
	h := newHarness(t, Snapshot{
		Health: ptr(50),
		Inventory: []InventoryEntry{
			{Name: "Med Kit", Quantity: 1, Price: 10},
			{Name: "Quantum Processor", Quantity: 1, Price: 400},
			{Name: "Fuel Optimizer", Quantity: 1, Price: 10},
		},
	})

	if !h.e.HandleUseItem("Med Kit") || h.e.st.Health != 80 {
		t.Fatalf("health = %d", h.e.st.Health)
	}
	if h.e.HandleUseItem("Med Kit") {
		t.Fatalf("used an item the player no longer has")
	}
	if !h.e.HandleUseItem(QuantumItem) || h.e.st.QuantumProcessors != 1 {
		t.Fatalf("processor not installed")
	}
	if !h.e.st.Status.Active(effects.QuantumStatus, h.now) {
		t.Fatalf("quantum status missing")
	}
	if !h.e.HandleUseItem("Fuel Optimizer") {
		t.Fatalf("optimizer rejected")
	}
	h.e.HandleNextTrader()
	if h.e.st.Fuel != 100-3 { // ceil(5 * 0.5)
		t.Fatalf("fuel = %d, optimizer should halve hop cost", h.e.st.Fuel)
	}
}

func TestIllegalAIBoostSummonsMarketPolice(t *testing.T) {
	h := newHarness(t, Snapshot{
		AILevel:   ptr(500.0),
		Inventory: []InventoryEntry{{Name: "Neural Booster", Quantity: 2, Price: 100}},
	})

	h.e.HandleUseItem("Neural Booster")
	if h.e.st.AILevel != 1100 {
		t.Fatalf("ai level = %v", h.e.st.AILevel)
	}
	if len(h.rec.enemies) != 1 || h.rec.enemies[0] != "Market Police" {
		t.Fatalf("enemies = %v", h.rec.enemies)
	}
	if got := h.rec.ai[len(h.rec.ai)-1]; got != 1100 {
		t.Fatalf("progression saw %v", got)
	}

	h.e.HandleUseItem("Neural Booster")
	if len(h.rec.enemies) != 1 {
		t.Fatalf("police spawn only when crossing the threshold: %v", h.rec.enemies)
	}
}

func TestStatusExpiresOnce(t *testing.T) {
	h := newHarness(t, Snapshot{Inventory: []InventoryEntry{{Name: "Signal Receiver", Quantity: 1, Price: 10}}})
	h.e.HandleUseItem("Signal Receiver")
	if !h.e.st.Status.Active(effects.ToolReceiver, h.now) {
		t.Fatalf("receiver not active")
	}

	h.advance(61 * time.Second)
	if h.e.st.Status.Active(effects.ToolReceiver, h.now) || h.e.st.Status.Len() != 0 {
		t.Fatalf("receiver outlived its duration")
	}
	if n := h.rec.saw("wore off"); n != 1 {
		t.Fatalf("expiry announced %d times", n)
	}
}

func TestJumpRerollsGalaxy(t *testing.T) {
	h := newHarness(t, Snapshot{QuantumProcessors: ptr(1)})
	h.e.SetQuantumPower(true)

	if h.e.TravelToGalaxy("home") {
		t.Fatalf("jumping to the current galaxy must be refused")
	}
	if h.e.TravelToGalaxy("Andromeda") {
		t.Fatalf("unknown galaxy accepted")
	}
	cost, err := h.e.JumpFuelCost("far reach")
	if err != nil || cost != 20 { // 10 base + 50 distance * 0.2
		t.Fatalf("jump cost = %d, %v", cost, err)
	}
	if !h.e.TravelToGalaxy("Far Reach") {
		t.Fatalf("jump rejected: %v", h.rec.notes)
	}
	if h.e.st.QuantumPower {
		t.Fatalf("quantum power must shut down for the jump")
	}
	if h.e.SetQuantumPower(true) {
		t.Fatalf("quantum power cannot restart mid-jump")
	}

	h.advance(10 * time.Second)
	if h.e.st.GalaxyID != "far" || len(h.e.st.Traders) != 1 || h.e.st.TraderIndex != 0 {
		t.Fatalf("galaxy = %q traders = %v", h.e.st.GalaxyID, h.e.st.Traders)
	}
	if h.e.st.Fuel != 80 || h.e.st.Jump.Active {
		t.Fatalf("fuel = %d jump = %+v", h.e.st.Fuel, h.e.st.Jump)
	}
	if _, ok := h.e.st.Listings["alpha"]; ok {
		t.Fatalf("old galaxy listings should be discarded")
	}
}

func TestInitializeClampsAndFilters(t *testing.T) {
	h := newHarness(t, Snapshot{
		Health:     ptr(250),
		Fuel:       ptr(-5),
		Credits:    ptr(-10),
		GalaxyName: ptr("Nowhere"),
		Inventory: []InventoryEntry{
			{Name: "Widget", Quantity: 2, Price: 50},
			{Name: "", Quantity: 1, Price: 1},
			{Name: "Gadget", Quantity: 0, Price: 20},
			{Name: "Gadget", Quantity: 1, Price: -1},
			{Name: "Widget", Quantity: 3, Price: 55},
		},
	})
	st := h.e.st
	if st.Health != MaxHealth || st.Fuel != 0 || st.Credits != 0 {
		t.Fatalf("health=%d fuel=%d credits=%d", st.Health, st.Fuel, st.Credits)
	}
	if st.GalaxyID != "home" {
		t.Fatalf("unknown galaxy should fall back to the default, got %q", st.GalaxyID)
	}
	if len(st.Inventory) != 1 || st.Inventory[0].Quantity != 5 || st.Inventory[0].ItemID != 1 {
		t.Fatalf("inventory = %+v", st.Inventory)
	}

	// Absent fields leave state alone and the galaxy is not re-rolled.
	h.listing("alpha", "Widget").Stock = 3
	if err := h.e.InitializeGameState(Snapshot{Credits: ptr(42)}); err != nil {
		t.Fatal(err)
	}
	if h.e.st.Credits != 42 || h.e.st.Health != MaxHealth || h.listing("alpha", "Widget").Stock != 3 {
		t.Fatalf("partial snapshot clobbered state")
	}

	snap := h.e.ExportSnapshot()
	if *snap.Credits != 42 || *snap.GalaxyName != "Home" || len(snap.Inventory) != 1 {
		t.Fatalf("export = %+v", snap)
	}
}

func TestTriggerEventShocksAffectedListings(t *testing.T) {
	h := newHarness(t, Snapshot{})
	if !h.e.TriggerEvent("boom") {
		t.Fatalf("event not found")
	}
	if got := h.listing("alpha", "Widget").Price; got != 100 {
		t.Fatalf("widget price = %d, want 100", got)
	}
	if got := h.listing("alpha", "Gadget").Price; got != 20 {
		t.Fatalf("unaffected gadget moved to %d", got)
	}

	h.advance(31 * time.Second)
	if h.e.st.Event != nil {
		t.Fatalf("event should have ended")
	}
	if h.rec.saw("Boom has ended") != 1 {
		t.Fatalf("notes = %v", h.rec.notes)
	}
}

func TestSelectEventRespectsCycleGap(t *testing.T) {
	events := []catalog.Event{
		{ID: "a", Rarity: 1, MinCycleGap: 60},
		{ID: "b", Rarity: 0},
	}
	now := time.Unix(10_000, 0)
	src := entropy.NewSeeded(3)

	if ev := SelectEvent(events, map[string]time.Time{"a": now.Add(-30 * time.Second)}, now, src); ev != nil {
		t.Fatalf("event inside its cycle gap selected: %v", ev.ID)
	}
	if ev := SelectEvent(events, map[string]time.Time{"a": now.Add(-time.Minute)}, now, src); ev == nil || ev.ID != "a" {
		t.Fatalf("expected a, got %v", ev)
	}
	if ev := SelectEvent(events[1:], nil, now, src); ev != nil {
		t.Fatalf("zero-rarity event selected")
	}
}

func TestQuantumAutomationTradesThroughPipeline(t *testing.T) {
	h := newHarness(t, Snapshot{QuantumProcessors: ptr(1)})
	h.e.HandleBuyClick(ByName("Widget"))
	h.listing("alpha", "Widget").Price = 60
	h.listing("alpha", "Gadget").Price = 10
	if !h.e.SetQuantumPower(true) {
		t.Fatalf("quantum power refused: %v", h.rec.notes)
	}

	h.advance(10 * time.Second)
	var sold, bought bool
	for _, tr := range h.e.st.TradeHistory {
		if tr.Auto && tr.Type == "sell" && tr.Name == "Widget" && tr.Profit == 10 {
			sold = true
		}
		if tr.Auto && tr.Type == "buy" && tr.Name == "Gadget" {
			bought = true
		}
	}
	if !sold || !bought {
		t.Fatalf("automation trades missing: %+v", h.e.st.TradeHistory)
	}
	if h.e.st.holding("Widget") != 0 {
		t.Fatalf("widget should have been sold")
	}
}

func TestQuantumAutomationRefusalsStayQuiet(t *testing.T) {
	h := newHarness(t, Snapshot{
		QuantumProcessors: ptr(1),
		Inventory:         []InventoryEntry{{Name: QuantumItem, Quantity: 1, Price: 100}},
	})
	h.e.st.PurchaseHistory[QuantumItem] = []int{100}
	h.e.HandlePrevTrader()
	h.advance(3 * time.Second)
	if id, _ := h.e.st.currentTrader(); id != "beta" {
		t.Fatalf("at %q, want beta", id)
	}
	if !h.e.SetQuantumPower(true) {
		t.Fatalf("quantum power refused: %v", h.rec.notes)
	}
	notes, sounds := len(h.rec.notes), len(h.rec.sounds)

	// beta already holds more processors than it will buy.
	h.advance(20 * time.Second)
	if h.e.st.holding(QuantumItem) != 1 {
		t.Fatalf("processor should not have been sold")
	}
	if got := h.rec.notes[notes:]; len(got) != 0 {
		t.Fatalf("automation refusals reached the player: %v", got)
	}
	for _, s := range h.rec.sounds[sounds:] {
		if s == SoundError {
			t.Fatalf("automation refusal played the error sound")
		}
	}
	if h.e.st.RejectionStreak != 0 {
		t.Fatalf("streak = %d", h.e.st.RejectionStreak)
	}
}

func TestStockNeverNegative(t *testing.T) {
	h := newHarness(t, Snapshot{Credits: ptr(10_000)})
	for i := 0; i < 15; i++ {
		h.e.HandleBuyClick(ByName("Widget"))
	}
	if got := h.listing("alpha", "Widget").Stock; got != 0 {
		t.Fatalf("stock = %d", got)
	}
	if got := len(h.e.st.Deliveries); got != 10 {
		t.Fatalf("deliveries = %d, only 10 units existed", got)
	}
}

func TestBuyFuelLimitedByTank(t *testing.T) {
	h := newHarness(t, Snapshot{Fuel: ptr(90)})

	price := h.e.FuelPrice()
	if price < 2 || price > 5 {
		t.Fatalf("fuel price %d outside default range", price)
	}
	if !h.e.BuyFuel(50) {
		t.Fatalf("fuel purchase rejected: %v", h.rec.notes)
	}
	if h.e.st.Fuel != 100 {
		t.Fatalf("fuel = %d, want a full tank", h.e.st.Fuel)
	}
	if want := 500 - 10*price; h.e.st.Credits != want {
		t.Fatalf("credits = %d, want %d", h.e.st.Credits, want)
	}
	if h.e.BuyFuel(1) {
		t.Fatalf("bought fuel into a full tank")
	}
}

func TestDeliveryConservesQuantity(t *testing.T) {
	h := newHarness(t, Snapshot{Credits: ptr(1000)})

	for range 3 {
		if !h.e.HandleBuyClick(ByName("Gadget")) {
			t.Fatalf("buy rejected: %v", h.rec.notes)
		}
	}
	total := func() int {
		n := h.e.st.holding("Gadget")
		for _, d := range h.e.st.Deliveries {
			if d.Name == "Gadget" {
				n += d.Quantity
			}
		}
		return n
	}
	for range 50 {
		if got := total(); got != 3 {
			t.Fatalf("queued + held = %d, want 3", got)
		}
		h.advance(100 * time.Millisecond)
	}
	if h.e.st.holding("Gadget") != 3 || len(h.e.st.PurchaseHistory["Gadget"]) != 3 {
		t.Fatalf("inventory=%+v history=%v", h.e.st.Inventory, h.e.st.PurchaseHistory)
	}
}
