package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/star-market/internal/catalog"
	"github.com/talgya/star-market/internal/effects"
	"github.com/talgya/star-market/internal/market"
)

type refKind int

const (
	refIndex refKind = iota
	refName
	refItemID
)

// ListingRef addresses a listing of the current trader.
type ListingRef struct {
	kind   refKind
	index  int
	name   string
	itemID int
}

// ByIndex addresses the listing at slot i.
func ByIndex(i int) ListingRef { return ListingRef{kind: refIndex, index: i} }

// ByName addresses a listing by item name.
func ByName(name string) ListingRef { return ListingRef{kind: refName, name: name} }

// ByItemID addresses a listing by catalog item id.
func ByItemID(id int) ListingRef { return ListingRef{kind: refItemID, itemID: id} }

// ByListing addresses the same item as l.
func ByListing(l market.Listing) ListingRef { return ByItemID(l.ItemID) }

func (r ListingRef) resolve(listings []market.Listing) int {
	switch r.kind {
	case refName:
		return market.Find(listings, r.name)
	case refItemID:
		return market.FindByID(listings, r.itemID)
	default:
		if r.index < 0 || r.index >= len(listings) {
			return -1
		}
		return r.index
	}
}

// HandleBuyClick buys one unit from the current trader. The unit arrives
// through the delivery queue.
func (e *Engine) HandleBuyClick(ref ListingRef) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buyOne(ref, e.clock(), false)
}

// HandleSellClick sells one unit to the current trader.
func (e *Engine) HandleSellClick(ref ListingRef) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sellOne(ref, e.clock(), false)
}

// HandleBuyAll buys the entire remaining stock of the current trader, or
// nothing if the player cannot afford all of it.
func (e *Engine) HandleBuyAll() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buyAll(e.clock())
}

// HandleSellAll sells every owned unit of one item to the current trader.
func (e *Engine) HandleSellAll(ref ListingRef) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sellAll(ref, e.clock(), false)
}

// canBuyInTransit reports whether a receiver tool permits remote purchases.
func (e *Engine) canBuyInTransit(now time.Time) bool {
	return !e.st.inTransit() || e.st.Status.Active(effects.ToolReceiver, now)
}

func (e *Engine) buyOne(ref ListingRef, now time.Time, auto bool) bool {
	traderID, ok := e.st.currentTrader()
	if !ok {
		return false
	}
	if !e.canBuyInTransit(now) {
		return e.reject("You can't trade while traveling without a receiver.")
	}
	listings := e.st.Listings[traderID]
	idx := ref.resolve(listings)
	if idx < 0 {
		return e.reject("That item isn't sold here.")
	}
	l := &listings[idx]
	if l.Stock <= 0 {
		return e.reject("%s is out of stock.", l.Name)
	}
	item, ok := e.cat.Item(l.ItemID)
	if !ok {
		return e.reject("%s can't be shipped.", l.Name)
	}
	price := e.displayPrice(*l)
	if e.st.Credits < price {
		return e.rejectBroke(price)
	}

	e.st.Credits -= price
	l.Stock--
	e.st.RejectionStreak = 0
	e.st.pushCosts(l.Name, price, 1)
	e.enqueueDelivery(item, 1, price)
	e.record(TradeRecord{
		Time: now, Type: "buy", Name: l.Name, Quantity: 1,
		Price: price, Profit: -price, Trader: traderID, Auto: auto,
	})
	e.confirm(auto, SoundBuy, "Bought %s for %s credits.", l.Name, credits(price))
	return true
}

func (e *Engine) buyAll(now time.Time) bool {
	traderID, ok := e.st.currentTrader()
	if !ok {
		return false
	}
	if !e.canBuyInTransit(now) {
		return e.reject("You can't trade while traveling without a receiver.")
	}
	listings := e.st.Listings[traderID]

	total, units := 0, 0
	for _, l := range listings {
		if l.Stock <= 0 {
			continue
		}
		if _, ok := e.cat.Item(l.ItemID); !ok {
			continue
		}
		total += e.displayPrice(l) * l.Stock
		units += l.Stock
	}
	if units == 0 {
		return e.reject("This trader has nothing left to sell.")
	}
	if e.st.Credits < total {
		return e.rejectBroke(total)
	}

	e.st.Credits -= total
	e.st.RejectionStreak = 0
	for i := range listings {
		l := &listings[i]
		item, ok := e.cat.Item(l.ItemID)
		if l.Stock <= 0 || !ok {
			continue
		}
		qty, price := l.Stock, e.displayPrice(*l)
		l.Stock = 0
		e.st.pushCosts(l.Name, price, qty)
		e.enqueueDelivery(item, qty, price)
		e.record(TradeRecord{
			Time: now, Type: "buy", Name: l.Name, Quantity: qty,
			Price: price, Profit: -price * qty, Trader: traderID,
		})
	}
	e.confirm(false, SoundBuy, "Bought %d items for %s credits.", units, credits(total))
	return true
}

// sellGate runs the checks shared by single and bulk sells and returns the
// listing, its item and the owned quantity.
func (e *Engine) sellGate(ref ListingRef, now time.Time) (*market.Listing, *catalog.Item, int, bool) {
	traderID, ok := e.st.currentTrader()
	if !ok {
		return nil, nil, 0, false
	}
	listings := e.st.Listings[traderID]
	idx := ref.resolve(listings)
	if idx < 0 {
		return nil, nil, 0, e.reject("This trader doesn't deal in that.")
	}
	l := &listings[idx]
	held := e.st.holding(l.Name)
	if held <= 0 {
		return nil, nil, 0, e.reject("You don't have any %s.", l.Name)
	}
	item, ok := e.cat.Item(l.ItemID)
	if !ok {
		return nil, nil, 0, e.reject("Nobody will buy %s.", l.Name)
	}
	if e.st.inTransit() && !(item.TravelSell && e.st.Status.Active(effects.ToolReverter, now)) {
		return nil, nil, 0, e.reject("You can't sell %s while traveling.", l.Name)
	}
	if l.Name == QuantumItem && l.Stock >= e.cfg.QuantumTraderCap {
		return nil, nil, 0, e.reject("This trader already holds too many processors.")
	}
	return l, item, held, true
}

func (e *Engine) sellOne(ref ListingRef, now time.Time, auto bool) bool {
	l, item, _, ok := e.sellGate(ref, now)
	if !ok {
		return false
	}
	traderID, _ := e.st.currentTrader()
	price := e.displayPrice(*l)

	e.st.Credits += price
	e.st.removeInventory(l.Name, 1)
	market.Restock(l, 1, market.RestockCap(item))
	basis := price
	if popped := e.st.popCosts(l.Name, 1); len(popped) == 1 {
		basis = popped[0]
	}
	e.record(TradeRecord{
		Time: now, Type: "sell", Name: l.Name, Quantity: 1,
		Price: price, Profit: price - basis, Trader: traderID, Auto: auto,
	})
	e.confirm(auto, SoundSell, "Sold %s for %s credits.", l.Name, credits(price))
	return true
}

func (e *Engine) sellAll(ref ListingRef, now time.Time, auto bool) bool {
	l, item, qty, ok := e.sellGate(ref, now)
	if !ok {
		return false
	}
	traderID, _ := e.st.currentTrader()
	price := e.displayPrice(*l)

	e.st.Credits += price * qty
	e.st.removeInventory(l.Name, qty)
	market.Restock(l, qty, market.RestockCap(item))
	// Units with no recorded cost are booked at the sale price, as in sellOne.
	profit := 0
	for _, c := range e.st.popCosts(l.Name, qty) {
		profit += price - c
	}
	e.record(TradeRecord{
		Time: now, Type: "sell", Name: l.Name, Quantity: qty,
		Price: price, Profit: profit, Trader: traderID, Auto: auto,
	})
	e.confirm(auto, SoundSell, "Sold %d %s for %s credits.", qty, l.Name, credits(price*qty))
	return true
}

// confirm announces a committed trade. Automated trades stay quiet.
func (e *Engine) confirm(auto bool, sound, format string, args ...any) {
	if auto {
		e.say("Quantum: "+fmt.Sprintf(format, args...), CategoryQuantum)
		return
	}
	e.say(fmt.Sprintf(format, args...), CategorySuccess)
	e.sounds.Play(sound)
}

// enqueueDelivery schedules qty units to arrive after the item's delivery
// time, shortened by courier drones.
func (e *Engine) enqueueDelivery(item *catalog.Item, qty, price int) {
	total := time.Duration(item.DeliveryTime * float64(time.Second) / float64(1+e.st.CourierDrones))
	e.st.Deliveries = append(e.st.Deliveries, Delivery{
		ID:        uuid.NewString(),
		Name:      item.Name,
		ItemID:    item.ID,
		Quantity:  qty,
		Price:     price,
		TimeLeft:  total,
		TotalTime: total,
	})
}

// tickDeliveries counts down the queue and moves arrivals into inventory.
func (e *Engine) tickDeliveries(_ time.Time, elapsed time.Duration) {
	if len(e.st.Deliveries) == 0 {
		return
	}
	pending := e.st.Deliveries[:0]
	for _, d := range e.st.Deliveries {
		d.TimeLeft -= elapsed
		if d.TimeLeft > 0 {
			pending = append(pending, d)
			continue
		}
		e.st.addInventory(d.ItemID, d.Name, d.Quantity, d.Price)
		if d.Quantity == 1 {
			e.say(fmt.Sprintf("%s delivered.", d.Name), CategoryInfo)
		} else {
			e.say(fmt.Sprintf("%d %s delivered.", d.Quantity, d.Name), CategoryInfo)
		}
		e.sounds.Play(SoundDelivery)
	}
	e.st.Deliveries = pending
}
