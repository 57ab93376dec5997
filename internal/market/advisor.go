package market

import "sort"

// Recommendation is a derived trading hint for one item across a galaxy.
type Recommendation struct {
	Item      string  `json:"item"`
	Action    string  `json:"action"` // "buy", "sell" or "hold"
	BuyFrom   string  `json:"buy_from,omitempty"`
	BuyPrice  int     `json:"buy_price,omitempty"`
	SellTo    string  `json:"sell_to,omitempty"`
	SellPrice int     `json:"sell_price,omitempty"`
	Margin    int     `json:"margin"` // Per unit, SellPrice - BuyPrice or SellPrice - CostBasis
	Held      int     `json:"held,omitempty"`
	CostBasis float64 `json:"cost_basis,omitempty"` // Average of remaining FIFO purchase prices
}

// Recommend compares every listing in the galaxy. traders gives the
// iteration order so ties resolve deterministically. holdings maps item
// name to owned quantity and costs to the FIFO purchase prices still held.
func Recommend(traders []string, listings map[string][]Listing, holdings map[string]int, costs map[string][]int) []Recommendation {
	type venue struct {
		trader string
		price  int
	}
	cheapest := make(map[string]venue)
	richest := make(map[string]venue)
	var names []string

	for _, tid := range traders {
		for _, l := range listings[tid] {
			if _, seen := richest[l.Name]; !seen {
				names = append(names, l.Name)
				richest[l.Name] = venue{tid, l.Price}
			} else if l.Price > richest[l.Name].price {
				richest[l.Name] = venue{tid, l.Price}
			}
			if l.Stock <= 0 {
				continue
			}
			if c, ok := cheapest[l.Name]; !ok || l.Price < c.price {
				cheapest[l.Name] = venue{tid, l.Price}
			}
		}
	}

	out := make([]Recommendation, 0, len(names))
	for _, name := range names {
		sell := richest[name]
		rec := Recommendation{Item: name, Action: "hold", SellTo: sell.trader, SellPrice: sell.price}
		if buy, ok := cheapest[name]; ok {
			rec.BuyFrom = buy.trader
			rec.BuyPrice = buy.price
			rec.Margin = sell.price - buy.price
		}
		if held := holdings[name]; held > 0 {
			rec.Held = held
			basis := averageCost(costs[name])
			if basis == 0 {
				basis = float64(sell.price)
			}
			rec.CostBasis = basis
			if float64(sell.price) > basis {
				rec.Action = "sell"
				rec.Margin = sell.price - int(basis+0.5)
			}
		}
		if rec.Action == "hold" && rec.BuyFrom != "" && rec.Margin > 0 {
			rec.Action = "buy"
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Margin != out[j].Margin {
			return out[i].Margin > out[j].Margin
		}
		return out[i].Item < out[j].Item
	})
	return out
}

func averageCost(prices []int) float64 {
	if len(prices) == 0 {
		return 0
	}
	sum := 0
	for _, p := range prices {
		sum += p
	}
	return float64(sum) / float64(len(prices))
}
