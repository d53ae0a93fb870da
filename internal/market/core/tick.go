package core

import (
	"math"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/trader"
)

// Tick runs one simulation step: random events, then bot order flow for each
// asset in registry order, then the price clamp and a history point per asset.
func (c *Core) Tick() []Event {
	c.tick++
	c.resolveEvents()

	now := c.now()
	prices := make(map[market.Symbol]float64, len(c.registry))
	circs := make(map[market.Symbol]float64, len(c.registry))
	for _, cfg := range c.registry {
		st := c.assets[cfg.Symbol]
		price, circ := st.Price, st.Circulation

		for _, in := range c.bots.Orders(c.rng, cfg) {
			switch in.Side {
			case trader.SideBuy:
				if circ > in.Size {
					circ -= in.Size
					price *= 1 + cfg.Volatility*c.rng.Float64()
				}
			case trader.SideSell:
				if circ+in.Size <= cfg.MaxCirculation {
					circ += in.Size
					price *= 1 - cfg.Volatility*c.rng.Float64()
				}
			}
		}

		// bots never push past the normal band
		price = math.Min(math.Max(price, cfg.MinPrice), cfg.MaxPrice)
		st.Price = price
		st.Circulation = circ
		c.history[cfg.Symbol].Append(HistoryPoint{Time: now, Price: price})

		prices[cfg.Symbol] = price
		circs[cfg.Symbol] = circ
	}

	c.emit(TickEvent{Tick: c.tick, Prices: prices, Circulations: circs, Time: now})
	return c.flush()
}
