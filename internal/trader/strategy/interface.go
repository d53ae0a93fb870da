package strategy

import (
	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/trader"
)

// Rand is a uniform source in [0, 1).
type Rand interface {
	Float64() float64
}

// Strategy produces the aggregate bot order flow for one asset per tick.
type Strategy interface {
	// Orders is called once per asset per tick. Intents are applied in order;
	// infeasible ones are skipped by the caller.
	Orders(rng Rand, asset market.AssetConfig) []trader.OrderIntent
}
