package strategy

import (
	"math"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/trader"
)

const (
	// DefaultBotCount is the number of bot orders per asset per tick.
	DefaultBotCount = 6
	// DefaultBuyProbability is the chance a bot order buys.
	DefaultBuyProbability = 0.53
	// MinOrderSize is the smallest bot order.
	MinOrderSize = 0.1
)

// RandomFlow is a memoryless crowd of bots: each order picks a side with a
// slight buy bias and a size uniform in [0, BotOrderScale), floored at MinOrderSize.
type RandomFlow struct {
	BotCount       int
	BuyProbability float64
}

// NewRandomFlow creates a RandomFlow with the default crowd parameters.
func NewRandomFlow() *RandomFlow {
	return &RandomFlow{
		BotCount:       DefaultBotCount,
		BuyProbability: DefaultBuyProbability,
	}
}

// Orders implements Strategy. Each intent consumes two draws: side, then size.
func (s *RandomFlow) Orders(rng Rand, asset market.AssetConfig) []trader.OrderIntent {
	intents := make([]trader.OrderIntent, 0, s.BotCount)
	for i := 0; i < s.BotCount; i++ {
		side := trader.SideSell
		if rng.Float64() > 1-s.BuyProbability {
			side = trader.SideBuy
		}
		size := math.Max(MinOrderSize, rng.Float64()*asset.BotOrderScale)

		intents = append(intents, trader.OrderIntent{
			Symbol: asset.Symbol,
			Side:   side,
			Size:   size,
		})
	}
	return intents
}
