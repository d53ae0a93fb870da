package trader

import "github.com/zappabad/coinsim/internal/market"

// Side is the direction of an order.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderIntent is a synthetic bot order against the simulated market.
type OrderIntent struct {
	Symbol market.Symbol
	Side   Side
	Size   float64
}
