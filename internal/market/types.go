package market

import (
	"errors"
	"fmt"
	"math"
)

// Symbol identifies a tradeable asset (e.g. "BTC").
type Symbol string

// AssetConfig holds the immutable parameters of an asset.
type AssetConfig struct {
	Symbol             Symbol  `yaml:"symbol" json:"symbol"`
	Name               string  `yaml:"name" json:"name"`
	InitialPrice       float64 `yaml:"initial_price" json:"initial_price"`
	InitialCirculation float64 `yaml:"initial_circulation" json:"initial_circulation"`
	MaxCirculation     float64 `yaml:"max_circulation" json:"max_circulation"`
	// Volatility is the per-bot-order price drift magnitude (fraction).
	Volatility float64 `yaml:"volatility" json:"volatility"`
	MinPrice   float64 `yaml:"min_price" json:"min_price"`
	MaxPrice   float64 `yaml:"max_price" json:"max_price"`
	// BotOrderScale is the upper bound of a single bot order size.
	BotOrderScale float64 `yaml:"bot_order_scale" json:"bot_order_scale"`
	// Decimals is the number of decimals used when displaying the price.
	Decimals int32 `yaml:"decimals" json:"decimals"`
}

// PriceCeiling is the hard cap events may push the price to.
func (a AssetConfig) PriceCeiling() float64 {
	return 2 * a.MaxPrice
}

// Validate checks the invariants of a single asset.
func (a AssetConfig) Validate() error {
	if a.Symbol == "" {
		return errors.New("asset symbol is required")
	}
	for name, v := range map[string]float64{
		"initial_price":       a.InitialPrice,
		"initial_circulation": a.InitialCirculation,
		"max_circulation":     a.MaxCirculation,
		"volatility":          a.Volatility,
		"min_price":           a.MinPrice,
		"max_price":           a.MaxPrice,
		"bot_order_scale":     a.BotOrderScale,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s: %s must be finite", a.Symbol, name)
		}
	}
	if a.MinPrice <= 0 {
		return fmt.Errorf("%s: min_price must be positive", a.Symbol)
	}
	if !(a.MinPrice < a.InitialPrice && a.InitialPrice < a.MaxPrice) {
		return fmt.Errorf("%s: require min_price < initial_price < max_price", a.Symbol)
	}
	if a.InitialCirculation < 0 || a.InitialCirculation > a.MaxCirculation {
		return fmt.Errorf("%s: require 0 <= initial_circulation <= max_circulation", a.Symbol)
	}
	if a.Volatility <= 0 || a.Volatility >= 1 {
		return fmt.Errorf("%s: volatility must be in (0, 1)", a.Symbol)
	}
	if a.BotOrderScale <= 0 {
		return fmt.Errorf("%s: bot_order_scale must be positive", a.Symbol)
	}
	return nil
}

// Registry is the ordered set of configured assets.
// The order is significant: it fixes the sequence in which assets are simulated.
type Registry []AssetConfig

// DefaultRegistry returns the two stock assets.
func DefaultRegistry() Registry {
	return Registry{
		{
			Symbol:             "BTC",
			Name:               "Bitcoin",
			InitialPrice:       27000,
			InitialCirculation: 1700,
			MaxCirculation:     2100,
			Volatility:         0.019,
			MinPrice:           5000,
			MaxPrice:           72000,
			BotOrderScale:      4,
			Decimals:           2,
		},
		{
			Symbol:             "LTC",
			Name:               "Litecoin",
			InitialPrice:       70,
			InitialCirculation: 6600,
			MaxCirculation:     8400,
			Volatility:         0.025,
			MinPrice:           20,
			MaxPrice:           350,
			BotOrderScale:      80,
			Decimals:           2,
		},
	}
}

// Validate checks every asset and that symbols are unique.
func (r Registry) Validate() error {
	if len(r) == 0 {
		return errors.New("at least one asset is required")
	}
	seen := make(map[Symbol]struct{}, len(r))
	for _, a := range r {
		if err := a.Validate(); err != nil {
			return err
		}
		if _, dup := seen[a.Symbol]; dup {
			return fmt.Errorf("duplicate asset symbol %s", a.Symbol)
		}
		seen[a.Symbol] = struct{}{}
	}
	return nil
}

// Lookup returns the config for sym.
func (r Registry) Lookup(sym Symbol) (AssetConfig, bool) {
	for _, a := range r {
		if a.Symbol == sym {
			return a, true
		}
	}
	return AssetConfig{}, false
}

// Symbols returns the symbols in configured order.
func (r Registry) Symbols() []Symbol {
	out := make([]Symbol, len(r))
	for i, a := range r {
		out[i] = a.Symbol
	}
	return out
}
