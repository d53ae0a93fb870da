package core

import (
	"math"

	"github.com/zappabad/coinsim/internal/news"
)

// Random event parameters. Cooldowns are in ticks.
const (
	HypeProbability   = 0.015
	HypeMin           = 0.10
	HypeRange         = 0.15
	HypeCooldownBase  = 15
	HypeCooldownSpan  = 10
	CrashProbability  = 0.015
	CrashMin          = 0.20
	CrashRange        = 0.20
	CrashCooldownBase = 17
	CrashCooldownSpan = 10
	// CrashSingleProbability is the chance a crash hits only the first asset.
	CrashSingleProbability = 0.5
)

// resolveEvents runs once per tick before bot trading. Cooldowns decay first;
// hype and crash are then drawn independently and may both fire.
func (c *Core) resolveEvents() {
	es := &c.events
	if es.HypeCooldown > 0 {
		es.HypeCooldown--
	}
	if es.CrashCooldown > 0 {
		es.CrashCooldown--
	}
	for sym, v := range es.DumpCooldown {
		if v > 0 {
			es.DumpCooldown[sym] = v - 1
		}
	}

	if es.HypeCooldown == 0 && c.rng.Float64() < HypeProbability {
		c.hype()
	}
	if es.CrashCooldown == 0 && c.rng.Float64() < CrashProbability {
		c.crash()
	}
}

func (c *Core) hype() {
	cfg := c.registry[pickIndex(c.rng.Float64(), len(c.registry))]
	st := c.assets[cfg.Symbol]

	pct := HypeMin + c.rng.Float64()*HypeRange
	st.Price = math.Min(st.Price*(1+pct), cfg.PriceCeiling())
	c.logf(cfg.Symbol, news.SeverityAlert, "Hype event! %s is trending 🚀 (+%.1f%%)", cfg.Symbol, pct*100)
	c.emit(HypeEvent{Symbol: cfg.Symbol, Percent: pct, Price: st.Price, Time: c.now()})

	c.events.HypeCooldown = HypeCooldownBase + int(math.Floor(c.rng.Float64()*HypeCooldownSpan))
}

func (c *Core) crash() {
	targets := c.registry
	if c.rng.Float64() < CrashSingleProbability {
		targets = c.registry[:1]
	}

	pct := CrashMin + c.rng.Float64()*CrashRange
	for _, cfg := range targets {
		st := c.assets[cfg.Symbol]
		st.Price = math.Max(st.Price*(1-pct), cfg.MinPrice)
		c.logf(cfg.Symbol, news.SeverityAlert, "Market crash! %s price plummets by %.1f%%! 💥", cfg.Symbol, pct*100)
		c.emit(CrashEvent{Symbol: cfg.Symbol, Percent: pct, Price: st.Price, Time: c.now()})
	}

	c.events.CrashCooldown = CrashCooldownBase + int(math.Floor(c.rng.Float64()*CrashCooldownSpan))
}

// pickIndex maps a uniform draw onto [0, n).
func pickIndex(r float64, n int) int {
	i := int(r * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

