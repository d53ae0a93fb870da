package core

import (
	"time"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/news"
	"github.com/zappabad/coinsim/internal/trader"
	"github.com/zappabad/coinsim/internal/trader/strategy"
)

// Rand is a uniform source in [0, 1).
type Rand = strategy.Rand

// Clock supplies timestamps for history points and log lines.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Scheduler runs fn once after delay and returns an id naming the task. fn must
// be invoked on the goroutine that owns the Core; the events it returns belong
// to the caller.
type Scheduler interface {
	AfterFunc(delay time.Duration, fn func() []Event) string
}

// AssetState is the mutable market state of one asset.
type AssetState struct {
	Price       float64 `json:"price"`
	Circulation float64 `json:"circulation"`
}

// HistoryPoint is one charted price sample.
type HistoryPoint struct {
	Time  int64   `json:"time"` // unix nanos
	Price float64 `json:"price"`
}

// EventState is the bookkeeping of the random event model.
type EventState struct {
	HypeCooldown  int                    `json:"hype_cooldown"`
	CrashCooldown int                    `json:"crash_cooldown"`
	PumpFlag      map[market.Symbol]bool `json:"pump_flag"`
	// DumpCooldown is decremented every tick but does not gate dumps.
	DumpCooldown map[market.Symbol]int `json:"dump_cooldown"`
}

func newEventState(reg market.Registry) EventState {
	es := EventState{
		PumpFlag:     make(map[market.Symbol]bool, len(reg)),
		DumpCooldown: make(map[market.Symbol]int, len(reg)),
	}
	for _, a := range reg {
		es.PumpFlag[a.Symbol] = false
		es.DumpCooldown[a.Symbol] = 0
	}
	return es
}

func (es EventState) clone() EventState {
	out := EventState{
		HypeCooldown:  es.HypeCooldown,
		CrashCooldown: es.CrashCooldown,
		PumpFlag:      make(map[market.Symbol]bool, len(es.PumpFlag)),
		DumpCooldown:  make(map[market.Symbol]int, len(es.DumpCooldown)),
	}
	for k, v := range es.PumpFlag {
		out.PumpFlag[k] = v
	}
	for k, v := range es.DumpCooldown {
		out.DumpCooldown[k] = v
	}
	return out
}

// State is the full persisted snapshot of a game.
type State struct {
	Cash      float64                          `json:"usd"`
	Portfolio map[market.Symbol]float64        `json:"portfolio"`
	Assets    map[market.Symbol]AssetState     `json:"coins"`
	History   map[market.Symbol][]HistoryPoint `json:"history"`
	Log       []news.NewsItem                  `json:"log"` // newest first
	Events    EventState                       `json:"events"`
	Epoch     uint64                           `json:"epoch"`
	Tick      uint64                           `json:"tick"`
}

// TradeReport describes a settled player trade.
type TradeReport struct {
	Symbol    market.Symbol `json:"symbol"`
	Side      trader.Side   `json:"side"`
	Requested float64       `json:"requested"`
	Filled    float64       `json:"filled"`
	Price     float64       `json:"price"`
	Value     float64       `json:"value"`
	// Partial is set when a buy was clamped to the remaining circulation.
	Partial bool `json:"partial"`
	// Retired is the part of a sell that did not fit under max circulation.
	Retired float64 `json:"retired,omitempty"`
}
