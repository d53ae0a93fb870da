package core

import (
	"time"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/news"
)

type Event interface {
	isEvent()
}

// TradeEvent is emitted for every settled player trade.
type TradeEvent struct {
	Report TradeReport `json:"report"`
	Time   int64       `json:"time"`
}

func (TradeEvent) isEvent() {}

// LogEvent carries every line appended to the game log.
type LogEvent struct {
	Item news.NewsItem `json:"item"`
}

func (LogEvent) isEvent() {}

// DepletionEvent is emitted when a buy empties circulation.
type DepletionEvent struct {
	Symbol      market.Symbol `json:"symbol"`
	SpikeFactor float64       `json:"spike_factor"`
	Price       float64       `json:"price"` // after the spike
	RemintDelay time.Duration `json:"remint_delay"`
	RemintTask  string        `json:"remint_task"`
	Time        int64         `json:"time"`
}

func (DepletionEvent) isEvent() {}

// RemintEvent is emitted when a deferred re-mint fires. Task matches the
// RemintTask of the depletion that scheduled it.
type RemintEvent struct {
	Task        string        `json:"task"`
	Symbol      market.Symbol `json:"symbol"`
	Minted      float64       `json:"minted"`
	Circulation float64       `json:"circulation"`
	Time        int64         `json:"time"`
}

func (RemintEvent) isEvent() {}

// DumpEvent is emitted when a re-mint crashes a pumped price.
type DumpEvent struct {
	Task    string        `json:"task"`
	Symbol  market.Symbol `json:"symbol"`
	Percent float64       `json:"percent"`
	Price   float64       `json:"price"`
	Time    int64         `json:"time"`
}

func (DumpEvent) isEvent() {}

// HypeEvent is emitted when a hype rally fires.
type HypeEvent struct {
	Symbol  market.Symbol `json:"symbol"`
	Percent float64       `json:"percent"`
	Price   float64       `json:"price"`
	Time    int64         `json:"time"`
}

func (HypeEvent) isEvent() {}

// CrashEvent is emitted once per crashed asset.
type CrashEvent struct {
	Symbol  market.Symbol `json:"symbol"`
	Percent float64       `json:"percent"`
	Price   float64       `json:"price"`
	Time    int64         `json:"time"`
}

func (CrashEvent) isEvent() {}

// TickEvent closes every bot tick.
type TickEvent struct {
	Tick         uint64                    `json:"tick"`
	Prices       map[market.Symbol]float64 `json:"prices"`
	Circulations map[market.Symbol]float64 `json:"circulations"`
	Time         int64                     `json:"time"`
}

func (TickEvent) isEvent() {}

// ResetEvent is emitted when the game is reinitialized.
type ResetEvent struct {
	Epoch uint64 `json:"epoch"`
	Time  int64  `json:"time"`
}

func (ResetEvent) isEvent() {}

// CashCreditedEvent is emitted for administrative cash grants.
type CashCreditedEvent struct {
	Amount float64 `json:"amount"`
	Cash   float64 `json:"cash"`
	Time   int64   `json:"time"`
}

func (CashCreditedEvent) isEvent() {}

// EventKind returns a stable lowercase name for ev.
func EventKind(ev Event) string {
	switch ev.(type) {
	case TradeEvent:
		return "trade"
	case LogEvent:
		return "log"
	case DepletionEvent:
		return "depletion"
	case RemintEvent:
		return "remint"
	case DumpEvent:
		return "dump"
	case HypeEvent:
		return "hype"
	case CrashEvent:
		return "crash"
	case TickEvent:
		return "tick"
	case ResetEvent:
		return "reset"
	case CashCreditedEvent:
		return "cash_credited"
	default:
		return "unknown"
	}
}
