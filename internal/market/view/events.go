package view

import (
	"github.com/zappabad/coinsim/internal/market/core"
)

// MarketEvent wraps a core event with its publication sequence number.
type MarketEvent struct {
	Seq   uint64
	Event core.Event
}

// Kind returns the stable name of the wrapped event.
func (e MarketEvent) Kind() string {
	return core.EventKind(e.Event)
}
