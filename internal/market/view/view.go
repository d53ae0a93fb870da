package view

import (
	"sync"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/market/core"
	"github.com/zappabad/coinsim/internal/news"
)

// AssetQuote summarizes one asset for presentation.
type AssetQuote struct {
	Symbol         market.Symbol `json:"symbol"`
	Name           string        `json:"name"`
	Price          float64       `json:"price"`
	Circulation    float64       `json:"circulation"`
	MaxCirculation float64       `json:"max_circulation"`
	MinPrice       float64       `json:"min_price"`
	MaxPrice       float64       `json:"max_price"`
	Decimals       int32         `json:"decimals"`
	Held           float64       `json:"held"`
	Value          float64       `json:"value"`
	Pumped         bool          `json:"pumped"`
}

// GameSnapshot is a point-in-time, read-only picture of a game.
type GameSnapshot struct {
	Cash     float64                               `json:"cash"`
	NetWorth float64                               `json:"net_worth"`
	Quotes   []AssetQuote                          `json:"quotes"` // registry order
	History  map[market.Symbol][]core.HistoryPoint `json:"history"`
	Log      []news.NewsItem                       `json:"log"` // newest first
	Epoch    uint64                                `json:"epoch"`
	Tick     uint64                                `json:"tick"`
}

// Quote returns the quote for sym.
func (s GameSnapshot) Quote(sym market.Symbol) (AssetQuote, bool) {
	for _, q := range s.Quotes {
		if q.Symbol == sym {
			return q, true
		}
	}
	return AssetQuote{}, false
}

// GameView holds the latest published game state.
// It is thread-safe; snapshots are replaced wholesale and never mutated.
type GameView struct {
	registry market.Registry

	mu    sync.RWMutex
	state core.State
	snap  GameSnapshot
}

// NewGameView creates an empty GameView for reg.
func NewGameView(reg market.Registry) *GameView {
	return &GameView{registry: reg}
}

// Update replaces the view with st. st must not be modified afterwards.
func (v *GameView) Update(st core.State) {
	snap := GameSnapshot{
		Cash:    st.Cash,
		Quotes:  make([]AssetQuote, 0, len(v.registry)),
		History: st.History,
		Log:     st.Log,
		Epoch:   st.Epoch,
		Tick:    st.Tick,
	}
	worth := st.Cash
	for _, a := range v.registry {
		as := st.Assets[a.Symbol]
		held := st.Portfolio[a.Symbol]
		q := AssetQuote{
			Symbol:         a.Symbol,
			Name:           a.Name,
			Price:          as.Price,
			Circulation:    as.Circulation,
			MaxCirculation: a.MaxCirculation,
			MinPrice:       a.MinPrice,
			MaxPrice:       a.MaxPrice,
			Decimals:       a.Decimals,
			Held:           held,
			Value:          held * as.Price,
			Pumped:         st.Events.PumpFlag[a.Symbol],
		}
		worth += q.Value
		snap.Quotes = append(snap.Quotes, q)
	}
	snap.NetWorth = worth

	v.mu.Lock()
	v.state = st
	v.snap = snap
	v.mu.Unlock()
}

// Snapshot returns the latest snapshot. Callers must treat it as read-only.
func (v *GameView) Snapshot() GameSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snap
}

// State returns the latest raw state. Callers must treat it as read-only.
func (v *GameView) State() core.State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// History returns the last n points of sym, oldest first.
func (v *GameView) History(sym market.Symbol, n int) []core.HistoryPoint {
	v.mu.RLock()
	defer v.mu.RUnlock()

	points := v.snap.History[sym]
	if n > 0 && n < len(points) {
		points = points[len(points)-n:]
	}
	out := make([]core.HistoryPoint, len(points))
	copy(out, points)
	return out
}

// Log returns up to n log items, newest first.
func (v *GameView) Log(n int) []news.NewsItem {
	v.mu.RLock()
	defer v.mu.RUnlock()

	items := v.snap.Log
	if n > 0 && n < len(items) {
		items = items[:n]
	}
	out := make([]news.NewsItem, len(items))
	copy(out, items)
	return out
}
