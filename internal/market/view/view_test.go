package view

import (
	"testing"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/market/core"
	"github.com/zappabad/coinsim/internal/news"
)

func testState() core.State {
	return core.State{
		Cash:      1000,
		Portfolio: map[market.Symbol]float64{"BTC": 0.5, "LTC": 10},
		Assets: map[market.Symbol]core.AssetState{
			"BTC": {Price: 30000, Circulation: 1500},
			"LTC": {Price: 80, Circulation: 6000},
		},
		History: map[market.Symbol][]core.HistoryPoint{
			"BTC": {{Time: 1, Price: 29000}, {Time: 2, Price: 29500}, {Time: 3, Price: 30000}},
		},
		Log: []news.NewsItem{{ID: 3}, {ID: 2}, {ID: 1}},
		Events: core.EventState{
			PumpFlag: map[market.Symbol]bool{"LTC": true},
		},
		Tick: 7,
	}
}

func TestGameViewQuotes(t *testing.T) {
	v := NewGameView(market.DefaultRegistry())
	v.Update(testState())

	snap := v.Snapshot()
	if len(snap.Quotes) != 2 || snap.Quotes[0].Symbol != "BTC" || snap.Quotes[1].Symbol != "LTC" {
		t.Fatalf("expected quotes in registry order, got %+v", snap.Quotes)
	}

	btc, ok := snap.Quote("BTC")
	if !ok || btc.Value != 15000 || btc.MaxCirculation != 2100 {
		t.Fatalf("unexpected BTC quote %+v", btc)
	}
	ltc, _ := snap.Quote("LTC")
	if !ltc.Pumped {
		t.Error("expected LTC to be flagged as pumped")
	}
	if snap.NetWorth != 1000+15000+800 {
		t.Errorf("expected net worth 16800, got %v", snap.NetWorth)
	}
	if snap.Tick != 7 {
		t.Errorf("expected tick 7, got %d", snap.Tick)
	}
}

func TestGameViewHistoryAndLogTrim(t *testing.T) {
	v := NewGameView(market.DefaultRegistry())
	v.Update(testState())

	h := v.History("BTC", 2)
	if len(h) != 2 || h[0].Time != 2 || h[1].Time != 3 {
		t.Fatalf("expected last two points oldest first, got %+v", h)
	}
	if len(v.History("BTC", 0)) != 3 {
		t.Error("n <= 0 must return the full series")
	}
	if v.History("LTC", 5) == nil || len(v.History("LTC", 5)) != 0 {
		t.Error("expected empty series for LTC")
	}

	logs := v.Log(2)
	if len(logs) != 2 || logs[0].ID != 3 {
		t.Fatalf("expected newest two log items, got %+v", logs)
	}
}
