package core

import (
	"math"
	"time"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/news"
	"github.com/zappabad/coinsim/internal/trader"
)

// Depletion and re-mint parameters.
const (
	SpikeMin        = 1.05
	SpikeRange      = 0.08
	RemintBaseDelay = 4000 * time.Millisecond
	RemintJitter    = 5000 * time.Millisecond
	MintFraction    = 0.01
	DumpMin         = 0.30
	DumpRange       = 0.20
)

// Buy settles a player purchase of amount units of sym at the current price.
// A request above the available circulation is filled partially.
func (c *Core) Buy(sym market.Symbol, amount float64) (TradeReport, []Event, error) {
	cfg, st, err := c.lookup(sym)
	if err != nil {
		c.logf(sym, news.SeverityWarning, "Unknown asset %s.", sym)
		return TradeReport{}, c.flush(), err
	}
	if !validAmount(amount) {
		c.logf(sym, news.SeverityWarning, "Invalid amount to buy: %v", amount)
		return TradeReport{}, c.flush(), ErrInvalidAmount
	}

	qty := amount
	partial := false
	if qty > st.Circulation {
		qty = st.Circulation
		partial = true
		c.logf(sym, news.SeverityInfo, "Requested more than circulation; buying remaining %s %s.",
			market.FormatAmount(qty, 6), sym)
	}
	if qty <= 0 {
		c.logf(sym, news.SeverityWarning, "No %s left to buy.", sym)
		return TradeReport{}, c.flush(), ErrNoSupply
	}
	cost := qty * st.Price
	if cost > c.cash {
		c.logf(sym, news.SeverityWarning, "Insufficient USD to buy %s %s.", market.FormatAmount(qty, 6), sym)
		return TradeReport{}, c.flush(), ErrInsufficientFunds
	}

	c.cash -= cost
	c.holdings[sym] += qty
	st.Circulation -= qty

	report := TradeReport{
		Symbol:    sym,
		Side:      trader.SideBuy,
		Requested: amount,
		Filled:    qty,
		Price:     st.Price,
		Value:     cost,
		Partial:   partial,
	}
	c.logf(sym, news.SeverityInfo, "You bought %s %s for $%s.",
		market.FormatAmount(qty, 6), sym, market.FormatAmount(cost, 2))
	c.emit(TradeEvent{Report: report, Time: c.now()})

	c.checkCirculation(cfg, st)
	return report, c.flush(), nil
}

// Sell settles a player sale of amount units of sym at the current price.
// Sold units return to circulation up to the asset maximum; the excess is
// retired and reported.
func (c *Core) Sell(sym market.Symbol, amount float64) (TradeReport, []Event, error) {
	cfg, st, err := c.lookup(sym)
	if err != nil {
		c.logf(sym, news.SeverityWarning, "Unknown asset %s.", sym)
		return TradeReport{}, c.flush(), err
	}
	if !validAmount(amount) {
		c.logf(sym, news.SeverityWarning, "Invalid amount to sell: %v", amount)
		return TradeReport{}, c.flush(), ErrInvalidAmount
	}
	if amount > c.holdings[sym] {
		c.logf(sym, news.SeverityWarning, "You do not own enough %s to sell.", sym)
		return TradeReport{}, c.flush(), ErrInsufficientHoldings
	}

	proceeds := amount * st.Price
	c.cash += proceeds
	c.holdings[sym] -= amount
	st.Circulation += amount

	var retired float64
	if st.Circulation > cfg.MaxCirculation {
		retired = st.Circulation - cfg.MaxCirculation
		st.Circulation = cfg.MaxCirculation
	}

	report := TradeReport{
		Symbol:    sym,
		Side:      trader.SideSell,
		Requested: amount,
		Filled:    amount,
		Price:     st.Price,
		Value:     proceeds,
		Retired:   retired,
	}
	c.logf(sym, news.SeverityInfo, "You sold %s %s for $%s.",
		market.FormatAmount(amount, 6), sym, market.FormatAmount(proceeds, 2))
	c.emit(TradeEvent{Report: report, Time: c.now()})
	return report, c.flush(), nil
}

// checkCirculation runs after every successful buy. An emptied asset gets an
// immediate price spike, is flagged as pumped and has a re-mint scheduled.
func (c *Core) checkCirculation(cfg market.AssetConfig, st *AssetState) {
	if st.Circulation > 0 {
		return
	}
	st.Circulation = 0
	c.logf(cfg.Symbol, news.SeverityAlert,
		"!! All %s have been bought out! Bots will drive prices up sharply until new coins are mined.", cfg.Symbol)

	factor := SpikeMin + c.rng.Float64()*SpikeRange
	st.Price = math.Min(st.Price*factor, cfg.PriceCeiling())
	c.events.PumpFlag[cfg.Symbol] = true

	delay, task := c.scheduleRemint(cfg.Symbol)
	c.emit(DepletionEvent{
		Symbol:      cfg.Symbol,
		SpikeFactor: factor,
		Price:       st.Price,
		RemintDelay: delay,
		RemintTask:  task,
		Time:        c.now(),
	})
}

// scheduleRemint arms a one-shot re-mint for sym bound to the current epoch
// and returns its delay and task id.
func (c *Core) scheduleRemint(sym market.Symbol) (time.Duration, string) {
	delay := RemintBaseDelay + time.Duration(c.rng.Float64()*float64(RemintJitter))
	epoch := c.epoch
	var task string
	task = c.sched.AfterFunc(delay, func() []Event {
		c.remint(sym, epoch, task)
		return c.flush()
	})
	return delay, task
}

// remint releases new supply for sym and, if the asset is still flagged as
// pumped, crashes its price. Callbacks from an older epoch do nothing.
func (c *Core) remint(sym market.Symbol, epoch uint64, task string) {
	if epoch != c.epoch {
		return
	}
	cfg, st, err := c.lookup(sym)
	if err != nil {
		return
	}

	minted := math.Floor(cfg.MaxCirculation * MintFraction * c.rng.Float64())
	st.Circulation = math.Min(st.Circulation+minted, cfg.MaxCirculation)
	c.logf(sym, news.SeverityInfo, "Miners released %d new %s into circulation.", int64(minted), sym)
	c.emit(RemintEvent{Task: task, Symbol: sym, Minted: minted, Circulation: st.Circulation, Time: c.now()})

	if !c.events.PumpFlag[sym] {
		return
	}
	pct := DumpMin + c.rng.Float64()*DumpRange
	st.Price = math.Max(st.Price*(1-pct), cfg.MinPrice)
	c.events.PumpFlag[sym] = false
	c.logf(sym, news.SeverityAlert,
		"Pump & Dump! %s price crashes by %.1f%% after new coins hit the market!", sym, pct*100)
	c.emit(DumpEvent{Task: task, Symbol: sym, Percent: pct, Price: st.Price, Time: c.now()})
}

func validAmount(v float64) bool {
	return finite(v) && v > 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
