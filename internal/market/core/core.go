package core

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/news"
	"github.com/zappabad/coinsim/internal/tape"
	"github.com/zappabad/coinsim/internal/trader/strategy"
)

// DefaultStartingCash is the cash balance of a new game.
const DefaultStartingCash = 100000

// Options carries the injected collaborators of a Core.
type Options struct {
	Rand      Rand
	Clock     Clock
	Scheduler Scheduler
	Strategy  strategy.Strategy

	StartingCash    float64
	HistoryCapacity int
	LogCapacity     int
}

// Core is one simulation context: market state, portfolio, event state,
// price history and the game log. It is not safe for concurrent use; a
// single owner must serialize every call, including scheduled callbacks.
type Core struct {
	registry market.Registry
	rng      Rand
	clock    Clock
	sched    Scheduler
	bots     strategy.Strategy

	startingCash    float64
	historyCapacity int

	cash     float64
	holdings map[market.Symbol]float64
	assets   map[market.Symbol]*AssetState
	history  map[market.Symbol]*tape.Tape[HistoryPoint]
	log      *tape.Tape[news.NewsItem]
	events   EventState
	epoch    uint64
	tick     uint64
	newsID   int64

	pending []Event
}

// NewCore creates a Core in its initial game state.
func NewCore(reg market.Registry, opts Options) (*Core, error) {
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}
	if opts.Scheduler == nil {
		return nil, errors.New("scheduler is required")
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Strategy == nil {
		opts.Strategy = strategy.NewRandomFlow()
	}
	if opts.StartingCash <= 0 {
		opts.StartingCash = DefaultStartingCash
	}
	if opts.HistoryCapacity <= 0 {
		opts.HistoryCapacity = DefaultHistoryCapacity
	}
	if opts.LogCapacity <= 0 {
		opts.LogCapacity = DefaultLogCapacity
	}

	c := &Core{
		registry:        reg,
		rng:             opts.Rand,
		clock:           opts.Clock,
		sched:           opts.Scheduler,
		bots:            opts.Strategy,
		startingCash:    opts.StartingCash,
		historyCapacity: opts.HistoryCapacity,
		log:             tape.New[news.NewsItem](opts.LogCapacity),
	}
	c.initState()
	return c, nil
}

// initState puts every field back to the configured defaults and seeds one
// history point per asset.
func (c *Core) initState() {
	now := c.now()

	c.cash = c.startingCash
	c.holdings = make(map[market.Symbol]float64, len(c.registry))
	c.assets = make(map[market.Symbol]*AssetState, len(c.registry))
	c.history = make(map[market.Symbol]*tape.Tape[HistoryPoint], len(c.registry))
	for _, a := range c.registry {
		c.holdings[a.Symbol] = 0
		c.assets[a.Symbol] = &AssetState{
			Price:       a.InitialPrice,
			Circulation: a.InitialCirculation,
		}
		h := tape.New[HistoryPoint](c.historyCapacity)
		h.Append(HistoryPoint{Time: now, Price: a.InitialPrice})
		c.history[a.Symbol] = h
	}
	c.log.Clear()
	c.events = newEventState(c.registry)
	c.tick = 0
}

// Reset reinitializes the game. Deferred callbacks scheduled before the reset
// become no-ops.
func (c *Core) Reset() []Event {
	c.epoch++
	c.initState()
	c.emit(ResetEvent{Epoch: c.epoch, Time: c.now()})
	return c.flush()
}

// CreditCash adds amount to the cash balance outside normal trade flow.
func (c *Core) CreditCash(amount float64) ([]Event, error) {
	if !validAmount(amount) {
		return c.flush(), ErrInvalidAmount
	}
	if !finite(c.cash + amount) {
		c.logf("", news.SeverityWarning, "Credit of $%s would overflow the cash balance.", market.FormatAmount(amount, 2))
		return c.flush(), ErrInvalidAmount
	}
	c.cash += amount
	c.logf("", news.SeverityInfo, "Admin gave the player $%s.", market.FormatAmount(amount, 2))
	c.emit(CashCreditedEvent{Amount: amount, Cash: c.cash, Time: c.now()})
	return c.flush(), nil
}

// Registry returns the configured assets.
func (c *Core) Registry() market.Registry {
	return c.registry
}

// Asset returns the current state of sym.
func (c *Core) Asset(sym market.Symbol) (AssetState, error) {
	st, ok := c.assets[sym]
	if !ok {
		return AssetState{}, ErrUnknownAsset
	}
	return *st, nil
}

// Price returns the current price of sym, or 0 for an unknown asset.
func (c *Core) Price(sym market.Symbol) float64 {
	if st, ok := c.assets[sym]; ok {
		return st.Price
	}
	return 0
}

// Circulation returns the quantity of sym available to buy.
func (c *Core) Circulation(sym market.Symbol) float64 {
	if st, ok := c.assets[sym]; ok {
		return st.Circulation
	}
	return 0
}

// Cash returns the cash balance.
func (c *Core) Cash() float64 {
	return c.cash
}

// Holding returns the owned quantity of sym.
func (c *Core) Holding(sym market.Symbol) float64 {
	return c.holdings[sym]
}

// History returns the price history of sym in chronological order.
func (c *Core) History(sym market.Symbol) []HistoryPoint {
	h, ok := c.history[sym]
	if !ok {
		return nil
	}
	return h.Last(h.Count())
}

// Log returns up to n log lines, newest first.
func (c *Core) Log(n int) []news.NewsItem {
	return c.log.Latest(n)
}

// EventState returns a copy of the event bookkeeping.
func (c *Core) EventState() EventState {
	return c.events.clone()
}

// Epoch returns the reset generation.
func (c *Core) Epoch() uint64 {
	return c.epoch
}

// TickCount returns the number of ticks since the last reset.
func (c *Core) TickCount() uint64 {
	return c.tick
}

// Snapshot returns a deep copy of the whole game state.
func (c *Core) Snapshot() State {
	st := State{
		Cash:      c.cash,
		Portfolio: make(map[market.Symbol]float64, len(c.holdings)),
		Assets:    make(map[market.Symbol]AssetState, len(c.assets)),
		History:   make(map[market.Symbol][]HistoryPoint, len(c.history)),
		Log:       c.log.Latest(c.log.Count()),
		Events:    c.events.clone(),
		Epoch:     c.epoch,
		Tick:      c.tick,
	}
	for sym, q := range c.holdings {
		st.Portfolio[sym] = q
	}
	for sym, a := range c.assets {
		st.Assets[sym] = *a
	}
	for sym, h := range c.history {
		st.History[sym] = h.Last(h.Count())
	}
	return st
}

// Restore replaces the game state with st. It rejects snapshots whose values
// violate the market invariants. Restoring starts a new epoch, and every asset
// still flagged as pumped gets a fresh deferred re-mint.
func (c *Core) Restore(st State) ([]Event, error) {
	if err := c.validateState(st); err != nil {
		return nil, err
	}

	now := c.now()
	c.cash = st.Cash
	c.holdings = make(map[market.Symbol]float64, len(c.registry))
	c.assets = make(map[market.Symbol]*AssetState, len(c.registry))
	c.history = make(map[market.Symbol]*tape.Tape[HistoryPoint], len(c.registry))
	for _, a := range c.registry {
		c.holdings[a.Symbol] = st.Portfolio[a.Symbol]
		as := st.Assets[a.Symbol]
		c.assets[a.Symbol] = &as

		h := tape.New[HistoryPoint](c.historyCapacity)
		points := st.History[a.Symbol]
		if len(points) == 0 {
			points = []HistoryPoint{{Time: now, Price: as.Price}}
		}
		h.Load(points)
		c.history[a.Symbol] = h
	}

	// snapshot logs are newest first
	items := slices.Clone(st.Log)
	slices.Reverse(items)
	c.log.Load(items)
	c.newsID = 0
	for _, item := range st.Log {
		if int64(item.ID) > c.newsID {
			c.newsID = int64(item.ID)
		}
	}

	c.events = newEventState(c.registry)
	c.events.HypeCooldown = st.Events.HypeCooldown
	c.events.CrashCooldown = st.Events.CrashCooldown
	for _, a := range c.registry {
		c.events.PumpFlag[a.Symbol] = st.Events.PumpFlag[a.Symbol]
		c.events.DumpCooldown[a.Symbol] = st.Events.DumpCooldown[a.Symbol]
	}

	c.epoch = max(st.Epoch, c.epoch) + 1
	c.tick = st.Tick

	for _, a := range c.registry {
		if c.events.PumpFlag[a.Symbol] {
			c.scheduleRemint(a.Symbol)
		}
	}
	return c.flush(), nil
}

func (c *Core) validateState(st State) error {
	if !finite(st.Cash) || st.Cash < 0 {
		return fmt.Errorf("%w: cash %v", ErrInvalidSnapshot, st.Cash)
	}
	if st.Events.HypeCooldown < 0 || st.Events.CrashCooldown < 0 {
		return fmt.Errorf("%w: negative cooldown", ErrInvalidSnapshot)
	}
	for sym := range st.Assets {
		if _, ok := c.registry.Lookup(sym); !ok {
			return fmt.Errorf("%w: unknown asset %s", ErrInvalidSnapshot, sym)
		}
	}
	for sym := range st.Portfolio {
		if _, ok := c.registry.Lookup(sym); !ok {
			return fmt.Errorf("%w: unknown holding %s", ErrInvalidSnapshot, sym)
		}
	}
	for _, a := range c.registry {
		as, ok := st.Assets[a.Symbol]
		if !ok {
			return fmt.Errorf("%w: missing asset %s", ErrInvalidSnapshot, a.Symbol)
		}
		if !finite(as.Price) || as.Price < a.MinPrice || as.Price > a.PriceCeiling() {
			return fmt.Errorf("%w: %s price %v out of range", ErrInvalidSnapshot, a.Symbol, as.Price)
		}
		if !finite(as.Circulation) || as.Circulation < 0 || as.Circulation > a.MaxCirculation {
			return fmt.Errorf("%w: %s circulation %v out of range", ErrInvalidSnapshot, a.Symbol, as.Circulation)
		}
		if q := st.Portfolio[a.Symbol]; !finite(q) || q < 0 {
			return fmt.Errorf("%w: %s holding %v", ErrInvalidSnapshot, a.Symbol, q)
		}
	}
	return nil
}

func (c *Core) now() int64 {
	return c.clock.Now().UnixNano()
}

func (c *Core) emit(ev Event) {
	c.pending = append(c.pending, ev)
}

func (c *Core) flush() []Event {
	out := c.pending
	c.pending = nil
	return out
}

func (c *Core) logf(sym market.Symbol, sev news.Severity, format string, args ...any) {
	c.newsID++
	item := news.NewsItem{
		ID:       news.NewsID(c.newsID),
		Time:     c.now(),
		Symbol:   sym,
		Headline: fmt.Sprintf(format, args...),
		Severity: sev,
	}
	c.log.Append(item)
	c.emit(LogEvent{Item: item})
}

func (c *Core) lookup(sym market.Symbol) (market.AssetConfig, *AssetState, error) {
	cfg, ok := c.registry.Lookup(sym)
	if !ok {
		return market.AssetConfig{}, nil, ErrUnknownAsset
	}
	return cfg, c.assets[sym], nil
}
