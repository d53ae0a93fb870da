package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/market/core"
	marketview "github.com/zappabad/coinsim/internal/market/view"
	"github.com/zappabad/coinsim/internal/scheduler"
)

// ErrClosed is returned for commands sent after Close.
var ErrClosed = errors.New("market service closed")

// command types
type cmdType int

const (
	cmdBuy cmdType = iota
	cmdSell
	cmdReset
	cmdCredit
	cmdTick
	cmdSave
)

func (t cmdType) String() string {
	switch t {
	case cmdBuy:
		return "buy"
	case cmdSell:
		return "sell"
	case cmdReset:
		return "reset"
	case cmdCredit:
		return "credit"
	case cmdTick:
		return "tick"
	case cmdSave:
		return "save"
	default:
		return "unknown"
	}
}

type command struct {
	typ    cmdType
	symbol market.Symbol
	amount float64
	respCh chan<- response
}

type response struct {
	report core.TradeReport
	err    error
}

type subscriber struct {
	ch   chan marketview.MarketEvent
	done chan struct{}
	once sync.Once
}

// queueScheduler runs core callbacks through the service task queue.
type queueScheduler struct {
	queue *scheduler.Queue[[]core.Event]
	clock core.Clock
}

func (q *queueScheduler) AfterFunc(delay time.Duration, fn func() []core.Event) string {
	return q.queue.Push(q.clock.Now().Add(delay), fn).String()
}

// MarketService owns a simulation core in a single goroutine. Commands and
// deferred tasks run to completion one at a time, so the core needs no locks.
type MarketService struct {
	cfg      Config
	registry market.Registry
	core     *core.Core
	queue    *scheduler.Queue[[]core.Event]
	clock    core.Clock
	store    Store
	metrics  Metrics
	logger   *slog.Logger
	gview    *marketview.GameView

	cmdCh chan command
	seq   uint64

	subsMu  sync.Mutex
	subs    map[int]*subscriber
	nextSub int

	droppedEvents atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewMarketService creates a MarketService for reg, restores the persisted
// game if one exists and starts the command processor.
func NewMarketService(ctx context.Context, reg market.Registry, cfg Config, deps Deps) (*MarketService, error) {
	def := DefaultConfig()
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = def.CommandBuffer
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = def.SubscriberBuffer
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = def.SaveTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = core.SystemClock{}
	}
	if deps.Rand == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		deps.Rand = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	queue := scheduler.NewQueue[[]core.Event]()
	c, err := core.NewCore(reg, core.Options{
		Rand:            deps.Rand,
		Clock:           deps.Clock,
		Scheduler:       &queueScheduler{queue: queue, clock: deps.Clock},
		Strategy:        deps.Strategy,
		StartingCash:    cfg.StartingCash,
		HistoryCapacity: cfg.HistoryCapacity,
		LogCapacity:     cfg.LogCapacity,
	})
	if err != nil {
		return nil, fmt.Errorf("create market core: %w", err)
	}

	s := &MarketService{
		cfg:      cfg,
		registry: reg,
		core:     c,
		queue:    queue,
		clock:    deps.Clock,
		store:    deps.Store,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		gview:    marketview.NewGameView(reg),
		cmdCh:    make(chan command, cfg.CommandBuffer),
		subs:     make(map[int]*subscriber),
		closed:   make(chan struct{}),
	}

	s.publish(s.restore(ctx))
	s.persist()

	// Start command processor
	s.wg.Add(1)
	go s.runCommandProcessor()

	return s, nil
}

// restore loads the saved game. Missing or invalid snapshots leave the fresh
// game in place.
func (s *MarketService) restore(ctx context.Context) []core.Event {
	if s.store == nil {
		return nil
	}
	st, ok, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("load snapshot failed, starting new game", slog.String("error", err.Error()))
		return nil
	}
	if !ok {
		s.logger.Info("no saved game, starting new game")
		return nil
	}
	events, err := s.core.Restore(st)
	if err != nil {
		s.logger.Warn("discarding saved game", slog.String("error", err.Error()))
		if err := s.store.Delete(ctx); err != nil {
			s.logger.Warn("delete snapshot failed", slog.String("error", err.Error()))
		}
		return nil
	}
	s.logger.Info("restored saved game",
		slog.Uint64("epoch", s.core.Epoch()),
		slog.Uint64("tick", s.core.TickCount()),
		slog.Int("pending_tasks", s.queue.Len()),
	)
	return events
}

func (s *MarketService) runCommandProcessor() {
	defer s.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		s.armTimer(timer)

		select {
		case <-s.closed:
			return
		case cmd := <-s.cmdCh:
			s.processCommand(cmd)
		case <-timer.C:
			s.runDueTasks()
		}
	}
}

// armTimer points timer at the earliest pending task.
func (s *MarketService) armTimer(timer *time.Timer) {
	due, ok := s.queue.NextDue()
	if !ok {
		timer.Stop()
		return
	}
	timer.Reset(max(due.Sub(s.clock.Now()), 0))
}

func (s *MarketService) runDueTasks() {
	tasks := s.queue.PopDue(s.clock.Now())
	if len(tasks) == 0 {
		return
	}
	var events []core.Event
	for _, t := range tasks {
		produced := t.Fn()
		s.logger.Debug("deferred task ran",
			slog.String("task", t.ID.String()),
			slog.Int("events", len(produced)),
		)
		events = append(events, produced...)
	}
	s.publish(events)
	s.persist()
}

func (s *MarketService) processCommand(cmd command) {
	var (
		resp   response
		events []core.Event
	)

	switch cmd.typ {
	case cmdBuy:
		resp.report, events, resp.err = s.core.Buy(cmd.symbol, cmd.amount)
	case cmdSell:
		resp.report, events, resp.err = s.core.Sell(cmd.symbol, cmd.amount)
	case cmdReset:
		events = s.core.Reset()
		s.logger.Info("game reset", slog.Uint64("epoch", s.core.Epoch()))
	case cmdCredit:
		events, resp.err = s.core.CreditCash(cmd.amount)
	case cmdTick:
		events = s.core.Tick()
	case cmdSave:
	}

	if resp.err != nil {
		s.logger.Info("command rejected",
			slog.String("command", cmd.typ.String()),
			slog.String("symbol", string(cmd.symbol)),
			slog.Float64("amount", cmd.amount),
			slog.String("error", resp.err.Error()),
		)
	}
	s.metrics.ObserveCommand(cmd.typ.String(), resp.err)

	s.publish(events)
	if err := s.persist(); err != nil && cmd.typ == cmdSave {
		resp.err = err
	}

	if cmd.respCh != nil {
		cmd.respCh <- resp
	}
}

// publish refreshes the view and fans events out to subscribers.
func (s *MarketService) publish(events []core.Event) {
	st := s.core.Snapshot()
	s.gview.Update(st)
	s.metrics.ObserveState(st)
	s.metrics.ObserveEvents(events)

	for _, ev := range events {
		s.logEvent(ev)
		s.seq++
		s.fanOut(marketview.MarketEvent{Seq: s.seq, Event: ev})
	}
}

func (s *MarketService) logEvent(ev core.Event) {
	switch e := ev.(type) {
	case core.DepletionEvent:
		s.logger.Info("circulation depleted",
			slog.String("symbol", string(e.Symbol)),
			slog.Float64("spike", e.SpikeFactor),
			slog.Duration("remint_in", e.RemintDelay),
			slog.String("task", e.RemintTask),
		)
	case core.RemintEvent:
		s.logger.Info("coins reminted",
			slog.String("symbol", string(e.Symbol)),
			slog.Float64("minted", e.Minted),
			slog.String("task", e.Task),
		)
	case core.DumpEvent:
		s.logger.Info("pump and dump",
			slog.String("symbol", string(e.Symbol)),
			slog.Float64("percent", e.Percent),
			slog.String("task", e.Task),
		)
	case core.HypeEvent:
		s.logger.Info("hype event", slog.String("symbol", string(e.Symbol)), slog.Float64("percent", e.Percent))
	case core.CrashEvent:
		s.logger.Info("market crash", slog.String("symbol", string(e.Symbol)), slog.Float64("percent", e.Percent))
	case core.CashCreditedEvent:
		s.logger.Info("cash credited", slog.Float64("amount", e.Amount))
	case core.TickEvent:
		s.logger.Debug("tick", slog.Uint64("tick", e.Tick))
	}
}

func (s *MarketService) fanOut(me marketview.MarketEvent) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for _, sub := range s.subs {
		if s.cfg.DropEvents {
			select {
			case sub.ch <- me:
			default:
				s.droppedEvents.Add(1)
				s.metrics.ObserveDropped(1)
			}
			continue
		}
		select {
		case sub.ch <- me:
		case <-sub.done:
		case <-s.closed:
			return
		}
	}
}

func (s *MarketService) persist() error {
	if s.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SaveTimeout)
	defer cancel()

	if err := s.store.Save(ctx, s.core.Snapshot()); err != nil {
		s.logger.Error("save snapshot failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (s *MarketService) send(ctx context.Context, cmd command) (response, error) {
	respCh := make(chan response, 1)
	cmd.respCh = respCh

	select {
	case <-s.closed:
		return response{}, ErrClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	case s.cmdCh <- cmd:
	}

	select {
	case <-s.closed:
		return response{}, ErrClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	case resp := <-respCh:
		return resp, nil
	}
}

// Buy purchases amount units of sym for the player.
func (s *MarketService) Buy(ctx context.Context, sym market.Symbol, amount float64) (core.TradeReport, error) {
	resp, err := s.send(ctx, command{typ: cmdBuy, symbol: sym, amount: amount})
	if err != nil {
		return core.TradeReport{}, err
	}
	return resp.report, resp.err
}

// Sell sells amount units of sym for the player.
func (s *MarketService) Sell(ctx context.Context, sym market.Symbol, amount float64) (core.TradeReport, error) {
	resp, err := s.send(ctx, command{typ: cmdSell, symbol: sym, amount: amount})
	if err != nil {
		return core.TradeReport{}, err
	}
	return resp.report, resp.err
}

// Reset starts a new game.
func (s *MarketService) Reset(ctx context.Context) error {
	_, err := s.send(ctx, command{typ: cmdReset})
	return err
}

// CreditCash adds amount to the player's cash.
func (s *MarketService) CreditCash(ctx context.Context, amount float64) error {
	resp, err := s.send(ctx, command{typ: cmdCredit, amount: amount})
	if err != nil {
		return err
	}
	return resp.err
}

// Tick runs one simulation step. It implements runner.Ticker.
func (s *MarketService) Tick(ctx context.Context) error {
	_, err := s.send(ctx, command{typ: cmdTick})
	return err
}

// Save writes the current snapshot once every queued command has run.
func (s *MarketService) Save(ctx context.Context) error {
	resp, err := s.send(ctx, command{typ: cmdSave})
	if err != nil {
		return err
	}
	return resp.err
}

// Snapshot returns the latest published game snapshot.
func (s *MarketService) Snapshot() marketview.GameSnapshot {
	return s.gview.Snapshot()
}

// State returns the latest published raw state.
func (s *MarketService) State() core.State {
	return s.gview.State()
}

// View returns the read model backing Snapshot.
func (s *MarketService) View() *marketview.GameView {
	return s.gview
}

// Registry returns the configured assets.
func (s *MarketService) Registry() market.Registry {
	return s.registry
}

// Subscribe registers a new event consumer. buffer <= 0 uses the configured
// default. The returned cancel func closes the channel.
func (s *MarketService) Subscribe(buffer int) (<-chan marketview.MarketEvent, func()) {
	if buffer <= 0 {
		buffer = s.cfg.SubscriberBuffer
	}
	sub := &subscriber{
		ch:   make(chan marketview.MarketEvent, buffer),
		done: make(chan struct{}),
	}

	s.subsMu.Lock()
	select {
	case <-s.closed:
		s.subsMu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	default:
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	s.subsMu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			close(sub.done)
			s.subsMu.Lock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub.ch)
			}
			s.subsMu.Unlock()
		})
	}
	return sub.ch, cancel
}

// DroppedEvents returns the count of events dropped on slow subscribers.
func (s *MarketService) DroppedEvents() int64 {
	return s.droppedEvents.Load()
}

// Close stops the command processor, writes a final snapshot and closes every
// subscriber channel.
func (s *MarketService) Close() {
	first := false
	s.closeOnce.Do(func() {
		close(s.closed)
		first = true
	})
	s.wg.Wait()
	if !first {
		return
	}

	// the processor has exited; this goroutine now owns the core
	s.persist()

	s.subsMu.Lock()
	for id, sub := range s.subs {
		delete(s.subs, id)
		close(sub.ch)
	}
	s.subsMu.Unlock()
}
