package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/market/core"
)

type memStore struct {
	mu      sync.Mutex
	state   core.State
	ok      bool
	saves   int
	deletes int
	err     error
}

func (m *memStore) Load(context.Context) (core.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.ok, m.err
}

func (m *memStore) Save(_ context.Context, st core.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
	m.ok = true
	m.saves++
	return nil
}

func (m *memStore) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = core.State{}
	m.ok = false
	m.deletes++
	return nil
}

func (m *memStore) deleted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}

func (m *memStore) saved() (core.State, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.saves
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T, cfg Config, store Store, clock core.Clock) *MarketService {
	t.Helper()
	if clock == nil {
		clock = &fakeClock{now: time.Unix(1700000000, 0)}
	}
	deps := Deps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:  clock,
		Rand:   rand.New(rand.NewPCG(42, 43)),
	}
	if store != nil {
		deps.Store = store
	}
	s, err := NewMarketService(context.Background(), market.DefaultRegistry(), cfg, deps)
	if err != nil {
		t.Fatalf("NewMarketService: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestServiceBuyAndSell(t *testing.T) {
	s := newTestService(t, DefaultConfig(), nil, nil)
	ctx := context.Background()

	report, err := s.Buy(ctx, "LTC", 100)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if report.Filled != 100 || report.Value != 7000 {
		t.Fatalf("unexpected report %+v", report)
	}

	snap := s.Snapshot()
	ltc, _ := snap.Quote("LTC")
	if snap.Cash != 93000 || ltc.Held != 100 || ltc.Circulation != 6500 {
		t.Fatalf("unexpected snapshot cash %v held %v circulation %v", snap.Cash, ltc.Held, ltc.Circulation)
	}

	if _, err := s.Sell(ctx, "LTC", 40); err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if snap := s.Snapshot(); snap.Cash != 95800 {
		t.Fatalf("expected cash 95800, got %v", snap.Cash)
	}
	if len(s.Snapshot().Log) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(s.Snapshot().Log))
	}
}

func TestServiceReturnsDomainErrors(t *testing.T) {
	s := newTestService(t, DefaultConfig(), nil, nil)
	ctx := context.Background()

	if _, err := s.Buy(ctx, "BTC", -1); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := s.Sell(ctx, "BTC", 1); !errors.Is(err, core.ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}
	if _, err := s.Buy(ctx, "XRP", 1); !errors.Is(err, core.ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
	if err := s.CreditCash(ctx, 0); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if s.Snapshot().Cash != core.DefaultStartingCash {
		t.Fatal("failed commands must not change cash")
	}
}

func TestServiceSubscribe(t *testing.T) {
	s := newTestService(t, DefaultConfig(), nil, nil)
	events, cancel := s.Subscribe(16)
	defer cancel()

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case me := <-events:
			if _, ok := me.Event.(core.TickEvent); ok {
				if me.Seq == 0 || me.Kind() != "tick" {
					t.Fatalf("unexpected market event %+v", me)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for tick event")
		}
	}
}

func TestServiceDropsOnSlowSubscriber(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DropEvents = true
	s := newTestService(t, cfg, nil, nil)
	_, cancel := s.Subscribe(1)
	defer cancel()

	for i := 0; i < 5; i++ {
		if err := s.Tick(context.Background()); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if s.DroppedEvents() == 0 {
		t.Fatal("expected dropped events for a full subscriber")
	}
}

func TestServiceUnsubscribeClosesChannel(t *testing.T) {
	s := newTestService(t, DefaultConfig(), nil, nil)
	events, cancel := s.Subscribe(1)
	cancel()
	cancel()

	if _, ok := <-events; ok {
		t.Fatal("expected closed channel after cancel")
	}
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick after unsubscribe: %v", err)
	}
}

func TestServicePersistsAfterCommands(t *testing.T) {
	store := &memStore{}
	s := newTestService(t, DefaultConfig(), store, nil)

	if _, err := s.Buy(context.Background(), "BTC", 1); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	st, saves := store.saved()
	if saves < 2 {
		t.Fatalf("expected initial and post-buy saves, got %d", saves)
	}
	if st.Portfolio["BTC"] != 1 || st.Cash != 73000 {
		t.Fatalf("unexpected saved state cash %v holdings %v", st.Cash, st.Portfolio)
	}
}

func TestServiceRestoresSavedGame(t *testing.T) {
	store := &memStore{}
	first := newTestService(t, DefaultConfig(), store, nil)
	if _, err := first.Buy(context.Background(), "LTC", 10); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	first.Close()

	second := newTestService(t, DefaultConfig(), store, nil)
	snap := second.Snapshot()
	ltc, _ := snap.Quote("LTC")
	if ltc.Held != 10 || snap.Cash != 99300 {
		t.Fatalf("expected restored game, got cash %v held %v", snap.Cash, ltc.Held)
	}
	if len(snap.Log) == 0 {
		t.Fatal("expected restored log")
	}
}

func TestServiceInvalidSnapshotStartsFresh(t *testing.T) {
	store := &memStore{ok: true, state: core.State{Cash: -10}}
	s := newTestService(t, DefaultConfig(), store, nil)

	snap := s.Snapshot()
	if snap.Cash != core.DefaultStartingCash {
		t.Fatalf("expected fresh game, got cash %v", snap.Cash)
	}
	for _, q := range snap.Quotes {
		if len(snap.History[q.Symbol]) != 1 {
			t.Fatalf("%s: expected one seeded history point", q.Symbol)
		}
	}
	if store.deleted() != 1 {
		t.Fatalf("expected the rejected snapshot deleted once, got %d", store.deleted())
	}
}

func TestServiceLoadErrorStartsFresh(t *testing.T) {
	store := &memStore{err: errors.New("disk on fire")}
	s := newTestService(t, DefaultConfig(), store, nil)
	if s.Snapshot().Cash != core.DefaultStartingCash {
		t.Fatal("expected fresh game after load error")
	}
	if store.deleted() != 0 {
		t.Fatal("a failed load must not delete the saved game")
	}
}

func TestServiceRunsDeferredRemint(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cfg := DefaultConfig()
	cfg.StartingCash = 1e9
	s := newTestService(t, cfg, nil, clock)
	ctx := context.Background()

	if _, err := s.Buy(ctx, "BTC", 5000); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if btc, _ := s.Snapshot().Quote("BTC"); !btc.Pumped || btc.Circulation != 0 {
		t.Fatalf("expected pumped and empty BTC, got %+v", btc)
	}

	clock.Advance(10 * time.Second)
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if btc, _ := s.Snapshot().Quote("BTC"); !btc.Pumped {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("deferred re-mint did not run")
}

func TestServiceRemintCarriesTaskID(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cfg := DefaultConfig()
	cfg.StartingCash = 1e9
	s := newTestService(t, cfg, nil, clock)
	ctx := context.Background()
	events, cancel := s.Subscribe(256)
	defer cancel()

	if _, err := s.Buy(ctx, "BTC", 5000); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	clock.Advance(10 * time.Second)
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var task string
	deadline := time.After(2 * time.Second)
	for {
		select {
		case me := <-events:
			switch e := me.Event.(type) {
			case core.DepletionEvent:
				if _, err := uuid.Parse(e.RemintTask); err != nil {
					t.Fatalf("depletion task %q is not a uuid: %v", e.RemintTask, err)
				}
				task = e.RemintTask
			case core.RemintEvent:
				if task == "" || e.Task != task {
					t.Fatalf("re-mint task %q, want %q", e.Task, task)
				}
			case core.DumpEvent:
				if e.Task != task {
					t.Fatalf("dump task %q, want %q", e.Task, task)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for dump event")
		}
	}
}

func TestServiceResetCommand(t *testing.T) {
	s := newTestService(t, DefaultConfig(), nil, nil)
	ctx := context.Background()
	if _, err := s.Buy(ctx, "BTC", 1); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	snap := s.Snapshot()
	if snap.Cash != core.DefaultStartingCash || snap.Epoch != 1 || len(snap.Log) != 0 {
		t.Fatalf("unexpected snapshot after reset %+v", snap)
	}
}

func TestServiceClosed(t *testing.T) {
	s := newTestService(t, DefaultConfig(), nil, nil)
	events, _ := s.Subscribe(4)
	s.Close()

	if _, err := s.Buy(context.Background(), "BTC", 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, ok := <-events; ok {
		t.Fatal("expected subscriber channel closed")
	}
	late, _ := s.Subscribe(1)
	if _, ok := <-late; ok {
		t.Fatal("expected late subscriber channel closed")
	}
}
