package core

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/trader"
	"github.com/zappabad/coinsim/internal/trader/strategy"
)

// queueRand returns vals in order, then fallback forever.
type queueRand struct {
	vals     []float64
	fallback float64
}

func (r *queueRand) Float64() float64 {
	if len(r.vals) == 0 {
		return r.fallback
	}
	v := r.vals[0]
	r.vals = r.vals[1:]
	return v
}

func (r *queueRand) push(vals ...float64) {
	r.vals = append(r.vals, vals...)
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type pendingTask struct {
	id    string
	delay time.Duration
	fn    func() []Event
}

// manualScheduler collects deferred callbacks until the test fires them.
type manualScheduler struct {
	tasks []pendingTask
	seq   int
}

func (s *manualScheduler) AfterFunc(delay time.Duration, fn func() []Event) string {
	s.seq++
	id := fmt.Sprintf("task-%d", s.seq)
	s.tasks = append(s.tasks, pendingTask{id: id, delay: delay, fn: fn})
	return id
}

func (s *manualScheduler) fireAll() []Event {
	var out []Event
	for len(s.tasks) > 0 {
		task := s.tasks[0]
		s.tasks = s.tasks[1:]
		out = append(out, task.fn()...)
	}
	return out
}

// scriptedBots returns fixed intents per asset every tick.
type scriptedBots map[market.Symbol][]trader.OrderIntent

func (b scriptedBots) Orders(_ strategy.Rand, asset market.AssetConfig) []trader.OrderIntent {
	return b[asset.Symbol]
}

type fixture struct {
	core  *Core
	rng   *queueRand
	sched *manualScheduler
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		rng:   &queueRand{fallback: 0.9},
		sched: &manualScheduler{},
	}
	if opts.Rand == nil {
		opts.Rand = f.rng
	}
	if opts.Clock == nil {
		opts.Clock = &fixedClock{now: time.Unix(1700000000, 0)}
	}
	if opts.Strategy == nil {
		opts.Strategy = scriptedBots{}
	}
	opts.Scheduler = f.sched

	c, err := NewCore(market.DefaultRegistry(), opts)
	if err != nil {
		t.Fatalf("NewCore: %v", err)
	}
	f.core = c
	return f
}

// restore overwrites selected fields of the current state.
func (f *fixture) restore(t *testing.T, mutate func(*State)) {
	t.Helper()
	st := f.core.Snapshot()
	mutate(&st)
	if _, err := f.core.Restore(st); err != nil {
		t.Fatalf("Restore: %v", err)
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func findEvent[T Event](events []Event) (T, bool) {
	for _, ev := range events {
		if v, ok := ev.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func countEvents[T Event](events []Event) int {
	n := 0
	for _, ev := range events {
		if _, ok := ev.(T); ok {
			n++
		}
	}
	return n
}

// withoutLog strips the parts of a snapshot a failed operation may touch.
func withoutLog(st State) State {
	st.Log = nil
	return st
}
