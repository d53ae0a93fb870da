package runner

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Ticker is the periodic step driven by the runner.
type Ticker interface {
	Tick(ctx context.Context) error
}

// Event reports the outcome of a failed tick.
type Event struct {
	Time    int64
	Message string
}

// Runner invokes a Ticker on a fixed period until closed.
type Runner struct {
	cfg    Config
	target Ticker
	logger *slog.Logger

	ticks         atomic.Int64
	events        chan Event
	droppedEvents atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRunner creates and starts a Runner.
func NewRunner(cfg Config, target Ticker, logger *slog.Logger) *Runner {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		cfg:    cfg,
		target: target,
		logger: logger,
		events: make(chan Event, cfg.EventBuffer),
		closed: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run()

	return r
}

func (r *Runner) run() {
	defer r.wg.Done()
	defer close(r.events)

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.closed:
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *Runner) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.TickInterval)
	defer cancel()

	r.ticks.Add(1)
	if err := r.target.Tick(ctx); err != nil {
		r.logger.Warn("market tick failed", slog.String("error", err.Error()))
		r.emitEvent(Event{
			Time:    time.Now().UnixNano(),
			Message: err.Error(),
		})
	}
}

func (r *Runner) emitEvent(ev Event) {
	if r.cfg.DropEvents {
		select {
		case r.events <- ev:
		default:
			r.droppedEvents.Add(1)
		}
	} else {
		select {
		case r.events <- ev:
		case <-r.closed:
		}
	}
}

// Ticks returns the number of ticks attempted.
func (r *Runner) Ticks() int64 {
	return r.ticks.Load()
}

// Events returns the runner events channel.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// DroppedEvents returns the count of dropped events.
func (r *Runner) DroppedEvents() int64 {
	return r.droppedEvents.Load()
}

// Close stops the runner and waits for an in-flight tick to finish.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		close(r.closed)
	})
	r.wg.Wait()
}
