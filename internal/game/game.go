// Package game wires the market subsystems together.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/zappabad/coinsim/internal/admin"
	"github.com/zappabad/coinsim/internal/api"
	marketservice "github.com/zappabad/coinsim/internal/market/service"
	"github.com/zappabad/coinsim/internal/metrics"
	"github.com/zappabad/coinsim/internal/storage"
	"github.com/zappabad/coinsim/internal/trader/runner"
)

// Game owns all the game subsystems and manages their lifecycle.
type Game struct {
	Market  *marketservice.MarketService
	Runner  *runner.Runner
	Admin   *admin.Gate
	Metrics *metrics.Recorder

	store        *storage.SQLiteStore
	cfg          Config
	logger       *slog.Logger
	tickFailures atomic.Int64
	drainWG      sync.WaitGroup
	mu           sync.Mutex
	closed       bool
}

// NewGame creates a new Game with the given configuration. The saved game at
// cfg.DBPath is restored when present.
func NewGame(ctx context.Context, cfg Config, logger *slog.Logger) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Game{cfg: cfg, logger: logger}

	g.Metrics = metrics.NewRecorder()
	deps := marketservice.Deps{
		Metrics: g.Metrics,
		Logger:  logger.With(slog.String("component", "market")),
	}
	if cfg.DBPath != "" {
		store, err := storage.NewSQLiteStore(cfg.DBPath, cfg.SnapshotKey)
		if err != nil {
			return nil, err
		}
		g.store = store
		deps.Store = store
	}

	svc, err := marketservice.NewMarketService(ctx, cfg.Assets, cfg.Market, deps)
	if err != nil {
		g.closeStore()
		return nil, err
	}
	g.Market = svc

	gate, err := admin.NewGate(cfg.Admin, svc, logger.With(slog.String("component", "admin")))
	if err != nil {
		svc.Close()
		g.closeStore()
		return nil, err
	}
	g.Admin = gate

	g.Runner = runner.NewRunner(cfg.Runner, svc, logger.With(slog.String("component", "runner")))
	g.drainWG.Add(1)
	go g.drainRunnerEvents()

	logger.Info("game started",
		slog.Int("assets", len(cfg.Assets)),
		slog.Duration("tick_interval", cfg.Runner.TickInterval),
		slog.String("db", cfg.DBPath),
	)
	return g, nil
}

// drainRunnerEvents consumes failed-tick reports so a runner configured not to
// drop them never blocks on a full buffer. It exits when the runner closes.
func (g *Game) drainRunnerEvents() {
	defer g.drainWG.Done()
	for ev := range g.Runner.Events() {
		n := g.tickFailures.Add(1)
		g.logger.Debug("runner event",
			slog.String("message", ev.Message),
			slog.Int64("failures", n),
		)
	}
}

// TickFailures returns the number of failed ticks reported by the runner.
func (g *Game) TickFailures() int64 {
	return g.tickFailures.Load()
}

// Handler returns the HTTP handler serving the game.
func (g *Game) Handler() http.Handler {
	return api.NewRouter(g.cfg.API, g.Market, g.Admin, g.Metrics.Handler(),
		g.logger.With(slog.String("component", "api")))
}

// Config returns the configuration the game was built with.
func (g *Game) Config() Config {
	return g.cfg
}

// Close shuts down all game subsystems in reverse dependency order.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true

	// Stop ticks first so the final snapshot is not raced by the runner
	if g.Runner != nil {
		g.Runner.Close()
		g.drainWG.Wait()
	}

	// Stop market; this writes the final snapshot
	if g.Market != nil {
		g.Market.Close()
	}

	g.closeStore()
}

func (g *Game) closeStore() {
	if g.store == nil {
		return
	}
	if err := g.store.Close(); err != nil {
		g.logger.Warn("closing store failed", slog.String("error", err.Error()))
	}
	g.store = nil
}
