package service

import (
	"context"
	"log/slog"

	"github.com/zappabad/coinsim/internal/market/core"
	"github.com/zappabad/coinsim/internal/trader/strategy"
)

// Store persists full game snapshots.
type Store interface {
	// Load returns the saved snapshot; ok is false when none exists.
	Load(ctx context.Context) (st core.State, ok bool, err error)
	Save(ctx context.Context, st core.State) error
	// Delete removes the saved snapshot.
	Delete(ctx context.Context) error
}

// Metrics receives service observations.
type Metrics interface {
	ObserveCommand(kind string, err error)
	ObserveEvents(events []core.Event)
	ObserveState(st core.State)
	ObserveDropped(n int)
}

// Deps are the optional collaborators of a MarketService.
type Deps struct {
	Store    Store
	Metrics  Metrics
	Logger   *slog.Logger
	Clock    core.Clock
	Rand     core.Rand
	Strategy strategy.Strategy
}

type nopMetrics struct{}

func (nopMetrics) ObserveCommand(string, error) {}
func (nopMetrics) ObserveEvents([]core.Event) {}
func (nopMetrics) ObserveState(core.State) {}
func (nopMetrics) ObserveDropped(int) {}
