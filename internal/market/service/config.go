package service

import (
	"time"

	"github.com/zappabad/coinsim/internal/market/core"
)

// Config holds configuration for the market service.
type Config struct {
	// CommandBuffer is the size of the inbound command channel.
	CommandBuffer int `yaml:"command_buffer"`
	// SubscriberBuffer is the default channel size handed to subscribers.
	SubscriberBuffer int `yaml:"subscriber_buffer"`
	// DropEvents determines whether subscriber channels drop on overflow.
	DropEvents bool `yaml:"drop_events"`
	// Seed seeds the simulation random source. Zero picks a time-based seed.
	Seed uint64 `yaml:"seed"`
	// StartingCash is the cash balance of a new game.
	StartingCash float64 `yaml:"starting_cash"`
	// HistoryCapacity is the number of price points kept per asset.
	HistoryCapacity int `yaml:"history_capacity"`
	// LogCapacity is the number of game log lines kept.
	LogCapacity int `yaml:"log_capacity"`
	// SaveTimeout bounds a single snapshot write.
	SaveTimeout time.Duration `yaml:"save_timeout"`
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		CommandBuffer:    256,
		SubscriberBuffer: 256,
		DropEvents:       true,
		StartingCash:     core.DefaultStartingCash,
		HistoryCapacity:  core.DefaultHistoryCapacity,
		LogCapacity:      core.DefaultLogCapacity,
		SaveTimeout:      2 * time.Second,
	}
}
