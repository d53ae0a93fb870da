package runner

import "time"

// Config holds configuration for the tick runner.
type Config struct {
	// TickInterval is the interval between market ticks.
	TickInterval time.Duration `yaml:"tick_interval"`
	// EventBuffer is the size of the runner events channel.
	EventBuffer int `yaml:"event_buffer"`
	// DropEvents determines whether the events channel drops on overflow.
	DropEvents bool `yaml:"drop_events"`
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval: 3500 * time.Millisecond,
		EventBuffer:  64,
		DropEvents:   true,
	}
}
