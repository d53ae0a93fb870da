package core

// Bounds of the per-asset price history and the game log.
const (
	DefaultHistoryCapacity = 100
	DefaultLogCapacity     = 32
)
