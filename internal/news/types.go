package news

import "github.com/zappabad/coinsim/internal/market"

// NewsID uniquely identifies a log line.
type NewsID int64

// Severity ranks how prominently an item should be shown.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityAlert
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityAlert:
		return "alert"
	default:
		return "unknown"
	}
}

// NewsItem is a timestamped, human-readable game log entry.
type NewsItem struct {
	ID       NewsID        `json:"id"`
	Time     int64         `json:"time"`             // unix nanos
	Symbol   market.Symbol `json:"symbol,omitempty"` // empty means market-wide
	Headline string        `json:"headline"`
	Severity Severity      `json:"severity"`
}
