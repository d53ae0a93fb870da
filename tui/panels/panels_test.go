package panels

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/market/core"
	"github.com/zappabad/coinsim/internal/trader"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1.5", 1.5, false},
		{" 1,000 ", 1000, false},
		{"0", 0, true},
		{"-2", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("parseAmount(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPriceToYRoundTrip(t *testing.T) {
	const height = 11
	if y := priceToY(100, 0, 100, height); y != 0 {
		t.Fatalf("expected top row for max price, got %d", y)
	}
	if y := priceToY(0, 0, 100, height); y != height-1 {
		t.Fatalf("expected bottom row for min price, got %d", y)
	}
	if y := priceToY(500, 0, 100, height); y != 0 {
		t.Fatalf("expected clamp to top row, got %d", y)
	}
	for row := 0; row < height; row++ {
		if got := priceToY(yToPrice(row, 0, 100, height), 0, 100, height); got != row {
			t.Fatalf("row %d round-tripped to %d", row, got)
		}
	}
}

func TestPriceChartRendersHistory(t *testing.T) {
	p := NewPriceChartPanel()
	p.SetSize(60, 20)
	p.SetAsset(market.DefaultRegistry()[0])
	if !strings.Contains(p.View(), "No price history") {
		t.Fatal("expected empty chart placeholder")
	}

	p.SetHistory([]core.HistoryPoint{
		{Time: 1, Price: 27000},
		{Time: 2, Price: 27500},
		{Time: 3, Price: 26900},
	})
	out := p.View()
	if !strings.Contains(out, "•") || !strings.Contains(out, "BTC") {
		t.Fatalf("expected plotted points, got:\n%s", out)
	}
}

func TestOrderInputSubmit(t *testing.T) {
	p := NewOrderInputPanel(market.DefaultRegistry())
	p.SetFocus(true)

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2.5")})
	p.SetAsset("LTC")
	p.sideIndex = 1

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected submit command")
	}
	msg, ok := cmd().(OrderSubmitMsg)
	if !ok {
		t.Fatalf("expected OrderSubmitMsg, got %T", cmd())
	}
	if msg.Symbol != "LTC" || msg.Side != trader.SideSell || msg.Amount != 2.5 {
		t.Fatalf("unexpected order %+v", msg)
	}
}

func TestOrderInputRejectsBadAmount(t *testing.T) {
	p := NewOrderInputPanel(market.DefaultRegistry())
	p.SetFocus(true)

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(OrderInvalidMsg); !ok {
		t.Fatal("expected OrderInvalidMsg for empty amount")
	}
}

func TestLogPanelClampsSelection(t *testing.T) {
	p := NewLogPanel()
	p.selectedIndex = 5
	p.SetItems(nil)
	if p.selectedIndex != 0 {
		t.Fatalf("expected selection reset, got %d", p.selectedIndex)
	}
}
