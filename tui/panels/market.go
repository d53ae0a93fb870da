package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/coinsim/internal/market"
	marketview "github.com/zappabad/coinsim/internal/market/view"
	"github.com/zappabad/coinsim/tui/styles"
)

// MarketOverviewPanel displays price, circulation and holdings for every asset.
type MarketOverviewPanel struct {
	assets        market.Registry
	quotes        map[market.Symbol]marketview.AssetQuote
	lastPrice     map[market.Symbol]float64
	selectedIndex int
	focused       bool
	width         int
	height        int
}

// NewMarketOverviewPanel creates a new market overview panel.
func NewMarketOverviewPanel(assets market.Registry) *MarketOverviewPanel {
	return &MarketOverviewPanel{
		assets:    assets,
		quotes:    make(map[market.Symbol]marketview.AssetQuote),
		lastPrice: make(map[market.Symbol]float64),
	}
}

// Init initializes the panel.
func (p *MarketOverviewPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *MarketOverviewPanel) Update(msg tea.Msg) (*MarketOverviewPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		prev := p.selectedIndex
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.selectedIndex > 0 {
				p.selectedIndex--
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.selectedIndex < len(p.assets)-1 {
				p.selectedIndex++
			}
		}
		if p.selectedIndex != prev {
			sym := p.SelectedAsset().Symbol
			return p, func() tea.Msg { return AssetSelectedMsg{Symbol: sym} }
		}
	}
	return p, nil
}

// View renders the panel.
func (p *MarketOverviewPanel) View() string {
	var content strings.Builder

	header := fmt.Sprintf("%-6s %12s %21s %10s", "Asset", "Price", "Circulation", "Owned")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	for i, a := range p.assets {
		q, ok := p.quotes[a.Symbol]
		price, circ, owned := "-", "-", "-"
		if ok {
			price = styles.FormatUSD(q.Price)
			circ = fmt.Sprintf("%s/%s", market.FormatAmount(q.Circulation, 0), market.FormatAmount(q.MaxCirculation, 0))
			owned = styles.FormatQty(q.Held)
		}

		priceStyle := styles.PriceStyle
		if last, seen := p.lastPrice[a.Symbol]; seen && ok {
			switch {
			case q.Price > last:
				priceStyle = styles.PriceUpStyle
			case q.Price < last:
				priceStyle = styles.PriceDownStyle
			}
		}

		row := fmt.Sprintf("%-6s %s %21s %10s",
			a.Symbol, priceStyle.Render(fmt.Sprintf("%12s", price)), circ, owned)
		if ok && q.Pumped {
			row += " " + styles.PumpStyle.Render("PUMP")
		}

		if i == p.selectedIndex && p.focused {
			row = styles.SelectedRowStyle.Render(row)
		}
		content.WriteString(row)
		if i < len(p.assets)-1 {
			content.WriteString("\n")
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("📈 Market Overview", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *MarketOverviewPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *MarketOverviewPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSnapshot replaces the quotes, remembering the previous prices for the
// up/down coloring.
func (p *MarketOverviewPanel) SetSnapshot(snap marketview.GameSnapshot) {
	for _, q := range snap.Quotes {
		if old, ok := p.quotes[q.Symbol]; ok && old.Price != q.Price {
			p.lastPrice[q.Symbol] = old.Price
		}
		p.quotes[q.Symbol] = q
	}
}

// SelectedAsset returns the currently selected asset.
func (p *MarketOverviewPanel) SelectedAsset() market.AssetConfig {
	if p.selectedIndex >= 0 && p.selectedIndex < len(p.assets) {
		return p.assets[p.selectedIndex]
	}
	return market.AssetConfig{}
}

// AssetSelectedMsg is sent when an asset is selected.
type AssetSelectedMsg struct {
	Symbol market.Symbol
}

// MarketUpdateMsg is sent when a market event arrives.
type MarketUpdateMsg struct {
	Event marketview.MarketEvent
}
