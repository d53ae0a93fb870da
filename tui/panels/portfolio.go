package panels

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	marketview "github.com/zappabad/coinsim/internal/market/view"
	"github.com/zappabad/coinsim/tui/styles"
)

// PortfolioPanel displays the player's cash, holdings and net worth.
// Net worth is colored against baseline.
type PortfolioPanel struct {
	snap     marketview.GameSnapshot
	baseline float64
	focused  bool
	width    int
	height   int
}

// NewPortfolioPanel creates a new portfolio panel.
func NewPortfolioPanel(baseline float64) *PortfolioPanel {
	return &PortfolioPanel{baseline: baseline}
}

// Init initializes the panel.
func (p *PortfolioPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *PortfolioPanel) Update(msg tea.Msg) (*PortfolioPanel, tea.Cmd) {
	return p, nil
}

// View renders the panel.
func (p *PortfolioPanel) View() string {
	var content strings.Builder

	content.WriteString(styles.LabelStyle.Render(fmt.Sprintf("%-10s", "Cash")))
	content.WriteString(styles.PriceStyle.Render(styles.FormatUSD(p.snap.Cash)))
	content.WriteString("\n\n")

	header := fmt.Sprintf("%-6s %14s %14s", "Asset", "Held", "Value")
	content.WriteString(styles.HeaderStyle.Render(header))

	var holdings float64
	for _, q := range p.snap.Quotes {
		holdings += q.Value
		content.WriteString("\n")
		row := fmt.Sprintf("%-6s %14s %14s", q.Symbol, styles.FormatQty(q.Held), styles.FormatUSD(q.Value))
		content.WriteString(styles.RowStyle.Render(row))
	}

	content.WriteString("\n\n")
	content.WriteString(styles.LabelStyle.Render(fmt.Sprintf("%-10s", "Holdings")))
	content.WriteString(styles.FormatUSD(holdings))
	content.WriteString("\n")
	content.WriteString(styles.LabelStyle.Render(fmt.Sprintf("%-10s", "Net worth")))

	nwStyle := styles.PriceUpStyle
	if p.snap.NetWorth < p.baseline {
		nwStyle = styles.PriceDownStyle
	}
	content.WriteString(nwStyle.Bold(true).Render(styles.FormatUSD(p.snap.NetWorth)))

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("💼 Portfolio", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *PortfolioPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *PortfolioPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSnapshot sets the game snapshot to display.
func (p *PortfolioPanel) SetSnapshot(snap marketview.GameSnapshot) {
	p.snap = snap
}
