package panels

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/market/core"
	"github.com/zappabad/coinsim/tui/styles"
)

// axisWidth is the width of the price labels plus the separator.
const axisWidth = 12

// PriceChartPanel draws the price history of one asset as a line chart.
type PriceChartPanel struct {
	asset  market.AssetConfig
	points []core.HistoryPoint

	focused bool
	width   int
	height  int
}

// NewPriceChartPanel creates a new price chart panel.
func NewPriceChartPanel() *PriceChartPanel {
	return &PriceChartPanel{}
}

// Init initializes the panel.
func (p *PriceChartPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *PriceChartPanel) Update(msg tea.Msg) (*PriceChartPanel, tea.Cmd) {
	return p, nil
}

// View renders the panel.
func (p *PriceChartPanel) View() string {
	name := "No asset"
	if p.asset.Symbol != "" {
		name = fmt.Sprintf("%s (%s)", p.asset.Name, p.asset.Symbol)
	}

	var content string
	if len(p.points) == 0 {
		content = lipgloss.NewStyle().Foreground(styles.TextMutedColor).Render("No price history yet...")
	} else {
		content = p.renderChart(p.width-4, max(p.height-5, 5))
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle(fmt.Sprintf("📉 Chart - %s", name), p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content)

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// visiblePoints returns the most recent points that fit in width columns.
func (p *PriceChartPanel) visiblePoints(width int) []core.HistoryPoint {
	cols := max(width-axisWidth, 1)
	if len(p.points) > cols {
		return p.points[len(p.points)-cols:]
	}
	return p.points
}

func (p *PriceChartPanel) renderChart(width, height int) string {
	pts := p.visiblePoints(width)
	chartHeight := max(height-2, 3)

	lo, hi := pts[0].Price, pts[0].Price
	for _, pt := range pts {
		lo = min(lo, pt.Price)
		hi = max(hi, pt.Price)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = max(hi*0.01, 0.01)
	}
	lo -= pad
	hi += pad

	// grid[row][col] holds the glyph; styleUp marks rising columns
	grid := make([][]rune, chartHeight)
	for row := range grid {
		grid[row] = []rune(strings.Repeat(" ", len(pts)))
	}
	styleUp := make([]bool, len(pts))
	prevY := -1
	for col, pt := range pts {
		y := priceToY(pt.Price, lo, hi, chartHeight)
		if prevY >= 0 {
			top, bottom := min(prevY, y), max(prevY, y)
			for row := top + 1; row < bottom; row++ {
				grid[row][col] = '│'
			}
		}
		grid[y][col] = '•'
		styleUp[col] = col == 0 || pt.Price >= pts[col-1].Price
		prevY = y
	}

	var result strings.Builder
	for row := 0; row < chartHeight; row++ {
		label := market.FormatAmount(yToPrice(row, lo, hi, chartHeight), p.asset.Decimals)
		result.WriteString(styles.ChartAxisStyle.Render(fmt.Sprintf("%10s │", label)))
		for col, ch := range grid[row] {
			style := styles.LineDownStyle
			if styleUp[col] {
				style = styles.LineUpStyle
			}
			result.WriteString(style.Render(string(ch)))
		}
		result.WriteString("\n")
	}

	result.WriteString(styles.ChartAxisStyle.Render(strings.Repeat("─", axisWidth-1) + "┴" + strings.Repeat("─", len(pts))))
	result.WriteString("\n")

	first := time.Unix(0, pts[0].Time).Format("15:04:05")
	last := time.Unix(0, pts[len(pts)-1].Time).Format("15:04:05")
	gap := max(len(pts)-len(first)-len(last), 1)
	result.WriteString(strings.Repeat(" ", axisWidth))
	result.WriteString(styles.ChartLabelStyle.Render(first + strings.Repeat(" ", gap) + last))

	return result.String()
}

func priceToY(price, lo, hi float64, height int) int {
	if hi == lo {
		return height / 2
	}
	ratio := (hi - price) / (hi - lo)
	y := int(ratio*float64(height-1) + 0.5)
	return min(max(y, 0), height-1)
}

func yToPrice(y int, lo, hi float64, height int) float64 {
	if height <= 1 {
		return lo
	}
	ratio := float64(y) / float64(height-1)
	return hi - ratio*(hi-lo)
}

// SetFocus sets the focus state of the panel.
func (p *PriceChartPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *PriceChartPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetAsset sets the asset to chart and clears the plotted points.
func (p *PriceChartPanel) SetAsset(asset market.AssetConfig) {
	p.asset = asset
	p.points = nil
}

// SetHistory replaces the plotted points, oldest first.
func (p *PriceChartPanel) SetHistory(points []core.HistoryPoint) {
	p.points = points
}

// Asset returns the charted asset.
func (p *PriceChartPanel) Asset() market.AssetConfig {
	return p.asset
}
