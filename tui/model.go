package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/market/core"
	marketservice "github.com/zappabad/coinsim/internal/market/service"
	marketview "github.com/zappabad/coinsim/internal/market/view"
	"github.com/zappabad/coinsim/internal/trader"
	"github.com/zappabad/coinsim/tui/panels"
	"github.com/zappabad/coinsim/tui/styles"
)

// PanelFocus represents which panel is currently focused.
type PanelFocus int

const (
	FocusMarket     PanelFocus = 0
	FocusPortfolio  PanelFocus = 1
	FocusChart      PanelFocus = 2
	FocusLog        PanelFocus = 3
	FocusOrderInput PanelFocus = 4
)

const panelCount = 5

// logLines is how many log lines the log panel shows.
const logLines = 32

// Model is the main TUI application model.
type Model struct {
	marketService *marketservice.MarketService
	events        <-chan marketview.MarketEvent
	unsubscribe   func()

	assets market.Registry

	// Panels
	marketPanel     *panels.MarketOverviewPanel
	portfolioPanel  *panels.PortfolioPanel
	chartPanel      *panels.PriceChartPanel
	logPanel        *panels.LogPanel
	orderInputPanel *panels.OrderInputPanel

	focusedPanel PanelFocus

	width  int
	height int

	statusMsg string
	ready     bool

	// confirmReset is set by the first ctrl+r; a second one resets the game
	confirmReset bool
}

// NewModel creates a new TUI model subscribed to marketService. baseline is
// the starting cash the net worth is compared against.
func NewModel(marketService *marketservice.MarketService, baseline float64) *Model {
	assets := marketService.Registry()
	events, unsubscribe := marketService.Subscribe(0)

	m := &Model{
		marketService:   marketService,
		events:          events,
		unsubscribe:     unsubscribe,
		assets:          assets,
		marketPanel:     panels.NewMarketOverviewPanel(assets),
		portfolioPanel:  panels.NewPortfolioPanel(baseline),
		chartPanel:      panels.NewPriceChartPanel(),
		logPanel:        panels.NewLogPanel(),
		orderInputPanel: panels.NewOrderInputPanel(assets),
		focusedPanel:    FocusOrderInput,
	}
	if len(assets) > 0 {
		m.chartPanel.SetAsset(assets[0])
	}
	m.updateAllData()
	return m
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.marketPanel.Init(),
		m.portfolioPanel.Init(),
		m.chartPanel.Init(),
		m.logPanel.Init(),
		m.orderInputPanel.Init(),
		m.listenMarketEvents(),
		m.tickRefresh(),
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() != "ctrl+r" && m.confirmReset {
			m.confirmReset = false
			m.statusMsg = "Reset cancelled"
		}

		switch msg.String() {
		case "ctrl+c", "q":
			m.unsubscribe()
			return m, tea.Quit

		case "ctrl+r":
			if cmd := m.requestReset(); cmd != nil {
				cmds = append(cmds, cmd)
			}

		case "tab":
			m.cycleFocus(1)
		case "shift+tab":
			m.cycleFocus(-1)

		case "f1":
			m.setFocus(FocusMarket)
		case "f2":
			m.setFocus(FocusPortfolio)
		case "f3":
			m.setFocus(FocusChart)
		case "f4":
			m.setFocus(FocusLog)
		case "f5":
			m.setFocus(FocusOrderInput)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case panels.MarketUpdateMsg:
		m.handleMarketUpdate(msg)
		cmds = append(cmds, m.listenMarketEvents())

	case panels.AssetSelectedMsg:
		m.selectAsset(msg.Symbol)

	case panels.OrderSubmitMsg:
		cmds = append(cmds, m.submitOrder(msg))

	case panels.OrderInvalidMsg:
		m.statusMsg = "❌ " + msg.Reason

	case orderResultMsg:
		m.statusMsg = msg.message
		if msg.ok {
			m.orderInputPanel.Reset()
		}
		m.updateAllData()

	case tickMsg:
		m.updateAllData()
		cmds = append(cmds, m.tickRefresh())
	}

	m.updateFocusedPanel(msg, &cmds)

	return m, tea.Batch(cmds...)
}

func (m *Model) updateFocusedPanel(msg tea.Msg, cmds *[]tea.Cmd) {
	var cmd tea.Cmd

	switch m.focusedPanel {
	case FocusMarket:
		m.marketPanel, cmd = m.marketPanel.Update(msg)
	case FocusPortfolio:
		m.portfolioPanel, cmd = m.portfolioPanel.Update(msg)
	case FocusChart:
		m.chartPanel, cmd = m.chartPanel.Update(msg)
	case FocusLog:
		m.logPanel, cmd = m.logPanel.Update(msg)
	case FocusOrderInput:
		m.orderInputPanel, cmd = m.orderInputPanel.Update(msg)
	}

	if cmd != nil {
		*cmds = append(*cmds, cmd)
	}
}

// View renders the UI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	m.marketPanel.SetFocus(m.focusedPanel == FocusMarket)
	m.portfolioPanel.SetFocus(m.focusedPanel == FocusPortfolio)
	m.chartPanel.SetFocus(m.focusedPanel == FocusChart)
	m.logPanel.SetFocus(m.focusedPanel == FocusLog)
	m.orderInputPanel.SetFocus(m.focusedPanel == FocusOrderInput)

	// Layout:
	// ┌───────────────────┬─────────────────────────┐
	// │  Market Overview  │                         │
	// ├───────────────────┤          Chart          │
	// │     Portfolio     │                         │
	// ├───────────────────┼─────────────────────────┤
	// │      Game Log     │       Order Entry       │
	// └───────────────────┴─────────────────────────┘

	leftWidth := m.width * 2 / 5
	rightWidth := m.width - leftWidth

	topHeight := (m.height - 1) * 3 / 5
	bottomHeight := m.height - 1 - topHeight
	marketHeight := topHeight / 2
	portfolioHeight := topHeight - marketHeight

	m.marketPanel.SetSize(leftWidth, marketHeight)
	m.portfolioPanel.SetSize(leftWidth, portfolioHeight)
	m.chartPanel.SetSize(rightWidth, topHeight)

	left := lipgloss.JoinVertical(lipgloss.Left, m.marketPanel.View(), m.portfolioPanel.View())
	topRow := lipgloss.JoinHorizontal(lipgloss.Top, left, m.chartPanel.View())

	m.logPanel.SetSize(leftWidth, bottomHeight)
	m.orderInputPanel.SetSize(rightWidth, bottomHeight)

	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.logPanel.View(),
		m.orderInputPanel.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left, topRow, bottomRow, m.renderStatusBar())
}

func (m *Model) renderStatusBar() string {
	help := []string{
		styles.StatusBarKeyStyle.Render("F1-F5") + styles.StatusBarDescStyle.Render(" panels"),
		styles.StatusBarKeyStyle.Render("Tab") + styles.StatusBarDescStyle.Render(" cycle"),
		styles.StatusBarKeyStyle.Render("←→↑↓") + styles.StatusBarDescStyle.Render(" select"),
		styles.StatusBarKeyStyle.Render("ctrl+r") + styles.StatusBarDescStyle.Render(" reset"),
		styles.StatusBarKeyStyle.Render("q") + styles.StatusBarDescStyle.Render(" quit"),
	}

	helpStr := lipgloss.JoinHorizontal(lipgloss.Center,
		help[0], " │ ", help[1], " │ ", help[2], " │ ", help[3], " │ ", help[4])

	status := ""
	if m.statusMsg != "" {
		status = " │ " + m.statusMsg
	}

	return styles.StatusBarStyle.Width(m.width).Render(helpStr + status)
}

func (m *Model) setFocus(panel PanelFocus) {
	m.focusedPanel = panel
}

func (m *Model) cycleFocus(step int) {
	m.focusedPanel = PanelFocus((int(m.focusedPanel) + step + panelCount) % panelCount)
}

func (m *Model) selectAsset(sym market.Symbol) {
	asset, ok := m.assets.Lookup(sym)
	if !ok {
		return
	}
	m.chartPanel.SetAsset(asset)
	m.orderInputPanel.SetAsset(sym)
	m.chartPanel.SetHistory(m.marketService.View().History(sym, 0))
}

func (m *Model) handleMarketUpdate(msg panels.MarketUpdateMsg) {
	switch msg.Event.Event.(type) {
	case core.DepletionEvent, core.DumpEvent, core.CrashEvent, core.HypeEvent:
		m.statusMsg = fmt.Sprintf("⚡ %s", msg.Event.Kind())
	case core.ResetEvent:
		m.statusMsg = "Game reset"
	}
	m.updateAllData()
}

func (m *Model) updateAllData() {
	snap := m.marketService.Snapshot()
	m.marketPanel.SetSnapshot(snap)
	m.portfolioPanel.SetSnapshot(snap)
	m.logPanel.SetItems(m.marketService.View().Log(logLines))

	if sym := m.chartPanel.Asset().Symbol; sym != "" {
		m.chartPanel.SetHistory(m.marketService.View().History(sym, 0))
	}
}

func (m *Model) submitOrder(order panels.OrderSubmitMsg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		var (
			report core.TradeReport
			err    error
		)
		if order.Side == trader.SideBuy {
			report, err = m.marketService.Buy(ctx, order.Symbol, order.Amount)
		} else {
			report, err = m.marketService.Sell(ctx, order.Symbol, order.Amount)
		}
		if err != nil {
			return orderResultMsg{message: "❌ Order failed: " + err.Error()}
		}

		verb := "Bought"
		if order.Side == trader.SideSell {
			verb = "Sold"
		}
		text := fmt.Sprintf("✓ %s %s %s for %s", verb,
			market.FormatAmount(report.Filled, 6), report.Symbol, styles.FormatUSD(report.Value))
		if report.Partial {
			text += " (partial fill)"
		}
		return orderResultMsg{message: text, ok: true}
	}
}

// requestReset asks for confirmation on the first press and returns the reset
// command on the second.
func (m *Model) requestReset() tea.Cmd {
	if !m.confirmReset {
		m.confirmReset = true
		m.statusMsg = "Restart game? All progress will be lost. Press ctrl+r again to confirm."
		return nil
	}
	m.confirmReset = false
	return m.resetGame()
}

func (m *Model) resetGame() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.marketService.Reset(ctx); err != nil {
			return orderResultMsg{message: "❌ Reset failed: " + err.Error()}
		}
		return orderResultMsg{message: "Game reset"}
	}
}

func (m *Model) listenMarketEvents() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return panels.MarketUpdateMsg{Event: ev}
	}
}

// tickMsg is sent periodically to refresh data.
type tickMsg struct{}

func (m *Model) tickRefresh() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

// orderResultMsg is sent after an order or reset is processed.
type orderResultMsg struct {
	message string
	ok      bool
}
