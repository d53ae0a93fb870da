package panels

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/trader"
	"github.com/zappabad/coinsim/tui/styles"
)

// OrderInputField represents the currently focused input field.
type OrderInputField int

const (
	FieldAsset OrderInputField = iota
	FieldSide
	FieldAmount
	FieldSubmit
)

var sides = []trader.Side{trader.SideBuy, trader.SideSell}

// OrderInputPanel handles order entry against the market.
type OrderInputPanel struct {
	assets      market.Registry
	assetIndex  int
	sideIndex   int
	amountInput textinput.Model

	currentField OrderInputField

	focused bool
	width   int
	height  int
}

// NewOrderInputPanel creates a new order input panel.
func NewOrderInputPanel(assets market.Registry) *OrderInputPanel {
	amountInput := textinput.New()
	amountInput.Placeholder = "Amount"
	amountInput.Width = 14
	amountInput.CharLimit = 20

	return &OrderInputPanel{
		assets:       assets,
		amountInput:  amountInput,
		currentField: FieldAmount,
	}
}

// Init initializes the panel.
func (p *OrderInputPanel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the panel.
func (p *OrderInputPanel) Update(msg tea.Msg) (*OrderInputPanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("down"))):
			p.nextField()
			return p, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("up"))):
			p.prevField()
			return p, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
			if p.currentField == FieldSubmit || p.currentField == FieldAmount {
				return p, p.submitOrder()
			}
			p.nextField()
			return p, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("left"))):
			switch p.currentField {
			case FieldAsset:
				p.assetIndex = max(p.assetIndex-1, 0)
				return p, nil
			case FieldSide:
				p.sideIndex = max(p.sideIndex-1, 0)
				return p, nil
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("right"))):
			switch p.currentField {
			case FieldAsset:
				p.assetIndex = min(p.assetIndex+1, len(p.assets)-1)
				return p, nil
			case FieldSide:
				p.sideIndex = min(p.sideIndex+1, len(sides)-1)
				return p, nil
			}
		}
	}

	var cmd tea.Cmd
	if p.currentField == FieldAmount {
		p.amountInput, cmd = p.amountInput.Update(msg)
	}
	return p, cmd
}

// View renders the panel.
func (p *OrderInputPanel) View() string {
	var content strings.Builder

	content.WriteString(p.renderField("Asset", FieldAsset, p.renderAssetField()))
	content.WriteString("\n")
	content.WriteString(p.renderField("Side", FieldSide, p.renderSideField()))
	content.WriteString("\n")

	inputStyle := styles.InputStyle
	if p.currentField == FieldAmount && p.focused {
		inputStyle = styles.FocusedInputStyle
	}
	content.WriteString(p.renderField("Amount", FieldAmount, inputStyle.Render(p.amountInput.View())))
	content.WriteString("\n\n")

	submitStyle := styles.InputStyle
	if p.currentField == FieldSubmit && p.focused {
		submitStyle = styles.FocusedInputStyle.Bold(true).Foreground(styles.PrimaryColor)
	}
	content.WriteString(submitStyle.Render("  [Submit Order]  "))

	content.WriteString("\n\n")
	content.WriteString(p.renderOrderSummary())

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("📝 Order Entry", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *OrderInputPanel) renderField(label string, field OrderInputField, inputView string) string {
	labelStyle := styles.LabelStyle
	if p.currentField == field && p.focused {
		labelStyle = labelStyle.Foreground(styles.PrimaryColor)
	}
	return labelStyle.Render(fmt.Sprintf("%-8s", label)) + inputView
}

func (p *OrderInputPanel) optionStyle(field OrderInputField, selected bool) lipgloss.Style {
	if !selected {
		return styles.OptionStyle
	}
	if p.currentField == field && p.focused {
		return styles.OptionSelectedStyle
	}
	return styles.OptionStyle.Bold(true)
}

func (p *OrderInputPanel) renderAssetField() string {
	items := make([]string, len(p.assets))
	for i, a := range p.assets {
		items[i] = p.optionStyle(FieldAsset, i == p.assetIndex).Render(string(a.Symbol))
	}
	return strings.Join(items, " | ")
}

func (p *OrderInputPanel) renderSideField() string {
	items := make([]string, len(sides))
	for i, s := range sides {
		style := p.optionStyle(FieldSide, i == p.sideIndex)
		if i == p.sideIndex {
			if s == trader.SideBuy {
				style = style.Foreground(styles.BuyColor)
			} else {
				style = style.Foreground(styles.SellColor)
			}
		}
		items[i] = style.Render(s.String())
	}
	return strings.Join(items, " | ")
}

func (p *OrderInputPanel) renderOrderSummary() string {
	sym := "---"
	if a, ok := p.SelectedAsset(); ok {
		sym = string(a.Symbol)
	}

	side := sides[p.sideIndex]
	sideStyle := styles.BuyStyle
	if side == trader.SideSell {
		sideStyle = styles.SellStyle
	}

	amount := p.amountInput.Value()
	if amount == "" {
		amount = "0"
	}
	return styles.HeaderStyle.Render("Order: ") + strings.Join([]string{sideStyle.Render(side.String()), amount, sym}, " ")
}

func (p *OrderInputPanel) nextField() {
	p.currentField = (p.currentField + 1) % (FieldSubmit + 1)
	p.syncInputFocus()
}

func (p *OrderInputPanel) prevField() {
	p.currentField = (p.currentField + FieldSubmit) % (FieldSubmit + 1)
	p.syncInputFocus()
}

func (p *OrderInputPanel) syncInputFocus() {
	if p.focused && p.currentField == FieldAmount {
		p.amountInput.Focus()
	} else {
		p.amountInput.Blur()
	}
}

// parseAmount accepts plain and comma-grouped decimals.
func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("amount must be positive, got %q", s)
	}
	return v, nil
}

func (p *OrderInputPanel) submitOrder() tea.Cmd {
	asset, ok := p.SelectedAsset()
	if !ok {
		return nil
	}
	amount, err := parseAmount(p.amountInput.Value())
	if err != nil {
		return func() tea.Msg { return OrderInvalidMsg{Reason: err.Error()} }
	}
	side := sides[p.sideIndex]

	return func() tea.Msg {
		return OrderSubmitMsg{
			Symbol: asset.Symbol,
			Side:   side,
			Amount: amount,
		}
	}
}

// SelectedAsset returns the asset the order is for.
func (p *OrderInputPanel) SelectedAsset() (market.AssetConfig, bool) {
	if p.assetIndex >= 0 && p.assetIndex < len(p.assets) {
		return p.assets[p.assetIndex], true
	}
	return market.AssetConfig{}, false
}

// SetFocus sets the focus state of the panel.
func (p *OrderInputPanel) SetFocus(focused bool) {
	p.focused = focused
	p.syncInputFocus()
}

// SetSize sets the panel dimensions.
func (p *OrderInputPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetAsset preselects sym.
func (p *OrderInputPanel) SetAsset(sym market.Symbol) {
	for i, a := range p.assets {
		if a.Symbol == sym {
			p.assetIndex = i
			return
		}
	}
}

// Reset clears the amount and returns to the amount field.
func (p *OrderInputPanel) Reset() {
	p.amountInput.SetValue("")
	p.currentField = FieldAmount
	p.syncInputFocus()
}

// OrderSubmitMsg is sent when an order is submitted.
type OrderSubmitMsg struct {
	Symbol market.Symbol
	Side   trader.Side
	Amount float64
}

// OrderInvalidMsg is sent when the entered order cannot be submitted.
type OrderInvalidMsg struct {
	Reason string
}
