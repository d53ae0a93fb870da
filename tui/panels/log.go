package panels

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/coinsim/internal/news"
	"github.com/zappabad/coinsim/tui/styles"
)

// LogPanel displays the game log, newest first.
type LogPanel struct {
	items         []news.NewsItem
	selectedIndex int
	scrollOffset  int
	focused       bool
	width         int
	height        int
}

// NewLogPanel creates a new log panel.
func NewLogPanel() *LogPanel {
	return &LogPanel{}
}

// Init initializes the panel.
func (p *LogPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *LogPanel) Update(msg tea.Msg) (*LogPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.selectedIndex > 0 {
				p.selectedIndex--
				if p.selectedIndex < p.scrollOffset {
					p.scrollOffset = p.selectedIndex
				}
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.selectedIndex < len(p.items)-1 {
				p.selectedIndex++
				visible := p.visibleItems()
				if p.selectedIndex >= p.scrollOffset+visible {
					p.scrollOffset = p.selectedIndex - visible + 1
				}
			}
		}
	}
	return p, nil
}

func (p *LogPanel) visibleItems() int {
	return max(p.height-4, 1)
}

// View renders the panel.
func (p *LogPanel) View() string {
	var content strings.Builder

	if len(p.items) == 0 {
		content.WriteString(lipgloss.NewStyle().Foreground(styles.TextMutedColor).Render("Nothing has happened yet"))
	} else {
		visible := p.visibleItems()
		start := min(p.scrollOffset, len(p.items)-1)
		end := min(start+visible, len(p.items))

		for i := start; i < end; i++ {
			item := p.items[i]

			timeStr := time.Unix(0, item.Time).Format("15:04:05")
			headline := item.Headline
			if limit := p.width - 15; limit > 3 && len(headline) > limit {
				headline = headline[:limit-3] + "..."
			}

			line := fmt.Sprintf("%s %s",
				styles.TimeStyle.Render(timeStr),
				styles.SeverityStyle(item.Severity).Render(headline))
			if i == p.selectedIndex && p.focused {
				line = styles.SelectedRowStyle.Render(line)
			}

			content.WriteString(line)
			if i < end-1 {
				content.WriteString("\n")
			}
		}

		if len(p.items) > visible {
			scrollInfo := fmt.Sprintf(" (%d/%d)", p.selectedIndex+1, len(p.items))
			content.WriteString("\n")
			content.WriteString(lipgloss.NewStyle().Foreground(styles.TextMutedColor).Render(scrollInfo))
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("📰 Game Log", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *LogPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *LogPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetItems replaces the log lines. items are newest first.
func (p *LogPanel) SetItems(items []news.NewsItem) {
	p.items = items
	if p.selectedIndex >= len(p.items) {
		p.selectedIndex = max(len(p.items)-1, 0)
	}
	if p.scrollOffset > p.selectedIndex {
		p.scrollOffset = p.selectedIndex
	}
}

// Items returns the displayed log lines.
func (p *LogPanel) Items() []news.NewsItem {
	return p.items
}
