// Package tui is a small interactive finding pager, grounded in the
// teacher's bubbletea/lipgloss idiom (ui.Model's page navigation and
// ui.severityColor's severity palette) but scoped to one screen: a
// scrollable list of findings with a detail pane, not a full live-metrics
// TUI. Started only with --interactive; the core packages never import it.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chrono-triage/dumptriage/model"
)

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorGray   = lipgloss.Color("#6272A4")
	colorWhite  = lipgloss.Color("#F8F8F2")
	colorPanel  = lipgloss.Color("#44475A")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	critStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	infoStyle     = lipgloss.NewStyle().Foreground(colorWhite)
	dimStyle      = lipgloss.NewStyle().Foreground(colorGray)
	selectedStyle = lipgloss.NewStyle().Background(colorPanel).Foreground(colorWhite)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorGray).Padding(0, 1)
)

func severityStyle(s model.Severity) lipgloss.Style {
	switch s {
	case model.SeverityCritical:
		return critStyle
	case model.SeverityWarning:
		return warnStyle
	default:
		return infoStyle
	}
}

// Model is the bubbletea model for the finding pager.
type Model struct {
	dumpPath string
	findings []model.Finding
	cursor   int
	width    int
	height   int
	quitting bool
}

// New builds a pager over findings extracted from dumpPath.
func New(dumpPath string, findings []model.Finding) Model {
	return Model{dumpPath: dumpPath, findings: findings}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "j", "down":
			if m.cursor < len(m.findings)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "g":
			m.cursor = 0
		case "G":
			m.cursor = len(m.findings) - 1
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if len(m.findings) == 0 {
		return dimStyle.Render("no findings\n")
	}

	var list strings.Builder
	for i, f := range m.findings {
		line := fmt.Sprintf("%-8s %s", f.Severity, f.Title)
		if i == m.cursor {
			list.WriteString(selectedStyle.Render("> " + line))
		} else {
			list.WriteString(severityStyle(f.Severity).Render("  " + line))
		}
		list.WriteString("\n")
	}

	cur := m.findings[m.cursor]
	detail := titleStyle.Render(cur.Title) + "\n\n" +
		dimStyle.Render("Evidence:") + "\n" + cur.Evidence
	if cur.Recommendation != "" {
		detail += "\n\n" + dimStyle.Render("Recommendation:") + "\n" + cur.Recommendation
	}

	header := titleStyle.Render(fmt.Sprintf("dumptriage — %s", m.dumpPath))
	help := dimStyle.Render("j/k move  g/G top/bottom  q quit")

	return header + "\n\n" +
		panelStyle.Render(list.String()) + "\n" +
		panelStyle.Render(detail) + "\n" +
		help + "\n"
}

// Run starts the interactive pager over findings and blocks until the user
// quits.
func Run(dumpPath string, findings []model.Finding) error {
	_, err := tea.NewProgram(New(dumpPath, findings)).Run()
	return err
}
