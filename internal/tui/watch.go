// Package tui implements the live watch view: a terminal countdown that
// polls the daemon once a second and renders the current phase with a
// progress bar.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pomidoro/pomidoro/internal/client"
	"github.com/pomidoro/pomidoro/internal/config"
	"github.com/pomidoro/pomidoro/internal/protocol"
	"github.com/pomidoro/pomidoro/internal/timefmt"
)

const pollInterval = 1 * time.Second

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	workingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	breakStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type tickMsg time.Time

type statusMsg struct {
	state *protocol.StateData
	err   error
}

// Model is the bubbletea model for the watch view.
type Model struct {
	cfg    *config.Config
	client *client.Client

	state *protocol.StateData
	err   error

	bar   progress.Model
	width int
}

// NewModel creates the watch model.
func NewModel(cfg *config.Config, c *client.Client) Model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40
	return Model{
		cfg:    cfg,
		client: c,
		bar:    bar,
	}
}

// Run polls the daemon until the user quits.
func Run(cfg *config.Config, c *client.Client) error {
	p := tea.NewProgram(NewModel(cfg, c))
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), tick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 8; w > 10 && w < 60 {
			m.bar.Width = w
		}

	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), tick())

	case statusMsg:
		m.state = msg.state
		m.err = msg.err
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("pomidoro"))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render(fmt.Sprintf("cannot reach server: %v", m.err)))
		b.WriteString("\n")

	case m.state == nil:
		b.WriteString(idleStyle.Render("connecting..."))
		b.WriteString("\n")

	case m.state.Phase == "idle":
		b.WriteString(idleStyle.Render("idle - press 'pomidoro start' to begin"))
		b.WriteString("\n")

	default:
		clockState := m.cfg.RunningStateText
		if m.state.Paused {
			clockState = m.cfg.PausedStateText
		}
		b.WriteString(fmt.Sprintf("%s  %s  %s\n\n",
			phaseStyle(m.state.Phase).Render(phaseLabel(m.state.Phase)),
			timefmt.Format(m.state.Remaining, m.cfg.TimeFormat),
			idleStyle.Render("("+clockState+")"),
		))
		b.WriteString(m.bar.ViewAs(float64(m.state.Percent) / 100))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q: quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) fetchStatus() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		resp, err := c.Send(protocol.CommandStatus)
		if err != nil {
			return statusMsg{err: err}
		}
		if resp.Error != nil {
			return statusMsg{err: fmt.Errorf("%s", resp.Error.Kind)}
		}
		return statusMsg{state: resp.State}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func phaseLabel(phase string) string {
	switch phase {
	case "working":
		return "work"
	case "on_break":
		return "break"
	default:
		return phase
	}
}

func phaseStyle(phase string) lipgloss.Style {
	switch phase {
	case "working":
		return workingStyle
	case "on_break":
		return breakStyle
	default:
		return idleStyle
	}
}
