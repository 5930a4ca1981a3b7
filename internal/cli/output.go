package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/pomidoro/pomidoro/internal/config"
	"github.com/pomidoro/pomidoro/internal/protocol"
	"github.com/pomidoro/pomidoro/internal/timefmt"
)

var (
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	breakStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func styledOutput(opts *Options) bool {
	return !opts.NoColor && term.IsTerminal(int(os.Stdout.Fd()))
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

// PhaseLabel maps a wire phase name to its display form.
func PhaseLabel(phase string) string {
	switch phase {
	case "working":
		return "work"
	case "on_break":
		return "break"
	default:
		return "idle"
	}
}

func printResponse(cfg *config.Config, cmd protocol.Command, resp *protocol.Response, opts *Options) {
	if opts.JSONOutput {
		data, err := json.Marshal(resp)
		if err == nil {
			fmt.Println(string(data))
		}
		return
	}

	switch {
	case resp.Stats != nil:
		printStats(resp.Stats)
	case resp.State != nil:
		fmt.Println(RenderState(cfg, resp.State, styledOutput(opts)))
	case cmd == protocol.CommandShutdown:
		fmt.Println("server shutting down")
	default:
		fmt.Println("ok")
	}
}

// RenderState formats one status line, e.g. "work 24:12 (running) 3%".
func RenderState(cfg *config.Config, state *protocol.StateData, styled bool) string {
	label := PhaseLabel(state.Phase)

	if state.Phase == "idle" {
		if styled {
			return idleStyle.Render("idle")
		}
		return "idle"
	}

	clockState := cfg.RunningStateText
	if state.Paused {
		clockState = cfg.PausedStateText
	}

	remaining := timefmt.Format(state.Remaining, cfg.TimeFormat)
	suffix := fmt.Sprintf("(%s) %d%%", clockState, state.Percent)

	if styled {
		return fmt.Sprintf("%s %s %s",
			phaseStyle(state.Phase).Render(label), remaining, dimStyle.Render(suffix))
	}
	return fmt.Sprintf("%s %s %s", label, remaining, suffix)
}

func printStats(stats *protocol.StatsData) {
	fmt.Printf("sessions today:   %d (%d completed)\n", stats.SessionsToday, stats.CompletedToday)
	fmt.Printf("focus time today: %s\n", timefmt.Format(stats.FocusToday, "%H:%M:%S"))
	fmt.Printf("sessions total:   %d\n", stats.TotalSessions)
}
