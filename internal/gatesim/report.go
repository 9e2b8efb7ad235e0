package gatesim

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle = lipgloss.NewStyle().Faint(true).Width(22)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	panelStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("63"))
)

// Render formats the run statistics as two bordered panels.
func Render(stats *Stats) string {
	gates := panel("Gate events",
		row("entries", counts(stats.Entries)),
		row("exits", counts(stats.Exits)),
		row("duration", stats.Duration.Round(time.Millisecond).String()),
	)

	a, c := stats.After.Assignment, stats.After.Checkout
	garage := panel("Garage",
		row("spots", fmt.Sprintf("%d", a.TotalSpots)),
		row("occupied", fmt.Sprintf("%d (%.1f%%)", a.ByStatus["occupied"], a.OccupancyRate*100)),
		row("active sessions", fmt.Sprintf("%d", c.ActiveSessions)),
		row("completed sessions", fmt.Sprintf("%d", c.CompletedSessions)),
		row("grace exits", fmt.Sprintf("%d", c.GraceExits)),
		row("revenue", fmt.Sprintf("$%.2f", c.Revenue)),
		row("average stay", fmt.Sprintf("%.1f min", c.AverageMinutes)),
	)

	verdict := okStyle.Render("consistent")
	if len(stats.Mismatch) > 0 {
		verdict = badStyle.Render("inconsistent:\n  " + strings.Join(stats.Mismatch, "\n  "))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, gates, " ", garage),
		verdict,
	)
}

func panel(title string, rows ...string) string {
	return panelStyle.Render(titleStyle.Render(title) + "\n" + strings.Join(rows, "\n"))
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func counts(c Counts) string {
	return fmt.Sprintf("%d sent, %d accepted, %d dup, %d rejected, %d failed",
		c.Submitted, c.Accepted, c.Duplicate, c.Rejected, c.Failed)
}
