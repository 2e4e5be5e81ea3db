package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)
)

func Heading(title string) string {
	return Title.Render(title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// RankBadge colors a hunter rank letter.
func RankBadge(rank string) string {
	switch rank {
	case "S":
		return Gold.Render("[S]")
	case "A", "B":
		return Good.Render("[" + rank + "]")
	case "C", "D":
		return H2.Render("[" + rank + "]")
	default:
		return Muted.Render("[" + rank + "]")
	}
}

// Signed renders an XP amount green when positive and red when negative.
func Signed(n int) string {
	switch {
	case n > 0:
		return Good.Render(fmt.Sprintf("+%d", n))
	case n < 0:
		return Bad.Render(fmt.Sprintf("%d", n))
	default:
		return Muted.Render("0")
	}
}

// Bar draws a fixed width progress bar for percent in [0,100].
func Bar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(percent / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return Good.Render(strings.Repeat("█", filled)) + Muted.Render(strings.Repeat("░", width-filled))
}
