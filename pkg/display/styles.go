package display

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"

	"github.com/znichollscr/pydoit-nb/pkg/runner"
)

// Colors adapt to light and dark terminals.
var (
	HeadingColor = lipgloss.AdaptiveColor{
		Light: "#212529",
		Dark:  "#F8F9FA",
	}

	MutedColor = lipgloss.AdaptiveColor{
		Light: "#6C757D",
		Dark:  "#ADB5BD",
	}

	SuccessColor = lipgloss.AdaptiveColor{
		Light: "#28A745",
		Dark:  "#4CDD76",
	}

	ErrorColor = lipgloss.AdaptiveColor{
		Light: "#DC3545",
		Dark:  "#FF6B7D",
	}

	PathColor = lipgloss.AdaptiveColor{
		Light: "#007ACC",
		Dark:  "#3D9EFF",
	}
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(HeadingColor).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	PathStyle = lipgloss.NewStyle().
			Foreground(PathColor).
			Italic(true)
)

// StatusStyle returns the pterm style used for a run status.
func StatusStyle(status runner.Status) *pterm.Style {
	switch status {
	case runner.StatusRan:
		return pterm.NewStyle(pterm.FgGreen)
	case runner.StatusUpToDate:
		return pterm.NewStyle(pterm.FgCyan)
	case runner.StatusFailed:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	case runner.StatusSkipped:
		return pterm.NewStyle(pterm.FgYellow)
	case runner.StatusDryRun:
		return pterm.NewStyle(pterm.FgMagenta)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}
