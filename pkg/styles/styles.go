// Package styles defines the shared lipgloss color palette and text styles
// used by the console package and command output.
//
// All colors are adaptive so output stays readable on both light and dark
// terminal backgrounds.
package styles

import "github.com/charmbracelet/lipgloss"

// Adaptive colors shared across all rendered output.
var (
	ColorInfo    = lipgloss.AdaptiveColor{Light: "27", Dark: "39"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "166", Dark: "214"}
	ColorError   = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	ColorPurple  = lipgloss.AdaptiveColor{Light: "92", Dark: "141"}
	ColorYellow  = lipgloss.AdaptiveColor{Light: "136", Dark: "226"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "243", Dark: "245"}
)

// Reusable text styles.
var (
	Info    = lipgloss.NewStyle().Foreground(ColorInfo)
	Success = lipgloss.NewStyle().Foreground(ColorSuccess)
	Warning = lipgloss.NewStyle().Foreground(ColorWarning)
	Error   = lipgloss.NewStyle().Foreground(ColorError)
	Muted   = lipgloss.NewStyle().Foreground(ColorMuted)
	Bold    = lipgloss.NewStyle().Bold(true)
)
