// Layout helpers for composing multi-section command output.
//
// # Organization Rationale
//
// The Layout* functions are pure: they return styled strings the caller
// composes with LayoutJoinVertical and prints once. The older Render*Box
// helpers return line slices and remain for callers that post-process
// individual lines. Both families gate styling on TTY detection so piped
// output stays plain.

package console

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wasm-slim/wasm-slim/pkg/styles"
	"github.com/wasm-slim/wasm-slim/pkg/tty"
)

// LayoutTitleBox renders a prominent title banner constrained to width.
func LayoutTitleBox(title string, width int) string {
	if !tty.IsStderrTerminal() {
		separator := strings.Repeat("=", width)
		return separator + "\n" + title + "\n" + separator
	}

	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.ColorInfo).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.ColorInfo).
		Padding(0, 1).
		Width(width)
	return style.Render(title)
}

// LayoutInfoSection renders one "Label: value" line with an emphasized label.
func LayoutInfoSection(label, value string) string {
	return styles.Bold.Render(label+":") + " " + value
}

// LayoutEmphasisBox renders content inside a colored border for messages that
// must not be missed.
func LayoutEmphasisBox(content string, color lipgloss.AdaptiveColor) string {
	if !tty.IsStderrTerminal() {
		return content
	}

	style := lipgloss.NewStyle().
		Foreground(color).
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(color).
		Padding(0, 1)
	return style.Render(content)
}

// LayoutJoinVertical joins sections with newlines. Empty input joins to "".
func LayoutJoinVertical(sections ...string) string {
	if len(sections) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// RenderTitleBox renders a title banner as individual lines.
func RenderTitleBox(title string, width int) []string {
	return strings.Split(LayoutTitleBox(title, width), "\n")
}

// RenderErrorBox renders a highly visible error banner as individual lines.
func RenderErrorBox(title string) []string {
	return strings.Split(LayoutEmphasisBox(title, styles.ColorError), "\n")
}

// RenderInfoSection renders free-form informational content as indented lines.
func RenderInfoSection(content string) []string {
	lines := strings.Split(content, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = "  " + line
	}
	return out
}

// RenderComposedSections prints pre-rendered sections to stderr, blank-line
// separated.
func RenderComposedSections(sections ...[]string) {
	for i, section := range sections {
		if i > 0 {
			fmt.Fprintln(os.Stderr)
		}
		for _, line := range section {
			fmt.Fprintln(os.Stderr, line)
		}
	}
}
