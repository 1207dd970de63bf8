// Package console renders all user-facing terminal output: status messages,
// diagnostics, tables, trees, boxed layouts and progress spinners.
//
// Everything here writes to stderr so stdout stays reserved for machine
// output (--json). Styling degrades automatically when stderr is not a
// terminal, and emoji are replaced with ASCII when NO_EMOJI is set.
package console

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wasm-slim/wasm-slim/pkg/styles"
)

// Position locates a diagnostic inside a source file.
type Position struct {
	File   string
	Line   int
	Column int
}

// Diagnostic is a file-anchored error or warning, typically produced while
// parsing or editing a manifest.
type Diagnostic struct {
	Position Position
	Type     string // "error" or "warning"
	Message  string
	Hint     string
	Context  []string // surrounding source lines, centered on Position.Line
}

// FormatDiagnostic renders a diagnostic in the familiar
// "file:line:column: type: message" shape, followed by numbered context
// lines when present. Absolute file paths are shown relative to the current
// directory.
func FormatDiagnostic(d Diagnostic) string {
	var b strings.Builder

	typeWord := d.Type
	switch d.Type {
	case "error":
		typeWord = styles.Error.Render(d.Type)
	case "warning":
		typeWord = styles.Warning.Render(d.Type)
	}

	b.WriteString(fmt.Sprintf("%s:%d:%d: %s: %s\n",
		ToRelativePath(d.Position.File), d.Position.Line, d.Position.Column, typeWord, d.Message))

	// Context lines are numbered so the reported line sits in the middle.
	if len(d.Context) > 0 {
		start := d.Position.Line - len(d.Context)/2
		if start < 1 {
			start = 1
		}
		for i, line := range d.Context {
			b.WriteString(fmt.Sprintf("  %d | %s\n", start+i, line))
		}
	}

	return b.String()
}

// FormatErrorWithSuggestions renders a failure message followed by a bulleted
// list of next steps.
func FormatErrorWithSuggestions(message string, suggestions []string) string {
	var b strings.Builder
	b.WriteString(FormatErrorMessage(message))
	b.WriteString("\n")

	if len(suggestions) > 0 {
		b.WriteString("Suggestions:\n")
		for _, s := range suggestions {
			b.WriteString(fmt.Sprintf("  • %s\n", s))
		}
	}

	return b.String()
}

func emojiEnabled() bool {
	return os.Getenv("NO_EMOJI") == ""
}

func icon(emoji, ascii string) string {
	if emojiEnabled() {
		return emoji
	}
	return ascii
}

// FormatInfoMessage formats an informational status line.
func FormatInfoMessage(message string) string {
	return styles.Info.Render(icon("ℹ", "i")) + " " + message
}

// FormatSuccessMessage formats a success status line.
func FormatSuccessMessage(message string) string {
	return styles.Success.Render(icon("✓", "OK")) + " " + message
}

// FormatWarningMessage formats a warning status line.
func FormatWarningMessage(message string) string {
	return styles.Warning.Render(icon("⚠", "!")) + " " + message
}

// FormatErrorMessage formats a failure status line.
func FormatErrorMessage(message string) string {
	return styles.Error.Render(icon("✗", "X")) + " " + message
}

// FormatLocationMessage formats a line pointing at a file or directory.
func FormatLocationMessage(message string) string {
	return icon("📁", ">") + " " + message
}

// FormatProgressMessage formats a line describing in-flight work. Used as the
// plain fallback when the spinner cannot animate.
func FormatProgressMessage(message string) string {
	return icon("⏳", "...") + " " + message
}

// FormatCommandMessage formats a shell command the user can run themselves.
func FormatCommandMessage(command string) string {
	return styles.Muted.Render("$ " + command)
}

// FormatListItem formats one entry of a bulleted list.
func FormatListItem(item string) string {
	return "  • " + item
}

// FormatVerboseMessage formats detail output shown only with --verbose.
func FormatVerboseMessage(message string) string {
	return styles.Muted.Render(message)
}

// LogVerbose prints message to stderr when verbose is set.
func LogVerbose(verbose bool, message string) {
	if verbose {
		fmt.Fprintln(os.Stderr, FormatVerboseMessage(message))
	}
}

// IsAccessibleMode reports whether accessible (screen-reader friendly) output
// was requested via the ACCESSIBLE environment variable. Interactive forms
// and spinners switch to static output when set.
func IsAccessibleMode() bool {
	return os.Getenv("ACCESSIBLE") != ""
}

// ToRelativePath converts an absolute path to one relative to the current
// working directory. Relative paths pass through unchanged, as does any path
// that cannot be made relative.
func ToRelativePath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil {
		return path
	}
	return rel
}

// FormatFileSize renders a byte count with 1024-based units.
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGT"[exp])
}

// FormatNumber renders a count in compact form: 999, 1.00k, 12.3k, 123k,
// 1.00M, 1.00B.
func FormatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	value := float64(n)
	suffix := "k"
	switch {
	case n >= 1000000000:
		value /= 1000000000
		suffix = "B"
	case n >= 1000000:
		value /= 1000000
		suffix = "M"
	default:
		value /= 1000
	}

	switch {
	case value < 10:
		return fmt.Sprintf("%.2f%s", value, suffix)
	case value < 100:
		return fmt.Sprintf("%.1f%s", value, suffix)
	default:
		return fmt.Sprintf("%.0f%s", value, suffix)
	}
}

// RenderJSON marshals v with two-space indentation for --json output.
func RenderJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	return string(data), nil
}
