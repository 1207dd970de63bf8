package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/pipeline"
)

// toolReportEntry is the JSON shape of one probed tool.
type toolReportEntry struct {
	Name       string `json:"name"`
	Binary     string `json:"binary"`
	Required   bool   `json:"required"`
	Installed  bool   `json:"installed"`
	Version    string `json:"version,omitempty"`
	MinVersion string `json:"min_version,omitempty"`
	MeetsMin   bool   `json:"meets_min"`
}

// NewToolsCommand creates the tools command, which probes the external
// build tools.
func NewToolsCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Check which build tools are installed",
		Long: `Probe the toolchain the build pipeline shells out to and report
each tool's version against the minimum the pipeline was tested with.

Exits non-zero when a required tool is missing.

Examples:
  wasm-slim tools
  wasm-slim tools --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chain := pipeline.NewToolChain(infra.NewOSRunner())
			return runTools(cmd.Context(), chain, jsonOut, os.Stdout, os.Stderr)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output machine-readable JSON")

	return cmd
}

func runTools(ctx context.Context, chain *pipeline.ToolChain, jsonOut bool, stdout, stderr io.Writer) error {
	spinner := console.NewSpinner("Checking toolchain...")
	spinner.Start()
	statuses := chain.CheckAll(ctx)
	spinner.Stop()

	if jsonOut {
		if err := renderToolsJSON(stdout, statuses); err != nil {
			return err
		}
	} else {
		renderToolsTable(stderr, statuses)
	}

	for _, status := range statuses {
		if status.Tool.Required && !status.Installed {
			return &pipeline.ToolMissingError{Tool: status.Tool.Name}
		}
	}
	return nil
}

func renderToolsJSON(w io.Writer, statuses []pipeline.ToolStatus) error {
	entries := make([]toolReportEntry, 0, len(statuses))
	for _, status := range statuses {
		entries = append(entries, toolReportEntry{
			Name:       status.Tool.Name,
			Binary:     status.Tool.Binary,
			Required:   status.Tool.Required,
			Installed:  status.Installed,
			Version:    status.Version,
			MinVersion: status.Tool.MinVersion,
			MeetsMin:   status.MeetsMin,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize tool report: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func renderToolsTable(w io.Writer, statuses []pipeline.ToolStatus) {
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{
			status.Tool.Name,
			yesNo(status.Tool.Required),
			yesNo(status.Installed),
			orDash(status.Version),
			orDash(status.Tool.MinVersion),
			toolStatusLabel(status),
		})
	}

	fmt.Fprintln(w, console.RenderTable(console.TableConfig{
		Title:   "WASM toolchain",
		Headers: []string{"Tool", "Required", "Installed", "Version", "Minimum", "Status"},
		Rows:    rows,
	}))

	missing := missingTools(statuses)
	if len(missing) == 0 {
		fmt.Fprintln(w, console.FormatSuccessMessage("All tools installed"))
		return
	}

	fmt.Fprintln(w, console.FormatWarningMessage(fmt.Sprintf("%d tool(s) missing", len(missing))))
	for _, tool := range missing {
		fmt.Fprintln(w, console.FormatListItem(fmt.Sprintf("Install %s with: %s", tool.Name, pipeline.InstallHint(tool.Binary))))
	}
}

func toolStatusLabel(status pipeline.ToolStatus) string {
	switch {
	case !status.Installed && status.Tool.Required:
		return "missing"
	case !status.Installed:
		return "missing (optional)"
	case !status.MeetsMin:
		return "below minimum"
	default:
		return "ok"
	}
}

func missingTools(statuses []pipeline.ToolStatus) []pipeline.ToolDescriptor {
	var missing []pipeline.ToolDescriptor
	for _, status := range statuses {
		if !status.Installed {
			missing = append(missing, status.Tool)
		}
	}
	return missing
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
