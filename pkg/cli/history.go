package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wasm-slim/wasm-slim/pkg/cicd"
	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/gitutil"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/pipeline"
)

// NewHistoryCommand creates the history command, which lists the sizes
// recorded by past builds.
func NewHistoryCommand() *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded build sizes",
		Long: `List the builds recorded in .wasm-slim/history.jsonl, oldest first,
with the size delta between consecutive builds.

Examples:
  wasm-slim history
  wasm-slim history --limit 25
  wasm-slim history --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			store := cicd.NewHistoryStore(infra.NewOSFileSystem())
			return runHistory(store, root, limit, jsonOut, os.Stdout, os.Stderr)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of builds to show, newest last")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output machine-readable JSON")

	return cmd
}

func runHistory(store *cicd.HistoryStore, root string, limit int, jsonOut bool, stdout, stderr io.Writer) error {
	history, err := store.Load(root)
	if err != nil {
		return err
	}

	records := history.Records
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	if jsonOut {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize build history: %w", err)
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}

	if len(records) == 0 {
		fmt.Fprintln(stderr, console.FormatInfoMessage("No build history yet"))
		fmt.Fprintln(stderr, "   Run 'wasm-slim build' to record the first build.")
		return nil
	}

	renderHistoryTable(stderr, records)
	renderHistoryTrend(stderr, records)
	return nil
}

func renderHistoryTable(w io.Writer, records []cicd.BuildRecord) {
	rows := make([][]string, 0, len(records))
	for i, rec := range records {
		delta := "-"
		if i > 0 {
			diff := int64(rec.SizeBytes) - int64(records[i-1].SizeBytes)
			delta = fmt.Sprintf("%+.2f KB", float64(diff)/1024)
		}
		rows = append(rows, []string{
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			pipeline.FormatBytes(rec.SizeBytes),
			delta,
			orDash(gitutil.ShortSHA(rec.Commit)),
			orDash(rec.Branch),
		})
	}

	fmt.Fprintln(w, console.RenderTable(console.TableConfig{
		Title:   "Build history",
		Headers: []string{"Time", "Size", "Delta", "Commit", "Branch"},
		Rows:    rows,
	}))
}

// renderHistoryTrend summarizes the displayed window end to end.
func renderHistoryTrend(w io.Writer, records []cicd.BuildRecord) {
	if len(records) < 2 || records[0].SizeBytes == 0 {
		return
	}

	first := records[0].SizeBytes
	last := records[len(records)-1].SizeBytes
	diff := int64(last) - int64(first)
	percent := float64(diff) / float64(first) * 100

	switch {
	case diff > 0:
		fmt.Fprintln(w, console.FormatWarningMessage(fmt.Sprintf(
			"Trend: grew %s over %d builds (%+.1f%%)", pipeline.FormatBytes(uint64(diff)), len(records), percent)))
	case diff < 0:
		fmt.Fprintln(w, console.FormatSuccessMessage(fmt.Sprintf(
			"Trend: shrank %s over %d builds (%.1f%%)", pipeline.FormatBytes(uint64(-diff)), len(records), percent)))
	default:
		fmt.Fprintln(w, console.FormatInfoMessage(fmt.Sprintf("Trend: unchanged over %d builds", len(records))))
	}
}
