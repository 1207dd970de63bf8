package pipeline

import (
	"fmt"
	"io"

	"github.com/wasm-slim/wasm-slim/pkg/console"
)

// WriteSummary renders the closing size report of a successful build.
func WriteSummary(w io.Writer, metrics SizeMetrics) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, console.FormatInfoMessage("Build summary"))
	fmt.Fprintf(w, "   → Before: %s\n", FormatBytes(metrics.BeforeBytes))
	fmt.Fprintf(w, "   → After:  %s\n", FormatBytes(metrics.AfterBytes))

	if reduction := metrics.ReductionBytes(); reduction > 0 {
		fmt.Fprintf(w, "   → Saved:  %s (%.1f%% reduction)\n", FormatBytes(uint64(reduction)), metrics.ReductionPercent())
	} else {
		fmt.Fprintln(w, "   → No size reduction")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, console.FormatSuccessMessage("Build complete"))
}
