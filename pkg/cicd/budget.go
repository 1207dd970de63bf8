// Package cicd provides the continuous-integration surface: size budget
// enforcement with configurable thresholds, build history with regression
// detection, machine-readable JSON reports, and generation of the GitHub
// Actions workflow that runs the budget check on every push.
package cicd

import (
	"fmt"
	"io"

	"github.com/wasm-slim/wasm-slim/pkg/config"
	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/styles"
)

// BudgetStatus classifies a measured artifact size against the configured
// thresholds. The string values appear verbatim in JSON reports.
type BudgetStatus string

const (
	// StatusUnderTarget means the size is at or below the aspirational target.
	StatusUnderTarget BudgetStatus = "under_target"
	// StatusAboveTarget means the size exceeds the target but stays within
	// every enforced threshold.
	StatusAboveTarget BudgetStatus = "above_target"
	// StatusWarning means the size crossed the warning threshold.
	StatusWarning BudgetStatus = "warning"
	// StatusOverBudget means the size exceeds the hard maximum. This is the
	// only status that fails a build.
	StatusOverBudget BudgetStatus = "over_budget"
)

// BudgetResult is the outcome of one budget check.
type BudgetResult struct {
	Status BudgetStatus
	// SizeKB is the measured artifact size in KB.
	SizeKB float64
	// Threshold fields echo the budget the check ran against, nil when unset.
	TargetKB        *uint64
	WarnThresholdKB *uint64
	MaxSizeKB       *uint64
	// Message is a one-line explanation of the status.
	Message string
}

// Passed reports whether the build may proceed. Every status except
// over_budget passes.
func (r BudgetResult) Passed() bool {
	return r.Status != StatusOverBudget
}

// ExitCode returns the process exit code CI should use for this result.
// Warnings still exit 0 so they never break a pipeline.
func (r BudgetResult) ExitCode() int {
	if r.Status == StatusOverBudget {
		return 1
	}
	return 0
}

// Render writes the human-readable budget block to w: a status headline, the
// message, then one line per configured threshold.
func (r BudgetResult) Render(w io.Writer) {
	head := fmt.Sprintf("Size Budget Check: %.2f KB", r.SizeKB)
	switch r.Status {
	case StatusOverBudget:
		head = console.FormatErrorMessage(head)
	case StatusWarning:
		head = console.FormatWarningMessage(head)
	default:
		head = console.FormatSuccessMessage(head)
	}
	fmt.Fprintf(w, "\n%s\n", head)
	fmt.Fprintf(w, "   %s\n", r.Message)

	if r.TargetKB != nil {
		line := fmt.Sprintf("Target: %d KB", *r.TargetKB)
		if r.SizeKB <= float64(*r.TargetKB) {
			line = styles.Success.Render(line)
		} else {
			line = styles.Muted.Render(line)
		}
		fmt.Fprintf(w, "   %s\n", line)
	}
	if r.WarnThresholdKB != nil {
		line := fmt.Sprintf("Warning: %d KB", *r.WarnThresholdKB)
		if r.Status == StatusWarning {
			line = styles.Warning.Render(line)
		} else {
			line = styles.Muted.Render(line)
		}
		fmt.Fprintf(w, "   %s\n", line)
	}
	if r.MaxSizeKB != nil {
		if r.Status == StatusOverBudget {
			fmt.Fprintf(w, "   %s\n", styles.Error.Render(fmt.Sprintf("Max: %d KB (EXCEEDED)", *r.MaxSizeKB)))
		} else {
			fmt.Fprintf(w, "   %s\n", styles.Muted.Render(fmt.Sprintf("Max: %d KB", *r.MaxSizeKB)))
		}
	}
}

// BudgetChecker evaluates artifact sizes against a three-tier size budget:
// an aspirational target, a warning threshold, and a hard maximum. Only the
// maximum fails a build; the other tiers inform.
type BudgetChecker struct {
	budget config.SizeBudget
}

// NewBudgetChecker returns a checker for the given thresholds. Any subset of
// the tiers may be set.
func NewBudgetChecker(budget config.SizeBudget) *BudgetChecker {
	return &BudgetChecker{budget: budget}
}

// Check classifies sizeBytes against the configured thresholds.
func (c *BudgetChecker) Check(sizeBytes uint64) BudgetResult {
	sizeKB := float64(sizeBytes) / 1024
	status := c.status(sizeKB)
	return BudgetResult{
		Status:          status,
		SizeKB:          sizeKB,
		TargetKB:        c.budget.TargetSizeKB,
		WarnThresholdKB: c.budget.WarnThresholdKB,
		MaxSizeKB:       c.budget.MaxSizeKB,
		Message:         c.message(status, sizeKB),
	}
}

// status applies the tiers in severity order. Sitting exactly on a threshold
// always counts as within it, so an artifact of exactly max_size_kb passes.
func (c *BudgetChecker) status(sizeKB float64) BudgetStatus {
	b := c.budget
	switch {
	case b.MaxSizeKB != nil && sizeKB > float64(*b.MaxSizeKB):
		return StatusOverBudget
	case b.WarnThresholdKB != nil && sizeKB > float64(*b.WarnThresholdKB):
		return StatusWarning
	case b.TargetSizeKB != nil:
		if sizeKB <= float64(*b.TargetSizeKB) {
			return StatusUnderTarget
		}
		return StatusAboveTarget
	case b.MaxSizeKB != nil || b.WarnThresholdKB != nil:
		return StatusAboveTarget
	default:
		return StatusUnderTarget
	}
}

func (c *BudgetChecker) message(status BudgetStatus, sizeKB float64) string {
	b := c.budget
	switch status {
	case StatusUnderTarget:
		if b.TargetSizeKB != nil {
			return fmt.Sprintf("Under target by %.2f KB", float64(*b.TargetSizeKB)-sizeKB)
		}
		return "Size OK"
	case StatusAboveTarget:
		if b.TargetSizeKB != nil {
			return fmt.Sprintf("Above target by %.2f KB (still within limits)", sizeKB-float64(*b.TargetSizeKB))
		}
		return "Size OK"
	case StatusWarning:
		if b.WarnThresholdKB != nil {
			return fmt.Sprintf("Warning: %d KB over threshold (consider optimizing)", int64(sizeKB-float64(*b.WarnThresholdKB)))
		}
		return "Warning threshold exceeded"
	case StatusOverBudget:
		if b.MaxSizeKB != nil {
			return fmt.Sprintf("FAILED: %d KB over budget (optimization required)", int64(sizeKB-float64(*b.MaxSizeKB)))
		}
		return "Budget exceeded"
	default:
		return "Size OK"
	}
}
