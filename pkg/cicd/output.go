package cicd

import (
	"encoding/json"
	"fmt"
)

// SizeInfo expresses one artifact size in every unit CI consumers ask for.
type SizeInfo struct {
	Bytes     uint64  `json:"bytes"`
	KB        float64 `json:"kb"`
	MB        float64 `json:"mb"`
	Formatted string  `json:"formatted"`
}

// NewSizeInfo builds the size section for a byte count. Formatted switches
// from KB to MB at 1 MB.
func NewSizeInfo(sizeBytes uint64) SizeInfo {
	kb := float64(sizeBytes) / 1024
	mb := kb / 1024
	formatted := fmt.Sprintf("%.2f KB", kb)
	if mb >= 1 {
		formatted = fmt.Sprintf("%.2f MB", mb)
	}
	return SizeInfo{Bytes: sizeBytes, KB: kb, MB: mb, Formatted: formatted}
}

// BudgetInfo is the budget section of the JSON report.
type BudgetInfo struct {
	Status          string   `json:"status"`
	Passed          bool     `json:"passed"`
	TargetKB        *uint64  `json:"target_kb,omitempty"`
	WarnThresholdKB *uint64  `json:"warn_threshold_kb,omitempty"`
	MaxSizeKB       *uint64  `json:"max_size_kb,omitempty"`
	DeltaKB         *float64 `json:"delta_kb,omitempty"`
	Message         string   `json:"message"`
}

// newBudgetInfo converts a check result. DeltaKB measures the distance to
// the tightest configured threshold: max first, then warn, then target.
func newBudgetInfo(result BudgetResult) *BudgetInfo {
	var deltaKB *float64
	switch {
	case result.MaxSizeKB != nil:
		d := result.SizeKB - float64(*result.MaxSizeKB)
		deltaKB = &d
	case result.WarnThresholdKB != nil:
		d := result.SizeKB - float64(*result.WarnThresholdKB)
		deltaKB = &d
	case result.TargetKB != nil:
		d := result.SizeKB - float64(*result.TargetKB)
		deltaKB = &d
	}

	return &BudgetInfo{
		Status:          string(result.Status),
		Passed:          result.Passed(),
		TargetKB:        result.TargetKB,
		WarnThresholdKB: result.WarnThresholdKB,
		MaxSizeKB:       result.MaxSizeKB,
		DeltaKB:         deltaKB,
		Message:         result.Message,
	}
}

// RegressionInfo is the regression section of the JSON report.
type RegressionInfo struct {
	IsRegression  bool    `json:"is_regression"`
	PreviousBytes uint64  `json:"previous_bytes"`
	PreviousKB    float64 `json:"previous_kb"`
	DiffBytes     int64   `json:"diff_bytes"`
	DiffKB        float64 `json:"diff_kb"`
	PercentChange float64 `json:"percent_change"`
}

// JSONOutput is the machine-readable build report emitted with --json.
type JSONOutput struct {
	Success    bool            `json:"success"`
	Size       SizeInfo        `json:"size"`
	Budget     *BudgetInfo     `json:"budget,omitempty"`
	Regression *RegressionInfo `json:"regression,omitempty"`
}

// NewJSONOutput starts a successful report for the given artifact size.
func NewJSONOutput(sizeBytes uint64) JSONOutput {
	return JSONOutput{Success: true, Size: NewSizeInfo(sizeBytes)}
}

// WithBudget attaches a budget section and ties Success to its verdict.
func (o JSONOutput) WithBudget(result BudgetResult) JSONOutput {
	o.Success = result.Passed()
	o.Budget = newBudgetInfo(result)
	return o
}

// WithRegression attaches a regression section.
func (o JSONOutput) WithRegression(result RegressionResult) JSONOutput {
	o.Regression = &RegressionInfo{
		IsRegression:  result.IsRegression,
		PreviousBytes: result.PreviousBytes,
		PreviousKB:    float64(result.PreviousBytes) / 1024,
		DiffBytes:     result.DiffBytes,
		DiffKB:        float64(result.DiffBytes) / 1024,
		PercentChange: result.PercentChange,
	}
	return o
}

// JSON renders the report with two-space indentation.
func (o JSONOutput) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize JSON output: %w", err)
	}
	return data, nil
}
