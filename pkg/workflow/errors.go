package workflow

import "fmt"

// BudgetExceededError reports a final artifact larger than the configured
// hard limit.
type BudgetExceededError struct {
	ActualBytes uint64
	MaxBytes    uint64

	// PercentOver is how far past the limit the artifact landed, as a
	// percentage of the limit. Always > 0.
	PercentOver float64
}

func newBudgetExceededError(actual, max uint64) *BudgetExceededError {
	return &BudgetExceededError{
		ActualBytes: actual,
		MaxBytes:    max,
		PercentOver: float64(actual-max) / float64(max) * 100,
	}
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("WASM bundle size (%d bytes) exceeds maximum (%d bytes)", e.ActualBytes, e.MaxBytes)
}
