//go:build !integration

package cicd

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/x/exp/golden"
)

func TestRenderAboveTargetGolden(t *testing.T) {
	t.Setenv("NO_EMOJI", "")
	checker := NewBudgetChecker(fullBudget())

	var buf bytes.Buffer
	checker.Check(600 * 1024).Render(&buf)

	golden.RequireEqual(t, buf.Bytes())
}

func TestRenderOverBudgetGolden(t *testing.T) {
	t.Setenv("NO_EMOJI", "")
	checker := NewBudgetChecker(fullBudget())

	var buf bytes.Buffer
	checker.Check(1100 * 1024).Render(&buf)

	golden.RequireEqual(t, buf.Bytes())
}
