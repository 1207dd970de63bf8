package pipeline

import "fmt"

// SizeMetrics captures the artifact size right after compilation and after
// the last stage that ran, plus where the final artifact ended up.
type SizeMetrics struct {
	BeforeBytes  uint64
	AfterBytes   uint64
	ArtifactPath string
}

// ReductionBytes returns how many bytes the pipeline saved. Negative when
// the artifact grew.
func (m SizeMetrics) ReductionBytes() int64 {
	return int64(m.BeforeBytes) - int64(m.AfterBytes)
}

// ReductionPercent returns the saving as a percentage of the starting size,
// or 0 when the starting size is zero.
func (m SizeMetrics) ReductionPercent() float64 {
	if m.BeforeBytes == 0 {
		return 0
	}
	return float64(m.ReductionBytes()) / float64(m.BeforeBytes) * 100
}

// FormatBytes renders a byte count the way build output reports artifact
// sizes: whole bytes below 1 KB, then two-decimal KB or MB.
func FormatBytes(bytes uint64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
	)
	switch {
	case bytes < kb:
		return fmt.Sprintf("%d B", bytes)
	case bytes < mb:
		return fmt.Sprintf("%.2f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%.2f MB", float64(bytes)/mb)
	}
}
