package cicd

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
	"github.com/wasm-slim/wasm-slim/pkg/styles"
)

var historyLog = logger.New("cicd:history")

const (
	historyDirName  = ".wasm-slim"
	historyFileName = "history.jsonl"

	// maxHistoryRecords caps the file so long-lived projects do not grow it
	// without bound. The oldest records are dropped first.
	maxHistoryRecords = 100

	// regressionThresholdPercent is the size increase over the previous build
	// that counts as a regression.
	regressionThresholdPercent = 5.0
)

// BuildRecord is one line of the build history: the outcome of a single
// successful build. Commit, Branch, and Digest are best-effort metadata and
// absent when unavailable.
type BuildRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	SizeBytes   uint64    `json:"size_bytes"`
	BeforeBytes uint64    `json:"before_bytes,omitempty"`
	Commit      string    `json:"commit,omitempty"`
	Branch      string    `json:"branch,omitempty"`
	Digest      string    `json:"digest,omitempty"`
}

// NewBuildRecord returns a record for a build that shrank the artifact from
// beforeBytes to afterBytes, stamped with the current time.
func NewBuildRecord(beforeBytes, afterBytes uint64) BuildRecord {
	return BuildRecord{
		Timestamp:   time.Now().UTC().Truncate(time.Second),
		SizeBytes:   afterBytes,
		BeforeBytes: beforeBytes,
	}
}

// ArtifactDigest returns the lowercase hex BLAKE2b-256 digest of data, the
// form stored in BuildRecord.Digest.
func ArtifactDigest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// History is the ordered build log, oldest record first.
type History struct {
	Records []BuildRecord
}

// Add appends rec as the newest record, dropping the oldest entries beyond
// the record cap.
func (h *History) Add(rec BuildRecord) {
	h.Records = append(h.Records, rec)
	if len(h.Records) > maxHistoryRecords {
		h.Records = h.Records[len(h.Records)-maxHistoryRecords:]
	}
}

// Latest returns the newest record, or nil for an empty history.
func (h *History) Latest() *BuildRecord {
	if len(h.Records) == 0 {
		return nil
	}
	return &h.Records[len(h.Records)-1]
}

// CheckRegression compares currentBytes against the newest recorded build.
// It returns nil when there is no history to compare against.
func (h *History) CheckRegression(currentBytes uint64) *RegressionResult {
	prev := h.Latest()
	if prev == nil {
		return nil
	}

	diff := int64(currentBytes) - int64(prev.SizeBytes)
	percent := float64(diff) / float64(prev.SizeBytes) * 100

	return &RegressionResult{
		IsRegression:  percent > regressionThresholdPercent,
		PreviousBytes: prev.SizeBytes,
		CurrentBytes:  currentBytes,
		DiffBytes:     diff,
		PercentChange: percent,
	}
}

// RegressionResult is the outcome of comparing a build against the previous
// one. DiffBytes and PercentChange are negative when the artifact shrank.
type RegressionResult struct {
	IsRegression  bool
	PreviousBytes uint64
	CurrentBytes  uint64
	DiffBytes     int64
	PercentChange float64
}

// Render writes the regression block to w. Growth beyond the threshold gets
// the loud treatment, shrinkage over 1% is celebrated, anything in between
// reads as stable.
func (r RegressionResult) Render(w io.Writer) {
	prevKB := float64(r.PreviousBytes) / 1024
	currentKB := float64(r.CurrentBytes) / 1024

	switch {
	case r.IsRegression:
		fmt.Fprintf(w, "\n%s\n", console.FormatWarningMessage("Size Regression Detected!"))
		fmt.Fprintf(w, "   Previous: %.2f KB\n", prevKB)
		fmt.Fprintf(w, "   Current:  %.2f KB (%s)\n", currentKB,
			styles.Error.Render(fmt.Sprintf("+%.1f%%", r.PercentChange)))
		fmt.Fprintf(w, "   Increase: %.2f KB\n", float64(r.DiffBytes)/1024)
	case r.PercentChange < -1.0:
		fmt.Fprintf(w, "\n%s\n", console.FormatSuccessMessage("Size Improvement!"))
		fmt.Fprintf(w, "   Previous: %.2f KB\n", prevKB)
		fmt.Fprintf(w, "   Current:  %.2f KB (%s)\n", currentKB,
			styles.Success.Render(fmt.Sprintf("%.1f%%", r.PercentChange)))
		fmt.Fprintf(w, "   Reduction: %.2f KB\n", float64(-r.DiffBytes)/1024)
	default:
		fmt.Fprintf(w, "\n%s\n", console.FormatSuccessMessage(
			fmt.Sprintf("Size stable (%+.1f%%)", r.PercentChange)))
	}
}

// HistoryStore reads and writes .wasm-slim/history.jsonl through a
// FileSystem. Each line is one BuildRecord, oldest first.
type HistoryStore struct {
	fs infra.FileSystem
}

// NewHistoryStore returns a store bound to the given filesystem.
func NewHistoryStore(filesystem infra.FileSystem) *HistoryStore {
	return &HistoryStore{fs: filesystem}
}

// HistoryPath returns the history file location for a project root.
func HistoryPath(projectRoot string) string {
	return filepath.Join(projectRoot, historyDirName, historyFileName)
}

// Load reads the history from projectRoot. A missing file yields an empty
// history; a malformed line is a hard error.
func (s *HistoryStore) Load(projectRoot string) (*History, error) {
	contents, err := s.fs.ReadFile(HistoryPath(projectRoot))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &History{}, nil
		}
		return nil, fmt.Errorf("failed to read build history: %w", err)
	}

	history := &History{}
	for i, line := range bytes.Split(contents, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec BuildRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse build history line %d: %w", i+1, err)
		}
		history.Records = append(history.Records, rec)
	}
	return history, nil
}

// Save writes the full history to projectRoot, creating the .wasm-slim
// directory when needed.
func (s *HistoryStore) Save(history *History, projectRoot string) error {
	dir := filepath.Join(projectRoot, historyDirName)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", historyDirName, err)
	}

	var buf bytes.Buffer
	for _, rec := range history.Records {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to serialize build history: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := s.fs.WriteFile(HistoryPath(projectRoot), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write build history: %w", err)
	}
	return nil
}

// Record appends rec to the stored history and returns the updated history.
func (s *HistoryStore) Record(projectRoot string, rec BuildRecord) (*History, error) {
	history, err := s.Load(projectRoot)
	if err != nil {
		return nil, err
	}
	history.Add(rec)
	if err := s.Save(history, projectRoot); err != nil {
		return nil, err
	}
	historyLog.Printf("recorded build of %d bytes, %d record(s) total", rec.SizeBytes, len(history.Records))
	return history, nil
}
