//go:build !integration

package cicd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasm-slim/wasm-slim/pkg/gitutil"
	"github.com/wasm-slim/wasm-slim/pkg/infra/infratest"
)

func TestNewBuildRecordStampsCurrentTime(t *testing.T) {
	rec := NewBuildRecord(2048, 1024)

	assert.Equal(t, uint64(1024), rec.SizeBytes)
	assert.Equal(t, uint64(2048), rec.BeforeBytes)
	assert.False(t, rec.Timestamp.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), rec.Timestamp, 5*time.Second)
}

func TestHistoryAddKeepsChronologicalOrder(t *testing.T) {
	h := &History{}
	assert.Nil(t, h.Latest())

	h.Add(BuildRecord{SizeBytes: 100 * 1024})
	h.Add(BuildRecord{SizeBytes: 200 * 1024})
	h.Add(BuildRecord{SizeBytes: 300 * 1024})

	require.Len(t, h.Records, 3)
	assert.Equal(t, uint64(100*1024), h.Records[0].SizeBytes)
	assert.Equal(t, uint64(300*1024), h.Latest().SizeBytes)
}

func TestHistoryAddDropsOldestBeyondCap(t *testing.T) {
	h := &History{}
	for i := 1; i <= 150; i++ {
		h.Add(BuildRecord{SizeBytes: uint64(i) * 1024})
	}

	require.Len(t, h.Records, 100)
	assert.Equal(t, uint64(51*1024), h.Records[0].SizeBytes)
	assert.Equal(t, uint64(150*1024), h.Latest().SizeBytes)
}

func TestHistoryCheckRegressionClassifiesChanges(t *testing.T) {
	h := &History{}
	h.Add(BuildRecord{SizeBytes: 500 * 1024})

	tests := []struct {
		name           string
		currentBytes   uint64
		wantRegression bool
	}{
		{"four percent growth", 520 * 1024, false},
		{"ten percent growth", 550 * 1024, true},
		{"shrinkage", 450 * 1024, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := h.CheckRegression(tt.currentBytes)
			require.NotNil(t, result)
			assert.Equal(t, tt.wantRegression, result.IsRegression)
			assert.Equal(t, uint64(500*1024), result.PreviousBytes)
			assert.Equal(t, tt.currentBytes, result.CurrentBytes)
		})
	}
}

func TestHistoryCheckRegressionThresholdIsStrict(t *testing.T) {
	h := &History{}
	h.Add(BuildRecord{SizeBytes: 1000 * 1024})

	atThreshold := h.CheckRegression(1050 * 1024)
	require.NotNil(t, atThreshold)
	assert.False(t, atThreshold.IsRegression)
	assert.InDelta(t, 5.0, atThreshold.PercentChange, 1e-9)

	justOver := h.CheckRegression(1051 * 1024)
	require.NotNil(t, justOver)
	assert.True(t, justOver.IsRegression)
}

func TestHistoryCheckRegressionWithEmptyHistoryReturnsNil(t *testing.T) {
	h := &History{}
	assert.Nil(t, h.CheckRegression(100*1024))
}

func TestHistoryStoreSaveAndLoadRoundTrips(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	store := NewHistoryStore(fs)

	rec := NewBuildRecord(2048*1024, 500*1024)
	rec.Commit = "a1b2c3d4"
	rec.Branch = "main"
	rec.Digest = ArtifactDigest([]byte("wasm bytes"))

	history := &History{}
	history.Add(rec)
	require.NoError(t, store.Save(history, "/proj"))

	loaded, err := store.Load("/proj")
	require.NoError(t, err)
	require.Len(t, loaded.Records, 1)

	got := loaded.Records[0]
	assert.Equal(t, uint64(500*1024), got.SizeBytes)
	assert.Equal(t, uint64(2048*1024), got.BeforeBytes)
	assert.Equal(t, "a1b2c3d4", got.Commit)
	assert.Equal(t, "main", got.Branch)
	assert.Equal(t, rec.Digest, got.Digest)
	assert.True(t, rec.Timestamp.Equal(got.Timestamp))
}

func TestHistoryStoreWritesOneRecordPerLine(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	store := NewHistoryStore(fs)

	history := &History{}
	history.Add(BuildRecord{Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), SizeBytes: 100 * 1024})
	history.Add(BuildRecord{Timestamp: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), SizeBytes: 90 * 1024})
	require.NoError(t, store.Save(history, "/proj"))

	data, ok := fs.Content("/proj/.wasm-slim/history.jsonl")
	require.True(t, ok)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"size_bytes":102400`)
	assert.Contains(t, lines[1], `"size_bytes":92160`)
	// Unset git fields stay off the line entirely.
	assert.NotContains(t, lines[0], "commit")
	assert.NotContains(t, lines[0], "branch")
}

func TestHistoryStoreLoadMissingFileYieldsEmptyHistory(t *testing.T) {
	store := NewHistoryStore(infratest.NewFakeFileSystem())

	history, err := store.Load("/proj")
	require.NoError(t, err)
	assert.Empty(t, history.Records)
	assert.Nil(t, history.Latest())
}

func TestHistoryStoreLoadRejectsMalformedLines(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	fs.Seed("/proj/.wasm-slim/history.jsonl", []byte("{\"size_bytes\":1024}\n{not json\n"))
	store := NewHistoryStore(fs)

	_, err := store.Load("/proj")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse build history")
	assert.Contains(t, err.Error(), "line 2")
}

func TestHistoryStoreRecordAppendsAcrossInvocations(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	store := NewHistoryStore(fs)

	_, err := store.Record("/proj", BuildRecord{Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), SizeBytes: 100 * 1024})
	require.NoError(t, err)

	updated, err := store.Record("/proj", BuildRecord{Timestamp: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), SizeBytes: 90 * 1024})
	require.NoError(t, err)
	require.Len(t, updated.Records, 2)
	assert.Equal(t, uint64(90*1024), updated.Latest().SizeBytes)

	loaded, err := store.Load("/proj")
	require.NoError(t, err)
	require.Len(t, loaded.Records, 2)
	assert.Equal(t, uint64(100*1024), loaded.Records[0].SizeBytes)
}

func TestArtifactDigestIsStableHex(t *testing.T) {
	d1 := ArtifactDigest([]byte("artifact"))
	d2 := ArtifactDigest([]byte("artifact"))
	d3 := ArtifactDigest([]byte("other"))

	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
	assert.Len(t, d1, 64)
	assert.True(t, gitutil.IsHexString(d1))
}

func TestRegressionResultRenderBranches(t *testing.T) {
	var out bytes.Buffer

	RegressionResult{
		IsRegression:  true,
		PreviousBytes: 500 * 1024,
		CurrentBytes:  550 * 1024,
		DiffBytes:     50 * 1024,
		PercentChange: 10,
	}.Render(&out)
	assert.Contains(t, out.String(), "Size Regression Detected!")
	assert.Contains(t, out.String(), "Previous: 500.00 KB")
	assert.Contains(t, out.String(), "Increase: 50.00 KB")

	out.Reset()
	RegressionResult{
		PreviousBytes: 500 * 1024,
		CurrentBytes:  400 * 1024,
		DiffBytes:     -100 * 1024,
		PercentChange: -20,
	}.Render(&out)
	assert.Contains(t, out.String(), "Size Improvement!")
	assert.Contains(t, out.String(), "Reduction: 100.00 KB")

	out.Reset()
	RegressionResult{
		PreviousBytes: 500 * 1024,
		CurrentBytes:  501 * 1024,
		DiffBytes:     1024,
		PercentChange: 0.2,
	}.Render(&out)
	assert.Contains(t, out.String(), "Size stable (+0.2%)")
}
