package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BuildEvent identifies a build lifecycle moment.
type BuildEvent string

const (
	EventBuildStarted          BuildEvent = "build_started"
	EventBuildCompleted        BuildEvent = "build_completed"
	EventBuildFailed           BuildEvent = "build_failed"
	EventOptimizationStarted   BuildEvent = "optimization_started"
	EventOptimizationCompleted BuildEvent = "optimization_completed"
)

// Metric is one named measurement with dimension tags.
type Metric struct {
	Name      string
	Value     float64
	Tags      map[string]string
	Timestamp time.Time
}

// NewMetric returns a timestamped metric with no tags.
func NewMetric(name string, value float64) Metric {
	return Metric{Name: name, Value: value, Tags: make(map[string]string), Timestamp: time.Now()}
}

// WithTag returns a copy of the metric with one tag set.
func (m Metric) WithTag(key, value string) Metric {
	tags := make(map[string]string, len(m.Tags)+1)
	for k, v := range m.Tags {
		tags[k] = v
	}
	tags[key] = value
	m.Tags = tags
	return m
}

// MetricsCollector receives build events and measurements. Implementations
// must be safe for concurrent use.
type MetricsCollector interface {
	Name() string
	RecordEvent(event BuildEvent, metadata map[string]string)
	RecordMetric(metric Metric)
	Flush()
}

// RecordDuration records how long a stage ran as a <stage>_duration_ms
// metric tagged with the stage name.
func RecordDuration(c MetricsCollector, stage string, d time.Duration) {
	c.RecordMetric(NewMetric(stage+"_duration_ms", float64(d.Milliseconds())).WithTag("stage", stage))
}

// RecordSize records an artifact size as a <label>_size_bytes metric tagged
// with the label.
func RecordSize(c MetricsCollector, label string, bytes uint64) {
	c.RecordMetric(NewMetric(label+"_size_bytes", float64(bytes)).WithTag("label", label))
}

// NoopCollector discards everything. The default when telemetry is off.
type NoopCollector struct{}

func (NoopCollector) Name() string                              { return "noop" }
func (NoopCollector) RecordEvent(BuildEvent, map[string]string) {}
func (NoopCollector) RecordMetric(Metric)                       {}
func (NoopCollector) Flush()                                    {}

// StdoutCollector prints a [METRIC] line for every event and measurement.
// Enabled by the --telemetry flag.
type StdoutCollector struct {
	out io.Writer
}

// NewStdoutCollector returns a collector printing to w.
func NewStdoutCollector(w io.Writer) *StdoutCollector {
	return &StdoutCollector{out: w}
}

func (*StdoutCollector) Name() string { return "stdout" }

func (c *StdoutCollector) RecordEvent(event BuildEvent, metadata map[string]string) {
	fmt.Fprintf(c.out, "[METRIC] Event: %s\n", event)
	for _, key := range sortedKeys(metadata) {
		fmt.Fprintf(c.out, "  %s: %s\n", key, metadata[key])
	}
}

func (c *StdoutCollector) RecordMetric(metric Metric) {
	fmt.Fprintf(c.out, "[METRIC] %s: %s", metric.Name, strconv.FormatFloat(metric.Value, 'f', -1, 64))
	if len(metric.Tags) > 0 {
		pairs := make([]string, 0, len(metric.Tags))
		for _, key := range sortedKeys(metric.Tags) {
			pairs = append(pairs, key+"="+metric.Tags[key])
		}
		fmt.Fprintf(c.out, " (%s)", strings.Join(pairs, " "))
	}
	fmt.Fprintln(c.out)
}

func (*StdoutCollector) Flush() {}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// EventRecord pairs an event with the metadata it was recorded with.
type EventRecord struct {
	Event    BuildEvent
	Metadata map[string]string
}

// MemoryCollector retains everything recorded, in order. Tests assert
// against it.
type MemoryCollector struct {
	mu      sync.Mutex
	events  []EventRecord
	metrics []Metric
}

// NewMemoryCollector returns an empty in-memory collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

func (*MemoryCollector) Name() string { return "memory" }

func (c *MemoryCollector) RecordEvent(event BuildEvent, metadata map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, EventRecord{Event: event, Metadata: metadata})
}

func (c *MemoryCollector) RecordMetric(metric Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = append(c.metrics, metric)
}

func (*MemoryCollector) Flush() {}

// Events returns a copy of the recorded events in order.
func (c *MemoryCollector) Events() []EventRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.events)
}

// Metrics returns a copy of the recorded metrics in order.
func (c *MemoryCollector) Metrics() []Metric {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.metrics)
}

// Clear drops everything recorded so far.
func (c *MemoryCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
	c.metrics = nil
}
