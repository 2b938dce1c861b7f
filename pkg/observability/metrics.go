package observability

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"
)

// Metric names.
const (
	MetricOperationTotal    = "coachbook.operation.total"
	MetricOperationDuration = "coachbook.operation.duration"
	MetricOperationErrors   = "coachbook.operation.errors"

	MetricSessionsCommitted = "coachbook.sessions.committed"
	MetricSessionsCancelled = "coachbook.sessions.cancelled"
	MetricConflictsDetected = "coachbook.conflicts.detected"
	MetricSlotsOffered      = "coachbook.slots.offered"
	MetricRecheckRejections = "coachbook.conflicts.recheck_rejected"
	MetricNotifyFailures    = "coachbook.notify.failures"

	MetricOutboxPending = "coachbook.outbox.pending"
	MetricOutboxDead    = "coachbook.outbox.dead"
)

// Metrics records counters, gauges and timings.
type Metrics interface {
	Counter(name string, value int64, tags ...Tag)
	Gauge(name string, value float64, tags ...Tag)
	Timing(name string, duration time.Duration, tags ...Tag)
}

// Tag labels a metric.
type Tag struct {
	Key   string
	Value string
}

// T creates a new Tag.
func T(key, value string) Tag {
	return Tag{Key: key, Value: value}
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) Counter(string, int64, ...Tag)        {}
func (NoopMetrics) Gauge(string, float64, ...Tag)        {}
func (NoopMetrics) Timing(string, time.Duration, ...Tag) {}

// MetricKind distinguishes samples in a snapshot.
type MetricKind string

const (
	KindCounter MetricKind = "counter"
	KindGauge   MetricKind = "gauge"
	KindTiming  MetricKind = "timing"
)

// Sample is one series in a snapshot. For timings Value is the mean in
// milliseconds and Count the number of observations.
type Sample struct {
	Name  string     `json:"name"`
	Tags  string     `json:"tags,omitempty"`
	Kind  MetricKind `json:"kind"`
	Value float64    `json:"value"`
	Count int        `json:"count,omitempty"`
}

type series struct {
	name string
	tags string
}

type timingAgg struct {
	count int
	total time.Duration
}

// InMemoryMetrics aggregates metrics in process. The worker serves a
// snapshot on its health endpoint and the CLI prints one with --verbose.
// Series are keyed by name plus tags in key order, so the order tags are
// passed in does not matter.
type InMemoryMetrics struct {
	mu       sync.RWMutex
	counters map[series]int64
	gauges   map[series]float64
	timings  map[series]timingAgg
}

// NewInMemoryMetrics creates an empty registry.
func NewInMemoryMetrics() *InMemoryMetrics {
	m := &InMemoryMetrics{}
	m.Reset()
	return m
}

func (m *InMemoryMetrics) Counter(name string, value int64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[seriesOf(name, tags)] += value
}

func (m *InMemoryMetrics) Gauge(name string, value float64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[seriesOf(name, tags)] = value
}

func (m *InMemoryMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := seriesOf(name, tags)
	agg := m.timings[s]
	agg.count++
	agg.total += duration
	m.timings[s] = agg
}

// GetCounter returns the counter's current total.
func (m *InMemoryMetrics) GetCounter(name string, tags ...Tag) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[seriesOf(name, tags)]
}

// GetGauge returns the gauge's last value.
func (m *InMemoryMetrics) GetGauge(name string, tags ...Tag) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[seriesOf(name, tags)]
}

// GetTimingCount returns how many timings were recorded for the series.
func (m *InMemoryMetrics) GetTimingCount(name string, tags ...Tag) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timings[seriesOf(name, tags)].count
}

// Snapshot returns every series sorted by name and tags.
func (m *InMemoryMetrics) Snapshot() []Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	samples := make([]Sample, 0, len(m.counters)+len(m.gauges)+len(m.timings))
	for s, v := range m.counters {
		samples = append(samples, Sample{Name: s.name, Tags: s.tags, Kind: KindCounter, Value: float64(v)})
	}
	for s, v := range m.gauges {
		samples = append(samples, Sample{Name: s.name, Tags: s.tags, Kind: KindGauge, Value: v})
	}
	for s, agg := range m.timings {
		mean := float64(agg.total.Microseconds()) / 1000 / float64(agg.count)
		samples = append(samples, Sample{Name: s.name, Tags: s.tags, Kind: KindTiming, Value: mean, Count: agg.count})
	}
	slices.SortFunc(samples, func(a, b Sample) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Tags, b.Tags), cmp.Compare(a.Kind, b.Kind))
	})
	return samples
}

// Reset clears all recorded metrics.
func (m *InMemoryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = make(map[series]int64)
	m.gauges = make(map[series]float64)
	m.timings = make(map[series]timingAgg)
}

func seriesOf(name string, tags []Tag) series {
	return series{name: name, tags: formatTags(tags)}
}

// formatTags renders tags as "k1=v1,k2=v2" sorted by key.
func formatTags(tags []Tag) string {
	if len(tags) == 0 {
		return ""
	}
	sorted := slices.SortedFunc(slices.Values(tags), func(a, b Tag) int {
		return cmp.Or(cmp.Compare(a.Key, b.Key), cmp.Compare(a.Value, b.Value))
	})
	var b strings.Builder
	for i, t := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.Key)
		b.WriteByte('=')
		b.WriteString(t.Value)
	}
	return b.String()
}
