package stats

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/end2/packages/core/result"
)

// Histogram bounds in microseconds: 1us to one hour, 3 significant digits.
const (
	minLatency = 1
	maxLatency = 3_600_000_000
	sigFigs    = 3
)

// Metrics collects test durations and outcomes
type Metrics struct {
	mu sync.RWMutex

	// Counters
	passed  atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64

	histogram *hdrhistogram.Histogram
	modules   map[string]*ModuleMetrics

	startTime time.Time
	endTime   time.Time
}

// ModuleMetrics holds metrics for one test module
type ModuleMetrics struct {
	Name      string
	Passed    atomic.Int64
	Failed    atomic.Int64
	Skipped   atomic.Int64
	Histogram *hdrhistogram.Histogram
	mu        sync.Mutex
}

// NewMetrics creates a new Metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		histogram: hdrhistogram.New(minLatency, maxLatency, sigFigs),
		modules:   make(map[string]*ModuleMetrics),
	}
}

// Start marks the beginning of the run
func (m *Metrics) Start() {
	m.startTime = time.Now()
}

// Stop marks the end of the run
func (m *Metrics) Stop() {
	m.endTime = time.Now()
}

// Record records one test outcome. Skipped tests count but do not feed the
// latency histograms since they never ran.
func (m *Metrics) Record(module string, duration time.Duration, status result.Status) {
	mm := m.module(module)
	switch status {
	case result.Passed:
		m.passed.Add(1)
		mm.Passed.Add(1)
	case result.Failed:
		m.failed.Add(1)
		mm.Failed.Add(1)
	case result.Skipped:
		m.skipped.Add(1)
		mm.Skipped.Add(1)
		return
	default:
		return
	}

	v := clamp(duration)
	m.mu.Lock()
	_ = m.histogram.RecordValue(v)
	m.mu.Unlock()

	mm.mu.Lock()
	_ = mm.Histogram.RecordValue(v)
	mm.mu.Unlock()
}

func (m *Metrics) module(name string) *ModuleMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, ok := m.modules[name]
	if !ok {
		mm = &ModuleMetrics{
			Name:      name,
			Histogram: hdrhistogram.New(minLatency, maxLatency, sigFigs),
		}
		m.modules[name] = mm
	}
	return mm
}

func clamp(d time.Duration) int64 {
	us := d.Microseconds()
	if us < minLatency {
		us = minLatency
	}
	if us > maxLatency {
		us = maxLatency
	}
	return us
}

// FromSuite builds metrics from a finished suite result.
func FromSuite(s *result.Suite) *Metrics {
	m := NewMetrics()
	m.startTime, m.endTime = s.StartTime, s.EndTime
	for mod, t := range s.Tests() {
		m.Record(mod.Name, t.Duration, t.Status)
	}
	return m
}

// Summary is the final metrics summary
type Summary struct {
	Duration time.Duration
	Total    int64
	Passed   int64
	Failed   int64
	Skipped  int64

	PassRate       float64
	TestsPerSecond float64

	// Duration percentiles over tests that ran
	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration

	// Sorted by module name
	Modules []*ModuleSummary
}

// ModuleSummary holds the summary of one module
type ModuleSummary struct {
	Name    string
	Total   int64
	Passed  int64
	Failed  int64
	Skipped int64
	P50     time.Duration
	P95     time.Duration
	Max     time.Duration
	Mean    time.Duration
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
}

func us(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// GetSummary returns the metrics summary
func (m *Metrics) GetSummary() *Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	duration := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	passed, failed, skipped := m.passed.Load(), m.failed.Load(), m.skipped.Load()
	total := passed + failed + skipped

	summary := &Summary{
		Duration: duration,
		Total:    total,
		Passed:   passed,
		Failed:   failed,
		Skipped:  skipped,
		P50:      quantile(m.histogram, 50),
		P95:      quantile(m.histogram, 95),
		P99:      quantile(m.histogram, 99),
		Min:      us(m.histogram.Min()),
		Max:      us(m.histogram.Max()),
		Mean:     time.Duration(m.histogram.Mean()) * time.Microsecond,
		StdDev:   time.Duration(m.histogram.StdDev()) * time.Microsecond,
	}
	if total > 0 {
		summary.PassRate = float64(passed) / float64(total)
	}
	if duration.Seconds() > 0 {
		summary.TestsPerSecond = float64(passed+failed) / duration.Seconds()
	}

	for _, name := range sortedKeys(m.modules) {
		mm := m.modules[name]
		mm.mu.Lock()
		summary.Modules = append(summary.Modules, &ModuleSummary{
			Name:    name,
			Total:   mm.Passed.Load() + mm.Failed.Load() + mm.Skipped.Load(),
			Passed:  mm.Passed.Load(),
			Failed:  mm.Failed.Load(),
			Skipped: mm.Skipped.Load(),
			P50:     quantile(mm.Histogram, 50),
			P95:     quantile(mm.Histogram, 95),
			Max:     us(mm.Histogram.Max()),
			Mean:    time.Duration(mm.Histogram.Mean()) * time.Microsecond,
		})
		mm.mu.Unlock()
	}
	return summary
}

func sortedKeys(m map[string]*ModuleMetrics) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Slowest returns up to n test results of s, slowest first.
func Slowest(s *result.Suite, n int) []*result.Method {
	var all []*result.Method
	for _, t := range s.Tests() {
		if t.Status != result.Skipped {
			all = append(all, t)
		}
	}
	slices.SortStableFunc(all, func(a, b *result.Method) int {
		return cmp.Compare(b.Duration, a.Duration)
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
