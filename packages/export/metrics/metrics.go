// Package metrics exports the statistics of a finished run, as a Prometheus
// textfile or as JSON.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
	"github.com/abdul-hamid-achik/end2/packages/stats"
)

// Metric represents a single metric data point
type Metric struct {
	Name   string            `json:"name"`
	Help   string            `json:"-"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
	Type   MetricType        `json:"type"`
}

// MetricType represents the type of metric
type MetricType string

const (
	Counter MetricType = "counter"
	Gauge   MetricType = "gauge"
)

const (
	// Prefix starts every metric name.
	Prefix = "end2_"
	// TempPrefix names the scratch file WriteFile renames into place.
	TempPrefix = ".metrics-"
)

// Snapshot is everything exported about one run.
type Snapshot struct {
	Suite     string         `json:"suite"`
	RunID     string         `json:"run_id"`
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Summary   *stats.Summary `json:"-"`
}

// NewSnapshot computes the run statistics of a finished suite.
func NewSnapshot(s *result.Suite) *Snapshot {
	return &Snapshot{
		Suite:     s.Name,
		RunID:     s.RunID,
		Status:    s.Status.String(),
		Timestamp: s.EndTime,
		Summary:   stats.FromSuite(s).GetSummary(),
	}
}

// Metrics flattens the snapshot into data points, grouped by name.
func (s *Snapshot) Metrics() []Metric {
	var out []Metric
	add := func(name, help string, typ MetricType, v float64, kv ...string) {
		labels := map[string]string{"suite": s.Suite}
		for i := 0; i+1 < len(kv); i += 2 {
			labels[kv[i]] = kv[i+1]
		}
		out = append(out, Metric{Name: Prefix + name, Help: help, Value: v, Labels: labels, Type: typ})
	}
	sum := s.Summary

	passed := 0.0
	if s.Status == result.Passed.String() {
		passed = 1
	}
	add("suite_passed", "Whether the last run passed", Gauge, passed)
	add("suite_duration_seconds", "Wall time of the last run", Gauge, sum.Duration.Seconds())
	add("pass_rate", "Share of tests that passed", Gauge, sum.PassRate)

	const testsHelp = "Tests in the last run by status"
	add("tests", testsHelp, Gauge, float64(sum.Passed), "status", "passed")
	add("tests", testsHelp, Gauge, float64(sum.Failed), "status", "failed")
	add("tests", testsHelp, Gauge, float64(sum.Skipped), "status", "skipped")

	const durHelp = "Test duration percentiles over tests that ran"
	add("test_duration_seconds", durHelp, Gauge, sum.P50.Seconds(), "quantile", "0.5")
	add("test_duration_seconds", durHelp, Gauge, sum.P95.Seconds(), "quantile", "0.95")
	add("test_duration_seconds", durHelp, Gauge, sum.P99.Seconds(), "quantile", "0.99")
	add("test_duration_seconds", durHelp, Gauge, sum.Max.Seconds(), "quantile", "1")

	const modHelp = "Tests per module by status"
	for _, m := range sum.Modules {
		add("module_tests", modHelp, Gauge, float64(m.Passed), "module", m.Name, "status", "passed")
		add("module_tests", modHelp, Gauge, float64(m.Failed), "module", m.Name, "status", "failed")
		add("module_tests", modHelp, Gauge, float64(m.Skipped), "module", m.Name, "status", "skipped")
	}
	const modDurHelp = "Test duration percentiles per module"
	for _, m := range sum.Modules {
		add("module_test_duration_seconds", modDurHelp, Gauge, m.P50.Seconds(), "module", m.Name, "quantile", "0.5")
		add("module_test_duration_seconds", modDurHelp, Gauge, m.P95.Seconds(), "module", m.Name, "quantile", "0.95")
	}
	return out
}

// Exporter is the interface for metrics exporters
type Exporter interface {
	Export(s *Snapshot) error
}

// WriteFile exports the snapshot to path, as JSON for a .json extension
// and in the Prometheus text format otherwise. The file is replaced
// atomically so a node exporter never scrapes a partial write.
func WriteFile(path string, s *Snapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var exp Exporter = NewPrometheusExporter(WithPrometheusWriter(tmp))
	if strings.EqualFold(filepath.Ext(path), ".json") {
		exp = NewJSONExporter(WithJSONWriter(tmp))
	}
	if err := exp.Export(s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
