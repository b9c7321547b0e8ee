package metrics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// PrometheusExporter writes metrics in the Prometheus text exposition format
type PrometheusExporter struct {
	writer io.Writer
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithPrometheusWriter sets the output writer for Prometheus metrics
func WithPrometheusWriter(w io.Writer) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.writer = w
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter
func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{writer: os.Stdout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export writes one HELP and TYPE header per metric name followed by its
// samples.
func (p *PrometheusExporter) Export(s *Snapshot) error {
	w := bufio.NewWriter(p.writer)
	last := ""
	for _, m := range s.Metrics() {
		if m.Name != last {
			if last != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "# HELP %s %s\n", m.Name, m.Help)
			fmt.Fprintf(w, "# TYPE %s %s\n", m.Name, m.Type)
			last = m.Name
		}
		fmt.Fprintf(w, "%s%s %s\n", m.Name, formatLabels(m.Labels), strconv.FormatFloat(m.Value, 'g', -1, 64))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing prometheus metrics: %w", err)
	}
	return nil
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=\"%s\"", k, sanitizeLabel(labels[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// sanitizeLabel makes a string safe for use as a Prometheus label value
func sanitizeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
