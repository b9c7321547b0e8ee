package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// JSONExporter writes metrics as a single JSON document
type JSONExporter struct {
	writer io.Writer
	pretty bool
}

// JSONOption is a functional option for JSONExporter
type JSONOption func(*JSONExporter)

// WithJSONWriter sets the output writer for JSON metrics
func WithJSONWriter(w io.Writer) JSONOption {
	return func(j *JSONExporter) {
		j.writer = w
	}
}

// WithJSONPretty toggles indented output
func WithJSONPretty(pretty bool) JSONOption {
	return func(j *JSONExporter) {
		j.pretty = pretty
	}
}

// NewJSONExporter creates a new JSON metrics exporter
func NewJSONExporter(opts ...JSONOption) *JSONExporter {
	j := &JSONExporter{writer: os.Stdout, pretty: true}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// JSONMetricsOutput is the complete JSON output structure
type JSONMetricsOutput struct {
	*Snapshot
	GeneratedAt string   `json:"generated_at"`
	Metrics     []Metric `json:"metrics"`
}

// Export writes the snapshot and its flattened metrics.
func (j *JSONExporter) Export(s *Snapshot) error {
	out := JSONMetricsOutput{
		Snapshot:    s,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Metrics:     s.Metrics(),
	}

	enc := json.NewEncoder(j.writer)
	if j.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
