package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Name          string       `json:"name"`
	RunID         string       `json:"runId"`
	Status        string       `json:"status"`
	Summary       JSONSummary  `json:"summary"`
	Modules       []JSONModule `json:"modules"`
	Tests         []JSONTest   `json:"tests"`
	FailedImports []string     `json:"failedImports,omitempty"`
	Duration      float64      `json:"duration"`
	Time          string       `json:"time"`
}

// JSONSummary represents the test summary
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// JSONModule represents one module's rollup
type JSONModule struct {
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	Description string       `json:"description,omitempty"`
	Summary     JSONSummary  `json:"summary"`
	Setup       *JSONFixture `json:"setup,omitempty"`
	Teardown    *JSONFixture `json:"teardown,omitempty"`
	Duration    float64      `json:"duration"`
}

// JSONFixture represents a non-passing fixture call
type JSONFixture struct {
	Status string `json:"status"`
	Record string `json:"record,omitempty"`
}

// JSONTest represents a single test result
type JSONTest struct {
	Name          string        `json:"name"`
	FullName      string        `json:"fullName"`
	Module        string        `json:"module"`
	Status        string        `json:"status"`
	Record        string        `json:"record,omitempty"`
	Description   string        `json:"description,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	Duration      float64       `json:"duration"`
	Setup         *JSONFixture  `json:"setup,omitempty"`
	Teardown      *JSONFixture  `json:"teardown,omitempty"`
	Parameterized []JSONVariant `json:"parameterized,omitempty"`
}

// JSONVariant represents one parameterized run of a test
type JSONVariant struct {
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Record   string  `json:"record,omitempty"`
	Duration float64 `json:"duration"`
}

// JSONFormatter formats the suite result as JSON
type JSONFormatter struct {
	collector
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

func summaryOf(c result.Counts) JSONSummary {
	return JSONSummary{Total: c.Total(), Passed: c.Passed, Failed: c.Failed, Skipped: c.Skipped}
}

func fixtureOf(r *result.Result) *JSONFixture {
	if r == nil || r.Status == result.Passed {
		return nil
	}
	return &JSONFixture{Status: r.Status.String(), Record: r.Record}
}

// BuildJSON converts a sealed suite into the JSON report structure.
func BuildJSON(s *result.Suite) JSONOutput {
	output := JSONOutput{
		Name:          s.Name,
		RunID:         s.RunID,
		Status:        s.Status.String(),
		Summary:       summaryOf(s.Counts),
		Modules:       make([]JSONModule, 0, len(s.Modules)),
		Tests:         make([]JSONTest, 0, s.Total()),
		FailedImports: s.FailedImports,
		Duration:      ms(s.Duration),
		Time:          s.EndTime.Format(time.RFC3339),
	}

	for _, m := range s.Modules {
		output.Modules = append(output.Modules, JSONModule{
			Name:        m.Name,
			Status:      m.Status.String(),
			Description: m.Description,
			Summary:     summaryOf(m.Counts),
			Setup:       fixtureOf(m.Setup),
			Teardown:    fixtureOf(m.Teardown),
			Duration:    ms(m.Duration),
		})
	}

	for _, t := range s.Tests() {
		test := JSONTest{
			Name:        t.Name,
			FullName:    t.FullName,
			Module:      t.Module,
			Status:      t.Status.String(),
			Record:      t.Record,
			Description: t.Description,
			Tags:        t.Tags,
			Duration:    ms(t.Duration),
			Setup:       fixtureOf(t.Setup),
			Teardown:    fixtureOf(t.Teardown),
		}
		for _, p := range t.Parameterized {
			test.Parameterized = append(test.Parameterized, JSONVariant{
				Name:     p.Name,
				Status:   p.Status.String(),
				Record:   p.Record,
				Duration: ms(p.Duration),
			})
		}
		output.Tests = append(output.Tests, test)
	}
	return output
}

// Flush writes the JSON report of the finished suite
func (f *JSONFormatter) Flush() error {
	if f.suite == nil {
		return nil
	}
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildJSON(f.suite))
}
