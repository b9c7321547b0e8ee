package output

import (
	"fmt"
	"html/template"
	"io"
	"os"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
)

// HTMLOutput represents the data behind the HTML report
type HTMLOutput struct {
	Version        string
	Report         JSONOutput
	PassedPercent  float64
	FailedPercent  float64
	SkippedPercent float64
}

// HTMLFormatter formats the suite result as a standalone HTML page
type HTMLFormatter struct {
	collector
	writer  io.Writer
	version string
}

// HTMLOption is a functional option for HTMLFormatter
type HTMLOption func(*HTMLFormatter)

// NewHTMLFormatter creates a new HTML formatter
func NewHTMLFormatter(opts ...HTMLOption) *HTMLFormatter {
	f := &HTMLFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// HTMLWithWriter sets the output writer
func HTMLWithWriter(w io.Writer) HTMLOption {
	return func(f *HTMLFormatter) {
		f.writer = w
	}
}

// HTMLWithVersion stamps the report footer
func HTMLWithVersion(v string) HTMLOption {
	return func(f *HTMLFormatter) {
		f.version = v
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"lower": func(s string) string {
		switch s {
		case result.Passed.String():
			return "passed"
		case result.Failed.String():
			return "failed"
		}
		return "skipped"
	},
}).Parse(htmlTemplate))

// Flush writes the HTML report of the finished suite
func (f *HTMLFormatter) Flush() error {
	if f.suite == nil {
		return nil
	}
	report := BuildJSON(f.suite)
	total := report.Summary.Total
	output := HTMLOutput{
		Version:        f.version,
		Report:         report,
		PassedPercent:  percent(report.Summary.Passed, total),
		FailedPercent:  percent(report.Summary.Failed, total),
		SkippedPercent: percent(report.Summary.Skipped, total),
	}
	if err := reportTemplate.Execute(f.writer, output); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Report.Name}} - {{.Report.Status}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 2rem; color: #222; }
.bar { display: flex; height: 12px; border-radius: 6px; overflow: hidden; margin: 1rem 0; background: #eee; }
.bar .passed { background: #2da44e; } .bar .failed { background: #cf222e; } .bar .skipped { background: #bf8700; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: .4rem .6rem; border-bottom: 1px solid #eee; vertical-align: top; }
td.passed { color: #2da44e; } td.failed { color: #cf222e; } td.skipped { color: #bf8700; }
pre { margin: 0; white-space: pre-wrap; }
footer { margin-top: 2rem; color: #888; font-size: .8rem; }
</style>
</head>
<body>
<h1>{{.Report.Name}}</h1>
<p>Run {{.Report.RunID}} finished {{.Report.Time}} in {{.Report.Duration}}ms: <strong>{{.Report.Status}}</strong></p>
<p>{{.Report.Summary.Passed}} passed, {{.Report.Summary.Failed}} failed, {{.Report.Summary.Skipped}} skipped, {{.Report.Summary.Total}} total</p>
<div class="bar">
<div class="passed" style="width: {{printf "%.1f" .PassedPercent}}%"></div>
<div class="failed" style="width: {{printf "%.1f" .FailedPercent}}%"></div>
<div class="skipped" style="width: {{printf "%.1f" .SkippedPercent}}%"></div>
</div>
{{if .Report.FailedImports}}<h2>Failed imports</h2>
<ul>{{range .Report.FailedImports}}<li>{{.}}</li>{{end}}</ul>{{end}}
<h2>Modules</h2>
<table>
<tr><th>Module</th><th>Status</th><th>Passed</th><th>Failed</th><th>Skipped</th><th>Duration</th></tr>
{{range .Report.Modules}}<tr><td>{{.Name}}</td><td class="{{lower .Status}}">{{.Status}}</td><td>{{.Summary.Passed}}</td><td>{{.Summary.Failed}}</td><td>{{.Summary.Skipped}}</td><td>{{.Duration}}ms</td></tr>
{{end}}</table>
<h2>Tests</h2>
<table>
<tr><th>Test</th><th>Status</th><th>Duration</th><th>Record</th></tr>
{{range .Report.Tests}}<tr><td>{{.FullName}}{{if .Description}}<br><small>{{.Description}}</small>{{end}}</td><td class="{{lower .Status}}">{{.Status}}</td><td>{{.Duration}}ms</td><td><pre>{{.Record}}</pre>{{range .Parameterized}}{{if ne .Status "Passed"}}<pre>{{.Name}}: {{.Record}}</pre>{{end}}{{end}}</td></tr>
{{end}}</table>
<footer>end2 {{.Version}}</footer>
</body>
</html>
`
