// Package result holds the status-rolled-up result tree produced by a suite
// run. It does no I/O; reporters render it and the CLI derives the exit code
// from it.
package result

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the outcome of a unit of work.
type Status int

const (
	Unknown Status = iota
	Passed
	Failed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "Passed"
	case Failed:
		return "Failed"
	case Skipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus converts a status name back into a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(s) {
	case "passed":
		return Passed, nil
	case "failed":
		return Failed, nil
	case "skipped":
		return Skipped, nil
	case "unknown", "":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unknown status %q", s)
}

// Rollup derives a container status from its children's counts. All-skipped
// (including no children at all) is Skipped; otherwise only a clean run with
// at least one pass is Passed.
func Rollup(passed, failed, skipped int) Status {
	total := passed + failed + skipped
	if skipped == total {
		return Skipped
	}
	if passed > 0 && failed == 0 && skipped == 0 {
		return Passed
	}
	return Failed
}

// Result is the base record for any timed unit: a fixture call, a test
// variant, a module or the whole suite.
type Result struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`
	Record    string        `json:"record,omitempty"`
}

// New starts a result clock.
func New(name string) *Result {
	return &Result{Name: name, StartTime: time.Now()}
}

// End seals the result and optionally sets its status.
func (r *Result) End(status ...Status) *Result {
	r.seal(status...)
	return r
}

func (r *Result) seal(status ...Status) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	if len(status) > 0 && status[0] != Unknown {
		r.Status = status[0]
	}
}

// Ended reports whether End has been called.
func (r *Result) Ended() bool {
	return !r.EndTime.IsZero()
}

func (r *Result) String() string {
	return fmt.Sprintf("%s Result: {%s | Duration: %s}", r.Name, r.Status, r.Duration)
}

// Counts are the derived child tallies of a container result.
type Counts struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func (c Counts) Total() int {
	return c.Passed + c.Failed + c.Skipped
}

func (c *Counts) add(s Status) {
	switch s {
	case Passed:
		c.Passed++
	case Failed:
		c.Failed++
	case Skipped:
		c.Skipped++
	}
}
