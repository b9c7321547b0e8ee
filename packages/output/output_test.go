package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
	"github.com/abdul-hamid-achik/end2/packages/core/runner"
	"github.com/abdul-hamid-achik/end2/packages/core/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func method(module, name string, status result.Status, record string) *result.Method {
	m := result.NewMethod(module, name)
	m.Record = record
	m.End(status)
	m.Duration = 25 * time.Millisecond
	return m
}

func sampleSuite() *result.Suite {
	s := result.NewSuite("end2", "run-123")

	users := result.NewModule("pkg.users")
	users.Setup = result.New("Setup").End(result.Passed)
	users.Append(method("pkg.users", "TestLogin", result.Passed, ""))
	logout := method("pkg.users", "TestLogout", result.Failed, "expected 200, got 500")
	logout.Teardown = &result.Result{Name: "TeardownTest", Status: result.Failed, Record: "connection reset"}
	users.Append(logout)
	params := result.NewMethod("pkg.users", "TestRoles")
	params.Parameterized = []*result.Result{
		result.New("TestRoles[0]").End(result.Passed),
		{Name: "TestRoles[1]", Status: result.Failed, Record: "admin missing"},
	}
	params.End()
	users.Append(params)
	users.End()

	orders := result.NewModule("pkg.orders")
	orders.Append(method("pkg.orders", "TestCancel", result.Skipped, "not ready"))
	orders.Append(method("pkg.orders", "TestCrash", result.Failed, "Encountered an exception: nil map"))
	orders.End()

	s.Append(users)
	s.Append(orders)
	s.FailedImports = []string{"Module doesn't exist - pkg.gone"}
	return s.End()
}

// replay drives a reporter through the callbacks of a finished suite.
func replay(r runner.Reporter, s *result.Suite) {
	r.OnSuiteStart(s)
	for _, m := range s.Modules {
		r.OnModuleStart(&suite.TestModule{Path: m.Name, Root: &suite.TestGroup{}})
		r.OnSetupModuleDone(m.Name, result.New("Setup").End(result.Passed))
		for _, t := range m.Tests {
			r.OnSetupTestDone(m.Name, t.Name, result.New("SetupTest").End(result.Passed))
			r.OnTestDone(m.Name, t)
			r.OnTeardownTestDone(m.Name, t.Name, result.New("TeardownTest").End(result.Passed))
		}
		r.OnTeardownModuleDone(m.Name, result.New("Teardown").End(result.Passed))
		r.OnModuleDone(m)
	}
	r.OnSuiteStop(s)
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
	replay(r, sampleSuite())

	out := buf.String()
	assert.Contains(t, out, "Running: end2")
	assert.Contains(t, out, "✓ pkg.users::TestLogin")
	assert.Contains(t, out, "✗ pkg.users::TestLogout")
	assert.Contains(t, out, "expected 200, got 500")
	assert.Contains(t, out, "TestRoles[1] admin missing")
	assert.Contains(t, out, "- pkg.orders::TestCancel")
	assert.Contains(t, out, "Failed imports:")
	assert.Contains(t, out, "Module doesn't exist - pkg.gone")
	assert.Contains(t, out, "Slowest:")
	assert.Contains(t, out, "1 passed")
	assert.Contains(t, out, "3 failed")
	assert.Contains(t, out, "1 skipped")
	assert.Contains(t, out, "5 total")
	assert.Contains(t, out, "Status: Failed")
	assert.Contains(t, out, "Module")
}

func TestConsoleReporter_QuietHidesPassedVariants(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(WithWriter(&buf), WithNoColor(true))
	replay(r, sampleSuite())

	out := buf.String()
	assert.NotContains(t, out, "TestRoles[0]")
	assert.Contains(t, out, "TestRoles[1]")
	assert.NotContains(t, out, "Slowest:")
}

func TestFormatRecord(t *testing.T) {
	assert.Equal(t, "short", formatRecord("short", 10))
	assert.Equal(t, "first ...", formatRecord("first\nsecond", 20))
	assert.Equal(t, "abc...", formatRecord("abcdef", 3))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	replay(f, sampleSuite())
	require.NoError(t, f.Flush())

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "run-123", out.RunID)
	assert.Equal(t, "Failed", out.Status)
	assert.Equal(t, JSONSummary{Total: 5, Passed: 1, Failed: 3, Skipped: 1}, out.Summary)
	require.Len(t, out.Modules, 2)
	assert.Nil(t, out.Modules[0].Setup, "passing fixtures are omitted")
	require.Len(t, out.Tests, 5)
	assert.Equal(t, "pkg.users::TestRoles", out.Tests[2].FullName)
	assert.Len(t, out.Tests[2].Parameterized, 2)
	assert.Equal(t, []string{"Module doesn't exist - pkg.gone"}, out.FailedImports)
	assert.Nil(t, out.Tests[0].Teardown)
	require.NotNil(t, out.Tests[1].Teardown)
	assert.Equal(t, "connection reset", out.Tests[1].Teardown.Record)
}

func TestFlushBeforeRun(t *testing.T) {
	var buf bytes.Buffer
	for _, f := range []Flushable{
		NewJSONFormatter(JSONWithWriter(&buf)),
		NewJUnitFormatter(JUnitWithWriter(&buf)),
		NewTAPFormatter(TAPWithWriter(&buf)),
		NewHTMLFormatter(HTMLWithWriter(&buf)),
	} {
		assert.NoError(t, f.Flush())
	}
	assert.Empty(t, buf.String())
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	replay(f, sampleSuite())
	require.NoError(t, f.Flush())

	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))
	var out JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 5, out.Tests)
	assert.Equal(t, 2, out.Failures)
	assert.Equal(t, 1, out.Errors)
	assert.Equal(t, 1, out.Skipped)
	require.Len(t, out.TestSuites, 2)

	orders := out.TestSuites[1]
	assert.Equal(t, "pkg.orders", orders.Name)
	require.NotNil(t, orders.TestCases[1].Error)
	assert.Equal(t, "nil map", orders.TestCases[1].Error.Message)

	roles := out.TestSuites[0].TestCases[2]
	require.NotNil(t, roles.Failure)
	assert.Contains(t, roles.Failure.Content, "TestRoles[1]: admin missing")
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))
	replay(f, sampleSuite())
	require.NoError(t, f.Flush())

	out := buf.String()
	assert.Contains(t, out, "TAP version 13\n1..5\n")
	assert.Contains(t, out, "ok 1 - pkg.users::TestLogin\n")
	assert.Contains(t, out, "not ok 2 - pkg.users::TestLogout\n")
	assert.Contains(t, out, "message: expected 200, got 500\n")
	assert.Contains(t, out, "message: \"Encountered an exception: nil map\"")
	assert.Contains(t, out, "ok 4 - pkg.orders::TestCancel # SKIP not ready\n")
	assert.Contains(t, out, "# Module doesn't exist - pkg.gone")
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"a: b"`, escapeYAML("a: b"))
	assert.Equal(t, `"say \"hi\"\nbye"`, escapeYAML("say \"hi\"\nbye"))
}

func TestHTMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewHTMLFormatter(HTMLWithWriter(&buf), HTMLWithVersion("v1.2.3"))
	replay(f, sampleSuite())
	require.NoError(t, f.Flush())

	out := buf.String()
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "pkg.users::TestLogout")
	assert.Contains(t, out, `class="failed"`)
	assert.Contains(t, out, "TestRoles[1]: admin missing")
	assert.Contains(t, out, "end2 v1.2.3")
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	for _, format := range []string{"", "console", "JSON", "junit", "tap", "html"} {
		r, err := New(format, &buf)
		require.NoError(t, err, format)
		assert.NotNil(t, r)
	}

	_, err := New("xml", &buf)
	assert.ErrorContains(t, err, "unknown output format")
}

func TestMulti(t *testing.T) {
	var jsonBuf, tapBuf bytes.Buffer
	m := Multi{
		NewJSONFormatter(JSONWithWriter(&jsonBuf)),
		NewTAPFormatter(TAPWithWriter(&tapBuf)),
		Nop{},
	}
	replay(m, sampleSuite())
	require.NoError(t, m.Flush())

	assert.Contains(t, jsonBuf.String(), `"runId": "run-123"`)
	assert.Contains(t, tapBuf.String(), "1..5")
}

func TestRotate(t *testing.T) {
	base := t.TempDir()
	old := time.Now().Add(-time.Hour)
	for i, name := range []string{"a", "b", "c", "d"} {
		dir := filepath.Join(base, name)
		require.NoError(t, os.Mkdir(dir, 0755))
		mt := old.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(dir, mt, mt))
	}
	require.NoError(t, os.WriteFile(filepath.Join(base, "stray.txt"), nil, 0644))

	require.NoError(t, Rotate(base, 2))

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"c", "d", "stray.txt"}, names)

	assert.NoError(t, Rotate(base, 0))
}

func TestFileSink(t *testing.T) {
	base := t.TempDir()
	sink, err := NewFileSink(base, 10)
	require.NoError(t, err)
	assert.Equal(t, base, filepath.Dir(sink.Folder()))

	replay(sink, sampleSuite())
	require.NoError(t, sink.Close())

	runLog, err := os.ReadFile(filepath.Join(sink.Folder(), RunLogName))
	require.NoError(t, err)
	assert.Contains(t, string(runLog), "suite started")
	assert.Contains(t, string(runLog), "failed import")

	usersLog, err := os.ReadFile(filepath.Join(sink.Folder(), "FAILED_pkg.users.log"))
	require.NoError(t, err)
	assert.Contains(t, string(usersLog), "TestLogout")
	assert.FileExists(t, filepath.Join(sink.Folder(), "FAILED_pkg.orders.log"))
}

func TestFileSink_UniqueFolders(t *testing.T) {
	base := t.TempDir()
	first, err := NewFileSink(base, 10)
	require.NoError(t, err)
	defer first.Close()
	second, err := NewFileSink(base, 10)
	require.NoError(t, err)
	defer second.Close()

	assert.NotEqual(t, first.Folder(), second.Folder())
}
