package reporter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ntr/internal/config"
	"ntr/internal/domain"
)

type fakeWarner struct {
	mu       sync.Mutex
	messages []string
}

func (w *fakeWarner) Warnf(format string, v ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, fmt.Sprintf(format, v...))
}

func (w *fakeWarner) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.messages)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func newTest(id, title string, line int) *domain.TestCase {
	return &domain.TestCase{
		ID:        id,
		Title:     title,
		TitlePath: []string{"login.spec.ts", title},
		Location:  domain.Location{File: "tests/login.spec.ts", Line: line, Column: 5},
	}
}

func suiteOf(tests ...*domain.TestCase) *domain.Suite {
	return &domain.Suite{Tests: tests}
}

func runConfig() domain.RunConfig {
	return domain.RunConfig{Workers: 2, Retries: 1, Timeout: time.Minute}
}

func newNative(buf *bytes.Buffer, w *fakeWarner) *NativeText {
	return NewNativeText(buf, WithColor(false), WithLogger(w))
}

func TestNativeText_PassFailPass(t *testing.T) {
	var buf bytes.Buffer
	warner := &fakeWarner{}
	r := newNative(&buf, warner)

	a, b, c := newTest("a", "logs in", 3), newTest("b", "rejects bad password", 9), newTest("c", "logs out", 15)
	r.OnBegin(runConfig(), suiteOf(a, b, c))

	outcomes := []struct {
		test   *domain.TestCase
		result *domain.TestResult
	}{
		{a, &domain.TestResult{Status: domain.StatusPassed, Duration: 120 * time.Millisecond}},
		{b, &domain.TestResult{
			Status:   domain.StatusFailed,
			Duration: 2 * time.Second,
			Errors: []domain.TestError{{
				Message: "expected 200, got 401",
				Stack:   "expected 200, got 401\n    at tests/login.spec.ts:11:7",
				Diff:    "- 200\n+ 401",
			}},
			Attachments: []domain.Attachment{{Name: "screenshot", ContentType: "image/png", Path: "test-results/b/shot.png"}},
		}},
		{c, &domain.TestResult{Status: domain.StatusPassed, Duration: 80 * time.Millisecond}},
	}
	for _, o := range outcomes {
		r.OnTestBegin(o.test, o.result)
		r.OnTestEnd(o.test, o.result)
	}

	require.NoError(t, r.OnEnd(domain.FullResult{Status: domain.RunFailed, Duration: 3 * time.Second}))
	out := buf.String()

	assert.Contains(t, out, "Running 3 tests using 2 workers")
	assert.Contains(t, out, "3 tests run: 2 passed, 1 failed")
	assert.Contains(t, out, "Duration: 3.0s")
	assert.Contains(t, out, "Failures:")
	assert.Contains(t, out, "1) tests/login.spec.ts:9:5 › login.spec.ts › rejects bad password")
	assert.Contains(t, out, "Status: Failed")
	assert.Contains(t, out, "expected 200, got 401")
	assert.Contains(t, out, "at tests/login.spec.ts:11:7")
	assert.Contains(t, out, "Diff:")
	assert.Contains(t, out, "attachment: screenshot (image/png) test-results/b/shot.png")
	assert.Equal(t, 1, strings.Count(out, "expected 200, got 401"), "message should not be repeated by the stack")
	assert.Zero(t, warner.count())

	// Streaming lines precede the summary
	assert.Less(t, strings.Index(out, "✓  1 tests/login.spec.ts:3:5"), strings.Index(out, "Summary:"))
	assert.Less(t, strings.Index(out, "Summary:"), strings.Index(out, "Failures:"))
}

func TestNativeText_StreamsLinesBeforeEnd(t *testing.T) {
	var buf bytes.Buffer
	r := newNative(&buf, &fakeWarner{})

	a, b, c := newTest("a", "logs in", 3), newTest("b", "logs out", 9), newTest("c", "resets password", 15)
	r.OnBegin(runConfig(), suiteOf(a, b, c))
	assert.Contains(t, buf.String(), "Running 3 tests using 2 workers")

	for i, test := range []*domain.TestCase{a, b, c} {
		r.OnTestBegin(test, &domain.TestResult{})
		r.OnTestEnd(test, &domain.TestResult{Status: domain.StatusPassed, Duration: time.Second})

		out := buf.String()
		assert.Contains(t, out, test.Title, "line for test %d not written before the run ended", i+1)
		assert.True(t, strings.HasSuffix(out, "\n"), "partial line written: %q", out)
	}
	assert.NotContains(t, buf.String(), "Summary:")

	require.NoError(t, r.OnEnd(domain.FullResult{Status: domain.RunPassed}))
	assert.Contains(t, buf.String(), "3 tests run: 3 passed")
}

func TestNativeText_ZeroTests(t *testing.T) {
	var buf bytes.Buffer
	r := newNative(&buf, &fakeWarner{})

	r.OnBegin(runConfig(), &domain.Suite{})
	require.NoError(t, r.OnEnd(domain.FullResult{Status: domain.RunPassed}))

	out := buf.String()
	assert.Contains(t, out, "Running tests using 2 workers")
	assert.Contains(t, out, "0 tests run")
	assert.NotContains(t, out, "Failures:")
}

func TestNativeText_CountsEqualEndCalls(t *testing.T) {
	statuses := []domain.Status{
		domain.StatusPassed, domain.StatusFailed, domain.StatusSkipped,
		domain.StatusTimedOut, domain.StatusInterrupted, domain.StatusPassed,
	}

	var buf bytes.Buffer
	r := newNative(&buf, &fakeWarner{})
	r.OnBegin(runConfig(), &domain.Suite{})
	for i, s := range statuses {
		test := newTest(fmt.Sprintf("t%d", i), fmt.Sprintf("case %d", i), i+1)
		result := &domain.TestResult{Status: s}
		r.OnTestBegin(test, result)
		r.OnTestEnd(test, result)
	}
	require.NoError(t, r.OnEnd(domain.FullResult{Status: domain.RunFailed}))

	assert.Contains(t, buf.String(), "6 tests run: 2 passed, 1 failed, 1 timed out, 1 skipped, 1 interrupted")
	assert.Contains(t, buf.String(), "[timed out]")
}

func TestNativeText_ConcurrentEnds(t *testing.T) {
	const n = 100

	var buf bytes.Buffer
	r := newNative(&buf, &fakeWarner{})

	tests := make([]*domain.TestCase, n)
	for i := range tests {
		tests[i] = newTest(fmt.Sprintf("t%d", i), fmt.Sprintf("case %d", i), i+1)
	}
	r.OnBegin(runConfig(), suiteOf(tests...))

	var wg sync.WaitGroup
	for i, test := range tests {
		wg.Add(1)
		go func(i int, test *domain.TestCase) {
			defer wg.Done()
			result := &domain.TestResult{Status: domain.StatusPassed, WorkerIndex: i % 4}
			r.OnTestBegin(test, result)
			r.OnTestEnd(test, result)
		}(i, test)
	}
	wg.Wait()

	require.NoError(t, r.OnEnd(domain.FullResult{Status: domain.RunPassed}))
	out := buf.String()
	assert.Contains(t, out, "100 tests run: 100 passed")

	// Every streamed line is whole
	lines := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "  ✓  ") {
			lines++
			assert.True(t, strings.HasSuffix(line, ")"), "torn line %q", line)
		}
	}
	assert.Equal(t, n, lines)
}

func TestNativeText_EndWithoutBegin(t *testing.T) {
	var buf bytes.Buffer
	warner := &fakeWarner{}
	r := newNative(&buf, warner)

	r.OnBegin(runConfig(), &domain.Suite{})
	r.OnTestEnd(newTest("ghost", "never began", 1), &domain.TestResult{Status: domain.StatusPassed})
	require.NoError(t, r.OnEnd(domain.FullResult{Status: domain.RunPassed}))

	assert.Equal(t, 1, warner.count())
	assert.Contains(t, buf.String(), "1 test run: 1 passed")
}

func TestNativeText_RepeatedEnd(t *testing.T) {
	var buf bytes.Buffer
	warner := &fakeWarner{}
	r := newNative(&buf, warner)

	r.OnBegin(runConfig(), &domain.Suite{})
	require.NoError(t, r.OnEnd(domain.FullResult{Status: domain.RunPassed}))
	first := buf.String()

	require.NoError(t, r.OnEnd(domain.FullResult{Status: domain.RunPassed}))
	assert.Equal(t, first, buf.String())
	assert.Equal(t, 1, warner.count())
}

func TestNativeText_FlakyAndRetried(t *testing.T) {
	var buf bytes.Buffer
	r := newNative(&buf, &fakeWarner{})

	test := newTest("a", "sometimes fails", 3)
	r.OnBegin(runConfig(), suiteOf(test))

	first := &domain.TestResult{Status: domain.StatusFailed, Errors: []domain.TestError{{Message: "boom"}}}
	r.OnTestBegin(test, first)
	r.OnTestEnd(test, first)

	second := &domain.TestResult{Status: domain.StatusPassed, Retry: 1}
	r.OnTestBegin(test, second)
	r.OnTestEnd(test, second)

	require.NoError(t, r.OnEnd(domain.FullResult{Status: domain.RunPassed}))
	out := buf.String()

	assert.Contains(t, out, "2 tests run: 1 passed, 1 failed")
	assert.Contains(t, out, "Flaky: 1")
	assert.Contains(t, out, "Retried: 1")
	assert.Contains(t, out, "(retry #1)")
}

func TestNativeText_Interrupted(t *testing.T) {
	var buf bytes.Buffer
	r := newNative(&buf, &fakeWarner{})

	a, b := newTest("a", "finishes", 3), newTest("b", "hangs", 9)
	r.OnBegin(runConfig(), suiteOf(a, b))
	r.OnTestBegin(a, &domain.TestResult{})
	r.OnTestBegin(b, &domain.TestResult{})
	r.OnTestEnd(a, &domain.TestResult{Status: domain.StatusPassed})

	require.NoError(t, r.OnEnd(domain.FullResult{Status: domain.RunInterrupted}))
	out := buf.String()

	assert.Contains(t, out, "1 test run: 1 passed")
	assert.Contains(t, out, "Run interrupted before all tests finished.")
	assert.Contains(t, out, "1 test did not finish:")
	assert.Contains(t, out, "- tests/login.spec.ts:9:5 › login.spec.ts › hangs")
}

func TestNativeText_OutputFailure(t *testing.T) {
	t.Run("broken writer", func(t *testing.T) {
		r := NewNativeText(failingWriter{}, WithColor(false), WithLogger(&fakeWarner{}))
		r.OnBegin(runConfig(), &domain.Suite{})
		test := newTest("a", "passes", 1)
		r.OnTestEnd(test, &domain.TestResult{Status: domain.StatusPassed})

		err := r.OnEnd(domain.FullResult{Status: domain.RunPassed})
		var ioErr *IOError
		require.ErrorAs(t, err, &ioErr)
		assert.Equal(t, NativeTextName, ioErr.Reporter)
		assert.Contains(t, err.Error(), "broken pipe")
	})

	t.Run("closed file", func(t *testing.T) {
		f, err := os.Create(filepath.Join(t.TempDir(), "report.txt"))
		require.NoError(t, err)
		require.NoError(t, f.Close())

		r := NewNativeText(f, WithColor(false), WithLogger(&fakeWarner{}))
		r.OnBegin(runConfig(), &domain.Suite{})
		test := newTest("a", "passes", 1)
		r.OnTestEnd(test, &domain.TestResult{Status: domain.StatusPassed})

		err = r.OnEnd(domain.FullResult{Status: domain.RunPassed})
		var ioErr *IOError
		assert.ErrorAs(t, err, &ioErr)
		assert.ErrorIs(t, err, os.ErrClosed)
	})
}

func TestNativeText_DoesNotMutateResults(t *testing.T) {
	var buf bytes.Buffer
	r := newNative(&buf, &fakeWarner{})

	test := newTest("a", "passes", 1)
	result := &domain.TestResult{Status: domain.StatusFailed, Errors: []domain.TestError{{Message: "x"}}}
	before := *result
	testBefore := *test

	r.OnBegin(runConfig(), suiteOf(test))
	r.OnTestBegin(test, result)
	r.OnTestEnd(test, result)
	require.NoError(t, r.OnEnd(domain.FullResult{Status: domain.RunFailed}))

	assert.Equal(t, before, *result)
	assert.Equal(t, testBefore, *test)
}

type recordingReporter struct {
	name   string
	calls  *[]string
	endErr error
}

func (r recordingReporter) OnBegin(domain.RunConfig, *domain.Suite) {
	*r.calls = append(*r.calls, r.name+":begin")
}

func (r recordingReporter) OnTestBegin(*domain.TestCase, *domain.TestResult) {
	*r.calls = append(*r.calls, r.name+":testBegin")
}

func (r recordingReporter) OnTestEnd(*domain.TestCase, *domain.TestResult) {
	*r.calls = append(*r.calls, r.name+":testEnd")
}

func (r recordingReporter) OnEnd(domain.FullResult) error {
	*r.calls = append(*r.calls, r.name+":end")
	return r.endErr
}

func TestMulti(t *testing.T) {
	var calls []string
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	m := NewMulti(
		recordingReporter{name: "a", calls: &calls, endErr: errA},
		recordingReporter{name: "b", calls: &calls},
		recordingReporter{name: "c", calls: &calls, endErr: errB},
	)
	require.Equal(t, 3, m.Len())

	test := newTest("t", "x", 1)
	m.OnBegin(runConfig(), suiteOf(test))
	m.OnTestBegin(test, &domain.TestResult{})
	m.OnTestEnd(test, &domain.TestResult{Status: domain.StatusPassed})
	err := m.OnEnd(domain.FullResult{Status: domain.RunPassed})

	assert.Equal(t, []string{
		"a:begin", "b:begin", "c:begin",
		"a:testBegin", "b:testBegin", "c:testBegin",
		"a:testEnd", "b:testEnd", "c:testEnd",
		"a:end", "b:end", "c:end",
	}, calls)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestBuild(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()

	t.Run("known names", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		specs := []config.ReporterSpec{
			{Name: LineName},
			{Name: NativeTextName},
			{Name: NativeTextPath},
			{Name: JSONName},
		}
		m, err := Build(specs, Deps{Stdout: &stdout, Stderr: &stderr, Config: cfg, Logger: &fakeWarner{}})
		require.NoError(t, err)
		assert.Equal(t, 4, m.Len())
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := Build([]config.ReporterSpec{{Name: "dot"}}, Deps{Config: cfg})
		assert.ErrorIs(t, err, config.ErrInvalid)
	})

	t.Run("history without database", func(t *testing.T) {
		_, err := Build([]config.ReporterSpec{{Name: HistoryName}}, Deps{Config: cfg})
		assert.ErrorIs(t, err, config.ErrInvalid)
	})

	t.Run("output file", func(t *testing.T) {
		spec := config.ReporterSpec{
			Name:    NativeTextName,
			Options: map[string]any{"outputFile": "reports/run.txt"},
		}
		m, err := Build([]config.ReporterSpec{spec}, Deps{Stdout: &bytes.Buffer{}, Config: cfg, Logger: &fakeWarner{}})
		require.NoError(t, err)

		m.OnBegin(runConfig(), &domain.Suite{})
		require.NoError(t, m.OnEnd(domain.FullResult{Status: domain.RunPassed}))

		data, err := os.ReadFile(filepath.Join(cfg.ProjectPath, "reports", "run.txt"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "0 tests run")
		assert.NotContains(t, string(data), "\x1b[")
	})

	t.Run("output files closed when a later reporter fails", func(t *testing.T) {
		var files []*trackedFile
		orig := openReportFile
		openReportFile = func(path string) (io.WriteCloser, error) {
			f := &trackedFile{}
			files = append(files, f)
			return f, nil
		}
		t.Cleanup(func() { openReportFile = orig })

		specs := []config.ReporterSpec{
			{Name: NativeTextName, Options: map[string]any{"outputFile": "reports/a.txt"}},
			{Name: NativeTextName, Options: map[string]any{"outputFile": "reports/b.txt"}},
			{Name: "dot"},
		}
		_, err := Build(specs, Deps{Stdout: &bytes.Buffer{}, Config: cfg, Logger: &fakeWarner{}})
		require.ErrorIs(t, err, config.ErrInvalid)

		require.Len(t, files, 2)
		for i, f := range files {
			assert.True(t, f.closed, "output file %d left open", i)
		}
	})
}

type trackedFile struct {
	bytes.Buffer
	closed bool
}

func (f *trackedFile) Close() error {
	f.closed = true
	return nil
}
