package reporter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bitrise-io/go-utils/v2/log"

	"ntr/internal/domain"
)

// NativeTextName is the name the native text reporter is registered under
const NativeTextName = "native-text"

// NativeText streams one line per finished test and renders a plain-text
// summary with failure details when the run ends.
type NativeText struct {
	mu        sync.Mutex
	out       *bufio.Writer
	closer    io.Closer
	err       error
	ended     bool
	completed int

	colors    palette
	logger    Warner
	collector *collector
}

// Option configures a NativeText reporter
type Option func(*NativeText)

// WithColor switches ANSI colours on or off
func WithColor(enabled bool) Option {
	return func(r *NativeText) {
		r.colors = newPalette(enabled)
	}
}

// WithLogger sets where warnings about out-of-order events go
func WithLogger(logger Warner) Option {
	return func(r *NativeText) {
		r.logger = logger
	}
}

// WithCloser closes c after the final flush (used for file outputs)
func WithCloser(c io.Closer) Option {
	return func(r *NativeText) {
		r.closer = c
	}
}

// NewNativeText creates a reporter writing to w
func NewNativeText(w io.Writer, opts ...Option) *NativeText {
	r := &NativeText{
		out:       bufio.NewWriter(w),
		colors:    newPalette(false),
		logger:    log.NewLogger(),
		collector: newCollector(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnBegin resets the summary and prints the run header
func (r *NativeText) OnBegin(cfg domain.RunConfig, suite *domain.Suite) {
	r.collector.begin()

	r.mu.Lock()
	r.completed = 0
	r.ended = false
	r.mu.Unlock()

	total := len(suite.AllTests())
	workers := Plural(cfg.Workers, "worker", "workers")
	if total == 0 {
		r.write(fmt.Sprintf("\nRunning tests using %s\n\n", workers))
		return
	}
	r.write(fmt.Sprintf("\nRunning %s using %s\n\n", Plural(total, "test", "tests"), workers))
}

// OnTestBegin records the start time of the attempt
func (r *NativeText) OnTestBegin(test *domain.TestCase, _ *domain.TestResult) {
	r.collector.testBegin(test)
}

// OnTestEnd records the attempt and streams its line to the output
func (r *NativeText) OnTestEnd(test *domain.TestCase, result *domain.TestResult) {
	duration := result.Duration
	if duration == 0 {
		if d, ok := r.collector.elapsed(test); ok {
			duration = d
		}
	}
	if !r.collector.testEnd(test, result) {
		r.logger.Warnf("%s: test %q ended without a matching begin", NativeTextName, test.FullTitle())
	}

	// Build the whole line first so it reaches the writer in one call
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++

	var line strings.Builder
	fmt.Fprintf(&line, "  %s  %d %s", r.colors.mark(result.Status), r.completed, testLabel(test))
	if result.Retry > 0 {
		fmt.Fprintf(&line, " %s", r.colors.yellow.Sprintf("(retry #%d)", result.Retry))
	}
	if result.Status == domain.StatusTimedOut {
		fmt.Fprintf(&line, " %s", r.colors.red.Sprint("[timed out]"))
	}
	fmt.Fprintf(&line, " %s\n", r.colors.dim.Sprintf("(%s)", FormatDuration(duration)))
	r.writeLocked(line.String())
	r.flushLocked()
}

// OnEnd renders the final report and flushes the output.
// The first write, flush or close failure is returned as an *IOError.
func (r *NativeText) OnEnd(full domain.FullResult) error {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		r.logger.Warnf("%s: run already ended, ignoring repeated end", NativeTextName)
		return nil
	}
	r.ended = true
	r.mu.Unlock()

	summary := r.collector.finish(full)
	report := r.render(summary, full)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeLocked(report)
	r.flushLocked()
	if r.closer != nil {
		if err := r.closer.Close(); err != nil && r.err == nil {
			r.err = &IOError{Reporter: NativeTextName, Op: "close", Err: err}
		}
	}
	return r.err
}

func (r *NativeText) render(s domain.RunSummary, full domain.FullResult) string {
	var b bytes.Buffer
	c := r.colors

	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n", c.bold.Sprint("Summary:"))
	fmt.Fprintf(&b, "  %s\n", r.countsLine(s))
	fmt.Fprintf(&b, "  Duration: %s\n", FormatDuration(s.Duration))
	if s.Flaky > 0 {
		fmt.Fprintf(&b, "  %s\n", c.yellow.Sprintf("Flaky: %d", s.Flaky))
	}
	if s.Retried > 0 {
		fmt.Fprintf(&b, "  Retried: %d\n", s.Retried)
	}

	if full.Partial() {
		fmt.Fprintf(&b, "\n%s\n", c.yellow.Sprintf("Run %s before all tests finished.", runStatusLabel(full.Status)))
		if len(s.Unfinished) > 0 {
			fmt.Fprintf(&b, "  %s did not finish:\n", Plural(len(s.Unfinished), "test", "tests"))
			for _, t := range s.Unfinished {
				fmt.Fprintf(&b, "    - %s\n", testLabel(t))
			}
		}
	}

	if len(s.Failures) > 0 {
		fmt.Fprintf(&b, "\n%s\n", c.bold.Sprint("Failures:"))
		for i, f := range s.Failures {
			b.WriteString("\n")
			r.renderFailure(&b, i+1, f)
		}
	}
	b.WriteString("\n")
	return b.String()
}

// countsLine renders "3 tests run: 2 passed, 1 failed", listing non-zero outcomes only
func (r *NativeText) countsLine(s domain.RunSummary) string {
	c := r.colors
	head := Plural(s.Total(), "test run", "tests run")

	var parts []string
	add := func(n int, label string, col func(a ...interface{}) string) {
		if n > 0 {
			parts = append(parts, col(fmt.Sprintf("%d %s", n, label)))
		}
	}
	add(s.Passed, "passed", c.green.Sprint)
	add(s.Failed, "failed", c.red.Sprint)
	add(s.TimedOut, "timed out", c.red.Sprint)
	add(s.Skipped, "skipped", c.yellow.Sprint)
	add(s.Interrupted, "interrupted", c.yellow.Sprint)

	if len(parts) == 0 {
		return head
	}
	return head + ": " + strings.Join(parts, ", ")
}

func (r *NativeText) renderFailure(b *bytes.Buffer, n int, f domain.FailedTest) {
	c := r.colors
	title := testLabel(f.Test)
	if f.Result.Retry > 0 {
		title += fmt.Sprintf(" (retry #%d)", f.Result.Retry)
	}
	fmt.Fprintf(b, "  %d) %s\n", n, c.red.Sprint(title))
	fmt.Fprintf(b, "     Status: %s\n", c.forStatus(f.Result.Status).Sprint(titleCase(StatusLabel(f.Result.Status))))

	const pad = "     "
	for _, e := range f.Result.Errors {
		if e.Message != "" {
			fmt.Fprintf(b, "%s\n", indent(e.Message, pad))
		}
		if stack := stackWithoutMessage(e); stack != "" {
			fmt.Fprintf(b, "%s\n", c.dim.Sprint(indent(stack, pad)))
		}
		if e.Location != nil && e.Location.File != "" {
			fmt.Fprintf(b, "%sat %s\n", pad, e.Location.String())
		}
		if e.Diff != "" {
			fmt.Fprintf(b, "%sDiff:\n%s\n", pad, indent(e.Diff, pad+"  "))
		}
	}
	if len(f.Result.Errors) == 0 {
		fmt.Fprintf(b, "%s%s\n", pad, c.dim.Sprint("(no error details)"))
	}

	for _, a := range f.Result.Attachments {
		if a.Path == "" {
			continue
		}
		kind := a.Name
		if a.ContentType != "" {
			kind = fmt.Sprintf("%s (%s)", a.Name, a.ContentType)
		}
		fmt.Fprintf(b, "%sattachment: %s %s\n", pad, kind, c.cyan.Sprint(a.Path))
	}
}

// write appends to the output and flushes it, keeping the first error
func (r *NativeText) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeLocked(s)
	r.flushLocked()
}

func (r *NativeText) flushLocked() {
	if r.err != nil {
		return
	}
	if err := r.out.Flush(); err != nil {
		r.err = &IOError{Reporter: NativeTextName, Op: "flush", Err: err}
	}
}

func (r *NativeText) writeLocked(s string) {
	if r.err != nil {
		return
	}
	if _, err := r.out.WriteString(s); err != nil {
		r.err = &IOError{Reporter: NativeTextName, Op: "write", Err: err}
	}
}

// testLabel is "file:line:col › full title"
func testLabel(t *domain.TestCase) string {
	loc := t.Location.String()
	if loc == "" {
		return t.FullTitle()
	}
	return loc + domain.TitleSeparator + t.FullTitle()
}

// stackWithoutMessage drops the leading message engines repeat at the top of a stack
func stackWithoutMessage(e domain.TestError) string {
	stack := strings.TrimSpace(e.Stack)
	if msg := strings.TrimSpace(e.Message); msg != "" {
		stack = strings.TrimSpace(strings.TrimPrefix(stack, msg))
	}
	return stack
}

func runStatusLabel(s domain.RunStatus) string {
	if s == domain.RunTimedOut {
		return "timed out"
	}
	return string(s)
}
