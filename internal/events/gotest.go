package events

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"ntr/internal/domain"
)

// maxReasonLen caps the one-line failure reason, in runes
const maxReasonLen = 100

// goTestEvent is a single line of `go test -json` output
type goTestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"` // seconds
	Output  string    `json:"Output"`
}

// GoTestDecoder adapts `go test -json` output to lifecycle events.
// Go tests are not enumerated up front, so the begin event carries an empty
// suite and the end event is synthesised at EOF.
type GoTestDecoder struct {
	scanner *bufio.Scanner
	queue   []Event
	begun   bool
	ended   bool
	failed  bool
	start   time.Time
	last    time.Time
	running map[string]*domain.TestCase
	output  map[string][]string
}

// NewGoTestDecoder creates a GoTestDecoder reading from r
func NewGoTestDecoder(r io.Reader) *GoTestDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &GoTestDecoder{
		scanner: scanner,
		running: make(map[string]*domain.TestCase),
		output:  make(map[string][]string),
	}
}

// Next returns the next event. Lines that are not JSON (build output) are skipped.
func (d *GoTestDecoder) Next() (Event, error) {
	for len(d.queue) == 0 {
		if d.ended {
			return Event{}, io.EOF
		}
		if !d.scanner.Scan() {
			if err := d.scanner.Err(); err != nil {
				return Event{}, err
			}
			d.finish()
			continue
		}

		var ev goTestEvent
		if err := json.Unmarshal(d.scanner.Bytes(), &ev); err != nil {
			continue
		}
		d.handle(ev)
	}

	ev := d.queue[0]
	d.queue = d.queue[1:]
	return ev, nil
}

func (d *GoTestDecoder) handle(ev goTestEvent) {
	d.begin(ev.Time)
	if !ev.Time.IsZero() {
		d.last = ev.Time
	}

	// Package-level events: only a failing package matters (build errors)
	if ev.Test == "" {
		if ev.Action == "fail" {
			d.failed = true
		}
		return
	}

	key := ev.Package + "/" + ev.Test
	switch ev.Action {
	case "run":
		tc := newGoTestCase(ev.Package, ev.Test)
		d.running[key] = tc
		d.queue = append(d.queue, Event{
			Type:   TypeTestBegin,
			Test:   tc,
			Result: &domain.TestResult{WorkerIndex: -1, StartTime: ev.Time},
		})

	case "output":
		if ev.Output != "" {
			d.output[key] = append(d.output[key], ev.Output)
		}

	case "pass", "fail", "skip":
		tc, ok := d.running[key]
		if !ok {
			tc = newGoTestCase(ev.Package, ev.Test)
		}
		delete(d.running, key)

		result := &domain.TestResult{
			Status:      goTestStatus(ev.Action),
			Duration:    time.Duration(ev.Elapsed * float64(time.Second)),
			WorkerIndex: -1,
		}
		if ev.Action == "fail" {
			d.failed = true
			lines := d.output[key]
			result.Errors = []domain.TestError{{
				Message: extractFailureReason(lines),
				Stack:   strings.TrimRight(strings.Join(lines, ""), "\n"),
			}}
		}
		delete(d.output, key)
		d.queue = append(d.queue, Event{Type: TypeTestEnd, Test: tc, Result: result})
	}
}

func (d *GoTestDecoder) begin(at time.Time) {
	if d.begun {
		return
	}
	d.begun = true
	d.start = at
	d.queue = append(d.queue, Event{Type: TypeBegin, Suite: &domain.Suite{}})
}

func (d *GoTestDecoder) finish() {
	d.begin(time.Time{})
	status := domain.RunPassed
	if d.failed {
		status = domain.RunFailed
	}
	var duration time.Duration
	if !d.start.IsZero() && !d.last.IsZero() {
		duration = d.last.Sub(d.start)
	}
	d.queue = append(d.queue, Event{
		Type: TypeEnd,
		Full: &domain.FullResult{Status: status, StartTime: d.start, Duration: duration},
	})
	d.ended = true
}

func newGoTestCase(pkg, test string) *domain.TestCase {
	parts := strings.Split(test, "/")
	return &domain.TestCase{
		ID:        pkg + "/" + test,
		Title:     parts[len(parts)-1],
		TitlePath: append([]string{pkg}, parts...),
		Location:  domain.Location{File: pkg},
	}
}

func goTestStatus(action string) domain.Status {
	switch action {
	case "pass":
		return domain.StatusPassed
	case "skip":
		return domain.StatusSkipped
	default:
		return domain.StatusFailed
	}
}

// extractFailureReason picks the most relevant line of a failing test's output
func extractFailureReason(lines []string) string {
	// Prefer the file.go:123: message form testing.T produces
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isBoilerplate(trimmed) {
			continue
		}
		idx := strings.Index(trimmed, ".go:")
		if idx < 0 {
			continue
		}
		rest := trimmed[idx+len(".go:"):]
		if colon := strings.Index(rest, ": "); colon != -1 {
			return truncate(strings.TrimSpace(rest[colon+2:]))
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !isBoilerplate(trimmed) {
			return truncate(trimmed)
		}
	}
	return ""
}

func isBoilerplate(line string) bool {
	return line == "" ||
		strings.HasPrefix(line, "=== RUN") ||
		strings.HasPrefix(line, "=== PAUSE") ||
		strings.HasPrefix(line, "=== CONT") ||
		strings.HasPrefix(line, "--- FAIL") ||
		strings.HasPrefix(line, "--- PASS") ||
		strings.HasPrefix(line, "--- SKIP")
}

// truncate caps s at maxReasonLen runes
func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxReasonLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxReasonLen-3]) + "..."
}
