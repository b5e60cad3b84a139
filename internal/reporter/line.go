package reporter

import (
	"io"
	"sync"

	"ntr/internal/domain"
	"ntr/internal/ui"
)

// LineName is the name the progress line reporter is registered under
const LineName = "line"

// Line keeps a single progress line updated on a terminal while tests finish
type Line struct {
	mu        sync.Mutex
	w         io.Writer
	bar       *ui.ProgressBar
	completed int
	passed    int
	failed    int
	err       error
}

// NewLine creates a Line reporter drawing on w
func NewLine(w io.Writer) *Line {
	return &Line{w: w}
}

// OnBegin sizes the bar to the enumerated suite
func (l *Line) OnBegin(_ domain.RunConfig, suite *domain.Suite) {
	total := len(suite.AllTests())
	if total == 0 {
		total = -1
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.completed, l.passed, l.failed = 0, 0, 0
	l.err = nil
	l.bar = ui.NewProgressBar(total, l.w)
}

// OnTestBegin is a no-op; the bar advances on completion
func (l *Line) OnTestBegin(*domain.TestCase, *domain.TestResult) {}

// OnTestEnd advances the bar
func (l *Line) OnTestEnd(_ *domain.TestCase, result *domain.TestResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bar == nil {
		return
	}

	l.completed++
	switch {
	case result.Status == domain.StatusPassed:
		l.passed++
	case result.IsFailure():
		l.failed++
	}
	if err := l.bar.Update(l.completed, l.passed, l.failed); err != nil && l.err == nil {
		l.err = &IOError{Reporter: LineName, Op: "write", Err: err}
	}
}

// OnEnd finishes the bar
func (l *Line) OnEnd(domain.FullResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bar == nil {
		return nil
	}
	if err := l.bar.Finish(); err != nil && l.err == nil {
		l.err = &IOError{Reporter: LineName, Op: "flush", Err: err}
	}
	return l.err
}
