// Package reporter implements the observers driven by a test run's lifecycle
// events. Every Reporter must tolerate OnTestBegin and OnTestEnd being called
// from several goroutines at once.
package reporter

import (
	"errors"

	"ntr/internal/domain"
)

// Reporter receives the lifecycle callbacks of a run, in order:
// OnBegin once, OnTestBegin/OnTestEnd per attempt, OnEnd once.
type Reporter interface {
	OnBegin(cfg domain.RunConfig, suite *domain.Suite)
	OnTestBegin(test *domain.TestCase, result *domain.TestResult)
	OnTestEnd(test *domain.TestCase, result *domain.TestResult)
	// OnEnd renders or persists the run and flushes any buffered output.
	OnEnd(result domain.FullResult) error
}

// Warner is the slice of a logger reporters need
type Warner interface {
	Warnf(format string, v ...interface{})
}

// Multi invokes a list of reporters in order for every event
type Multi struct {
	reporters []Reporter
}

// NewMulti creates a Multi over the given reporters
func NewMulti(reporters ...Reporter) *Multi {
	return &Multi{reporters: reporters}
}

// Len returns the number of registered reporters
func (m *Multi) Len() int {
	return len(m.reporters)
}

// OnBegin forwards to every reporter
func (m *Multi) OnBegin(cfg domain.RunConfig, suite *domain.Suite) {
	for _, r := range m.reporters {
		r.OnBegin(cfg, suite)
	}
}

// OnTestBegin forwards to every reporter
func (m *Multi) OnTestBegin(test *domain.TestCase, result *domain.TestResult) {
	for _, r := range m.reporters {
		r.OnTestBegin(test, result)
	}
}

// OnTestEnd forwards to every reporter
func (m *Multi) OnTestEnd(test *domain.TestCase, result *domain.TestResult) {
	for _, r := range m.reporters {
		r.OnTestEnd(test, result)
	}
}

// OnEnd calls every reporter, even after a failure, and joins their errors
func (m *Multi) OnEnd(result domain.FullResult) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.OnEnd(result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
