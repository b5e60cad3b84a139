package domain

import "time"

// FailedTest pairs a failing attempt with its test
type FailedTest struct {
	Test   *TestCase
	Result *TestResult
}

// RunSummary aggregates the attempts reported during a run
type RunSummary struct {
	Passed      int
	Failed      int
	TimedOut    int
	Skipped     int
	Interrupted int

	// Flaky counts tests that passed on a retry after a failing attempt.
	Flaky int
	// Retried counts attempts with a non-zero retry index.
	Retried int

	Duration   time.Duration
	Failures   []FailedTest
	Unfinished []*TestCase
}

// Total is the number of recorded attempts
func (s *RunSummary) Total() int {
	return s.Passed + s.Failed + s.TimedOut + s.Skipped + s.Interrupted
}

// Add counts one attempt under its outcome
func (s *RunSummary) Add(status Status) {
	switch status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusTimedOut:
		s.TimedOut++
	case StatusSkipped:
		s.Skipped++
	default:
		s.Interrupted++
	}
}

// UseOptions are the browser launch options echoed from the engine config
type UseOptions struct {
	Headless   bool
	Screenshot string
	Video      string
}

// RunConfig is the resolved configuration handed to reporters at run start
type RunConfig struct {
	TestDir   string
	Timeout   time.Duration
	Retries   int
	Workers   int
	Reporters []string
	Use       UseOptions
}
