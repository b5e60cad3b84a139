package domain

import "time"

// Status is the outcome of a single test attempt
type Status string

const (
	StatusPassed      Status = "passed"
	StatusFailed      Status = "failed"
	StatusTimedOut    Status = "timedOut"
	StatusSkipped     Status = "skipped"
	StatusInterrupted Status = "interrupted"
)

// Valid reports whether s is one of the known outcomes
func (s Status) Valid() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusTimedOut, StatusSkipped, StatusInterrupted:
		return true
	}
	return false
}

// TestError carries the failure detail of an attempt
type TestError struct {
	Message  string    `json:"message,omitempty"`
	Stack    string    `json:"stack,omitempty"`
	Diff     string    `json:"diff,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// Attachment references an artifact produced by the attempt (screenshot, video, trace)
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Path        string `json:"path,omitempty"`
}

// TestResult is the outcome of one attempt of a TestCase
type TestResult struct {
	Status      Status        `json:"status"`
	Duration    time.Duration `json:"-"`
	StartTime   time.Time     `json:"startTime,omitempty"`
	Retry       int           `json:"retry,omitempty"`
	WorkerIndex int           `json:"workerIndex"`
	Errors      []TestError   `json:"errors,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

// IsFailure reports whether the attempt failed or timed out
func (r *TestResult) IsFailure() bool {
	return r.Status == StatusFailed || r.Status == StatusTimedOut
}

// RunStatus is the verdict of a whole run, as decided by the engine
type RunStatus string

const (
	RunPassed      RunStatus = "passed"
	RunFailed      RunStatus = "failed"
	RunTimedOut    RunStatus = "timedout"
	RunInterrupted RunStatus = "interrupted"
)

// FullResult is handed to reporters when the run ends
type FullResult struct {
	Status    RunStatus
	StartTime time.Time
	Duration  time.Duration
}

// Partial reports whether the run ended before all tests completed
func (r FullResult) Partial() bool {
	return r.Status == RunInterrupted || r.Status == RunTimedOut
}

// TestResultsMeta contains metadata about a test run
type TestResultsMeta struct {
	Status           RunStatus `json:"status"`
	TotalTests       int       `json:"total_tests"`
	PassedTests      int       `json:"passed_tests"`
	FailedTests      int       `json:"failed_tests"`
	TimedOutTests    int       `json:"timed_out_tests"`
	SkippedTests     int       `json:"skipped_tests"`
	InterruptedTests int       `json:"interrupted_tests"`
	FlakyTests       int       `json:"flaky_tests"`
	Duration         string    `json:"duration"`
	DurationSeconds  float64   `json:"duration_seconds"`
	Workers          int       `json:"workers"`
	Timestamp        string    `json:"timestamp"`
}

// TestResultsOutput is the complete persisted structure for a run
type TestResultsOutput struct {
	Meta    TestResultsMeta `json:"meta"`
	Details []TestFailure   `json:"details"`
}
