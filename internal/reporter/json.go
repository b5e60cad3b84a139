package reporter

import (
	"strings"
	"time"

	"ntr/internal/domain"
	"ntr/internal/storage"
)

// JSONName is the name the json reporter is registered under
const JSONName = "json"

// JSON saves the run's statistics and failure details for the summary,
// failures and viewer commands.
type JSON struct {
	store     storage.Storage
	workers   int
	now       func() time.Time
	collector *collector
}

// NewJSON creates a JSON reporter saving through store
func NewJSON(store storage.Storage) *JSON {
	return &JSON{
		store:     store,
		now:       time.Now,
		collector: newCollector(),
	}
}

func (j *JSON) OnBegin(cfg domain.RunConfig, _ *domain.Suite) {
	j.workers = cfg.Workers
	j.collector.begin()
}

func (j *JSON) OnTestBegin(test *domain.TestCase, _ *domain.TestResult) {
	j.collector.testBegin(test)
}

func (j *JSON) OnTestEnd(test *domain.TestCase, result *domain.TestResult) {
	j.collector.testEnd(test, result)
}

// OnEnd writes the results file
func (j *JSON) OnEnd(full domain.FullResult) error {
	summary := j.collector.finish(full)
	output := BuildOutput(full, summary, j.workers, j.now())
	if err := j.store.Save(output); err != nil {
		return &IOError{Reporter: JSONName, Op: "save", Err: err}
	}
	return nil
}

// BuildOutput converts a finished run into the persisted results structure
func BuildOutput(full domain.FullResult, s domain.RunSummary, workers int, at time.Time) *domain.TestResultsOutput {
	output := &domain.TestResultsOutput{
		Meta: domain.TestResultsMeta{
			Status:           full.Status,
			TotalTests:       s.Total(),
			PassedTests:      s.Passed,
			FailedTests:      s.Failed,
			TimedOutTests:    s.TimedOut,
			SkippedTests:     s.Skipped,
			InterruptedTests: s.Interrupted,
			FlakyTests:       s.Flaky,
			Duration:         FormatDuration(s.Duration),
			DurationSeconds:  s.Duration.Seconds(),
			Workers:          workers,
			Timestamp:        at.Format(time.RFC3339),
		},
		Details: make([]domain.TestFailure, 0, len(s.Failures)),
	}
	for _, f := range s.Failures {
		output.Details = append(output.Details, toFailure(f))
	}
	return output
}

func toFailure(f domain.FailedTest) domain.TestFailure {
	failure := domain.TestFailure{
		TestName:    f.Test.FullTitle(),
		FilePath:    f.Test.Location.File,
		Line:        f.Test.Location.Line,
		Column:      f.Test.Location.Column,
		Status:      f.Result.Status,
		Retry:       f.Result.Retry,
		Attachments: f.Result.Attachments,
		StackTrace:  []string{},
	}

	var messages []string
	for _, e := range f.Result.Errors {
		if e.Message != "" {
			messages = append(messages, e.Message)
		}
		if stack := stackWithoutMessage(e); stack != "" {
			failure.StackTrace = append(failure.StackTrace, strings.Split(stack, "\n")...)
		}
		if failure.Diff == "" {
			failure.Diff = e.Diff
		}
	}
	failure.Message = strings.Join(messages, "\n")
	if failure.Message == "" && f.Result.Status == domain.StatusTimedOut {
		failure.Message = "Test timed out"
	}
	return failure
}
