package reporter

import (
	"sort"
	"sync"
	"time"

	"ntr/internal/domain"
)

type startedTest struct {
	test *domain.TestCase
	at   time.Time
}

// collector builds a RunSummary from concurrent callbacks
type collector struct {
	mu      sync.Mutex
	now     func() time.Time
	start   time.Time
	started map[string]startedTest
	hadFail map[string]bool
	summary domain.RunSummary
}

func newCollector() *collector {
	c := &collector{now: time.Now}
	c.reset()
	return c
}

func (c *collector) reset() {
	c.start = c.now()
	c.started = make(map[string]startedTest)
	c.hadFail = make(map[string]bool)
	c.summary = domain.RunSummary{}
}

func (c *collector) begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *collector) testBegin(test *domain.TestCase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started[test.Key()] = startedTest{test: test, at: c.now()}
}

// testEnd records an attempt. It returns false when the test never began;
// the attempt is still counted.
func (c *collector) testEnd(test *domain.TestCase, result *domain.TestResult) (matched bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := test.Key()
	_, matched = c.started[key]
	delete(c.started, key)

	c.summary.Add(result.Status)
	if result.Retry > 0 {
		c.summary.Retried++
	}
	switch {
	case result.IsFailure():
		c.hadFail[key] = true
		c.summary.Failures = append(c.summary.Failures, domain.FailedTest{Test: test, Result: result})
	case result.Status == domain.StatusPassed && c.hadFail[key]:
		c.summary.Flaky++
	}
	return matched
}

// finish snapshots the summary; tests that began but never ended are listed as unfinished
func (c *collector) finish(full domain.FullResult) domain.RunSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.summary
	s.Failures = append([]domain.FailedTest(nil), c.summary.Failures...)
	s.Duration = full.Duration
	if s.Duration <= 0 {
		s.Duration = c.now().Sub(c.start)
	}

	s.Unfinished = nil
	for _, st := range c.started {
		s.Unfinished = append(s.Unfinished, st.test)
	}
	sort.Slice(s.Unfinished, func(i, j int) bool {
		return s.Unfinished[i].FullTitle() < s.Unfinished[j].FullTitle()
	})
	return s
}

// elapsed returns how long a started test has been running
func (c *collector) elapsed(test *domain.TestCase) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.started[test.Key()]
	if !ok {
		return 0, false
	}
	return c.now().Sub(st.at), true
}
