package execution

import (
	"bytes"
	"context"
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
	"ntr/internal/events"
	"ntr/internal/reporter"
)

type fakeLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *fakeLogger) Debugf(string, ...interface{}) {}

func (l *fakeLogger) Warnf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, v...))
}

// sliceSource replays events and then returns err (io.EOF when nil)
type sliceSource struct {
	events []events.Event
	err    error
}

func (s *sliceSource) Next() (events.Event, error) {
	if len(s.events) == 0 {
		if s.err != nil {
			return events.Event{}, s.err
		}
		return events.Event{}, io.EOF
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}

// blockingSource never yields
type blockingSource struct {
	release chan struct{}
}

func (s blockingSource) Next() (events.Event, error) {
	<-s.release
	return events.Event{}, io.EOF
}

type recorder struct {
	mu      sync.Mutex
	cfg     domain.RunConfig
	begins  int
	ends    map[string][]domain.Status
	order   map[string][]events.Type
	full    []domain.FullResult
	endErr  error
	workers map[int]bool
}

func newRecorder() *recorder {
	return &recorder{
		ends:    make(map[string][]domain.Status),
		order:   make(map[string][]events.Type),
		workers: make(map[int]bool),
	}
}

func (r *recorder) OnBegin(cfg domain.RunConfig, _ *domain.Suite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	r.begins++
}

func (r *recorder) OnTestBegin(test *domain.TestCase, _ *domain.TestResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order[test.Key()] = append(r.order[test.Key()], events.TypeTestBegin)
}

func (r *recorder) OnTestEnd(test *domain.TestCase, result *domain.TestResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order[test.Key()] = append(r.order[test.Key()], events.TypeTestEnd)
	r.ends[test.Key()] = append(r.ends[test.Key()], result.Status)
}

func (r *recorder) OnEnd(full domain.FullResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.full = append(r.full, full)
	return r.endErr
}

var _ reporter.Reporter = (*recorder)(nil)

func testEvents(n int) []events.Event {
	var evs []events.Event
	tests := make([]*domain.TestCase, n)
	for i := range tests {
		tests[i] = &domain.TestCase{ID: fmt.Sprintf("t%d", i), Title: fmt.Sprintf("case %d", i)}
	}
	evs = append(evs, events.Event{
		Type:   events.TypeBegin,
		Config: &events.EngineConfig{Workers: 3, Retries: 2},
		Suite:  &domain.Suite{Tests: tests},
	})
	for i, tc := range tests {
		worker := i % 3
		evs = append(evs,
			events.Event{Type: events.TypeTestBegin, Test: tc, Result: &domain.TestResult{WorkerIndex: worker}},
			events.Event{Type: events.TypeTestEnd, Test: tc, Result: &domain.TestResult{Status: domain.StatusPassed, WorkerIndex: worker}},
		)
	}
	return evs
}

func TestDispatcher_FullRun(t *testing.T) {
	evs := testEvents(50)
	evs = append(evs, events.Event{Type: events.TypeEnd, Full: &domain.FullResult{Status: domain.RunPassed, Duration: time.Second}})

	rec := newRecorder()
	logger := &fakeLogger{}
	d := NewDispatcher(rec, domain.RunConfig{Workers: 1, Retries: 0}, logger)

	res, err := d.Dispatch(context.Background(), &sliceSource{events: evs})
	require.NoError(t, err)
	require.NoError(t, res.ReporterErr)

	assert.Equal(t, domain.RunPassed, res.Full.Status)
	assert.Equal(t, 1, rec.begins)
	require.Len(t, rec.full, 1)
	assert.Equal(t, 3, rec.cfg.Workers, "engine config overrides local workers")
	assert.Equal(t, 2, rec.cfg.Retries)
	assert.Len(t, rec.ends, 50)
	for key, order := range rec.order {
		assert.Equal(t, []events.Type{events.TypeTestBegin, events.TypeTestEnd}, order, key)
	}
	assert.Empty(t, logger.warns)
}

func TestDispatcher_MissingEnd(t *testing.T) {
	rec := newRecorder()
	logger := &fakeLogger{}
	d := NewDispatcher(rec, domain.RunConfig{Workers: 2}, logger)

	res, err := d.Dispatch(context.Background(), &sliceSource{events: testEvents(4)})
	require.NoError(t, err)

	assert.Equal(t, domain.RunInterrupted, res.Full.Status)
	require.Len(t, rec.full, 1)
	assert.Len(t, rec.ends, 4)
	assert.Len(t, logger.warns, 1)
}

func TestDispatcher_DecodeError(t *testing.T) {
	rec := newRecorder()
	decodeErr := &events.DecodeError{Line: 3, Err: errors.New("unexpected EOF")}
	d := NewDispatcher(rec, domain.RunConfig{Workers: 2}, &fakeLogger{})

	res, err := d.Dispatch(context.Background(), &sliceSource{events: testEvents(1), err: decodeErr})

	var de *events.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 3, de.Line)
	assert.Equal(t, domain.RunInterrupted, res.Full.Status)
	assert.Len(t, rec.full, 1, "OnEnd still runs")
}

func TestDispatcher_EmptyStream(t *testing.T) {
	rec := newRecorder()
	d := NewDispatcher(rec, domain.RunConfig{Workers: 2}, &fakeLogger{})

	res, err := d.Dispatch(context.Background(), &sliceSource{})
	require.NoError(t, err)

	assert.Equal(t, 1, rec.begins, "OnBegin precedes OnEnd even without a begin event")
	assert.Len(t, rec.full, 1)
	assert.Equal(t, domain.RunInterrupted, res.Full.Status)
}

func TestDispatcher_Cancelled(t *testing.T) {
	rec := newRecorder()
	d := NewDispatcher(rec, domain.RunConfig{Workers: 2}, &fakeLogger{})

	src := blockingSource{release: make(chan struct{})}
	defer close(src.release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := d.Dispatch(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.RunInterrupted, res.Full.Status)
	assert.Len(t, rec.full, 1)
}

func TestDispatcher_ReporterError(t *testing.T) {
	rec := newRecorder()
	rec.endErr = &reporter.IOError{Reporter: "native-text", Op: "flush", Err: os.ErrClosed}
	d := NewDispatcher(rec, domain.RunConfig{Workers: 1}, &fakeLogger{})

	evs := []events.Event{
		{Type: events.TypeBegin, Suite: &domain.Suite{}},
		{Type: events.TypeEnd, Full: &domain.FullResult{Status: domain.RunFailed}},
	}
	res, err := d.Dispatch(context.Background(), &sliceSource{events: evs})
	require.NoError(t, err)

	assert.Equal(t, domain.RunFailed, res.Full.Status, "reporter failure leaves the verdict alone")
	var ioErr *reporter.IOError
	assert.ErrorAs(t, res.ReporterErr, &ioErr)
}

func TestDispatcher_RetriesStayOrdered(t *testing.T) {
	tc := &domain.TestCase{ID: "flaky"}
	evs := []events.Event{{Type: events.TypeBegin, Suite: &domain.Suite{Tests: []*domain.TestCase{tc}}}}
	for retry := 0; retry < 5; retry++ {
		// Each retry comes from a different engine worker
		result := &domain.TestResult{Retry: retry, WorkerIndex: retry, Status: domain.StatusFailed}
		evs = append(evs,
			events.Event{Type: events.TypeTestBegin, Test: tc, Result: result},
			events.Event{Type: events.TypeTestEnd, Test: tc, Result: result},
		)
	}
	evs = append(evs, events.Event{Type: events.TypeEnd, Full: &domain.FullResult{Status: domain.RunFailed}})

	rec := newRecorder()
	d := NewDispatcher(rec, domain.RunConfig{Workers: 4}, &fakeLogger{})
	_, err := d.Dispatch(context.Background(), &sliceSource{events: evs})
	require.NoError(t, err)

	order := rec.order["flaky"]
	require.Len(t, order, 10)
	for i := 0; i < len(order); i += 2 {
		assert.Equal(t, events.TypeTestBegin, order[i])
		assert.Equal(t, events.TypeTestEnd, order[i+1])
	}
}

func TestDispatcher_NativeTextEndToEnd(t *testing.T) {
	stream := `{"type":"begin","version":"1.0","config":{"workers":2},"suite":{"tests":[{"id":"a","title":"passes","location":{"file":"a.spec.ts","line":1,"column":1}},{"id":"b","title":"fails","location":{"file":"a.spec.ts","line":5,"column":1}}]}}
{"type":"testBegin","testId":"a","result":{"workerIndex":0}}
{"type":"testBegin","testId":"b","result":{"workerIndex":1}}
{"type":"testEnd","testId":"a","result":{"status":"passed","duration":10,"workerIndex":0}}
{"type":"testEnd","testId":"b","result":{"status":"failed","duration":20,"workerIndex":1,"errors":[{"message":"boom"}]}}
{"type":"end","result":{"status":"failed","duration":40}}
`
	var out bytes.Buffer
	native := reporter.NewNativeText(&out, reporter.WithColor(false), reporter.WithLogger(&fakeLogger{}))
	d := NewDispatcher(reporter.NewMulti(native), domain.RunConfig{Workers: 1}, &fakeLogger{})

	res, err := d.Dispatch(context.Background(), events.NewDecoder(strings.NewReader(stream)))
	require.NoError(t, err)
	require.NoError(t, res.ReporterErr)

	assert.Equal(t, domain.RunFailed, res.Full.Status)
	assert.Contains(t, out.String(), "Running 2 tests using 2 workers")
	assert.Contains(t, out.String(), "2 tests run: 1 passed, 1 failed")
	assert.Contains(t, out.String(), "boom")
}

func TestRoundRobinScheduler(t *testing.T) {
	s := NewRoundRobinScheduler()

	assert.Equal(t, 1, s.Assign("a", 5, 4), "worker index wraps to a lane")
	assert.Equal(t, 1, s.Assign("a", 2, 4), "a test keeps its lane")
	assert.Equal(t, 0, s.Assign("b", -1, 4))
	assert.Equal(t, 1, s.Assign("c", -1, 4))
	assert.Equal(t, 2, s.Assign("d", -1, 4))
	assert.Equal(t, 0, s.Assign("e", -1, 0), "zero lanes means one")
}

func TestRunner_Command(t *testing.T) {
	cfg := config.New()
	cfg.Engine.Command = `node "./scripts/run engine.js"`
	cfg.Engine.Args = `--grep 'logs in' --project=chromium`

	argv, err := NewRunner(cfg, io.Discard, "--headed").Command()
	require.NoError(t, err)
	assert.Equal(t, []string{"node", "./scripts/run engine.js", "--grep", "logs in", "--project=chromium", "--headed"}, argv)

	cfg.Engine.Command = ""
	_, err = NewRunner(cfg, io.Discard).Command()
	assert.ErrorIs(t, err, config.ErrInvalid)

	cfg.Engine.Command = "node"
	cfg.Engine.Args = `'unterminated`
	_, err = NewRunner(cfg, io.Discard).Command()
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestRunner_Env(t *testing.T) {
	cfg := config.New()
	cfg.Workers, cfg.Retries, cfg.Timeout = 3, 2, 5000

	env := NewRunner(cfg, io.Discard).Env()
	assert.Contains(t, env, "NTR_WORKERS=3")
	assert.Contains(t, env, "NTR_RETRIES=2")
	assert.Contains(t, env, "NTR_TIMEOUT_MS=5000")
}

func TestRunner_Run(t *testing.T) {
	dir := t.TempDir()
	stream := `{"type":"begin","suite":{}}` + "\n" + `{"type":"end","result":{"status":"passed"}}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.jsonl"), []byte(stream), 0644))

	cfg := config.New()
	cfg.ProjectPath = dir
	cfg.Engine.Command = "cat"
	cfg.Engine.Args = "events.jsonl"

	var got []byte
	code, err := NewRunner(cfg, io.Discard).Run(context.Background(), func(stdout io.Reader) error {
		var readErr error
		got, readErr = io.ReadAll(stdout)
		return readErr
	})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, stream, string(got))
}

func TestRunner_ExitCode(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	cfg.Engine.Command = `sh -c 'echo failing >&2; exit 3'`

	var stderr bytes.Buffer
	code, err := NewRunner(cfg, &stderr).Run(context.Background(), func(io.Reader) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "failing\n", stderr.String())
}

func TestRunner_MissingBinary(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	cfg.Engine.Command = "ntr-engine-that-does-not-exist"

	_, err := NewRunner(cfg, io.Discard).Run(context.Background(), func(io.Reader) error { return nil })
	assert.Error(t, err)
}
