package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"ntr/internal/domain"
	"ntr/internal/events"
	"ntr/internal/reporter"
)

// Logger is the slice of the CLI logger the dispatcher writes to
type Logger interface {
	Debugf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
}

// Result is the outcome of dispatching one run
type Result struct {
	// Full is the engine's verdict, or an interrupted result when the stream broke off.
	Full domain.FullResult
	// ReporterErr joins the errors reporters returned from OnEnd.
	ReporterErr error
}

// Dispatcher replays an event stream into a reporter. Test events are spread
// over worker goroutines so reporters see the same concurrency a live engine
// would produce.
type Dispatcher struct {
	reporter  reporter.Reporter
	cfg       domain.RunConfig
	scheduler Scheduler
	logger    Logger
	now       func() time.Time
}

// NewDispatcher creates a Dispatcher driving r
func NewDispatcher(r reporter.Reporter, cfg domain.RunConfig, logger Logger) *Dispatcher {
	return &Dispatcher{
		reporter:  r,
		cfg:       cfg,
		scheduler: NewRoundRobinScheduler(),
		logger:    logger,
		now:       time.Now,
	}
}

type next struct {
	ev  events.Event
	err error
}

// Dispatch reads src until its end event and calls OnEnd exactly once.
// A stream that breaks off (EOF without end, decode error, cancelled ctx) ends
// the run as interrupted; the stream error is returned alongside the result.
func (d *Dispatcher) Dispatch(ctx context.Context, src events.Source) (Result, error) {
	stream := make(chan next)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			ev, err := src.Next()
			select {
			case stream <- next{ev: ev, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	start := d.now()
	var pool *workerPool

	for {
		select {
		case <-ctx.Done():
			d.logger.Warnf("Run cancelled, reporting partial results")
			return d.finish(pool, d.interrupted(start), ctx.Err())

		case n := <-stream:
			if errors.Is(n.err, io.EOF) {
				d.logger.Warnf("Event stream ended without an end event")
				return d.finish(pool, d.interrupted(start), nil)
			}
			if n.err != nil {
				return d.finish(pool, d.interrupted(start), fmt.Errorf("read events: %w", n.err))
			}

			ev := n.ev
			switch ev.Type {
			case events.TypeBegin:
				if pool != nil {
					d.logger.Warnf("Ignoring repeated begin event")
					continue
				}
				pool = d.begin(ev.Config, ev.Suite)

			case events.TypeTestBegin, events.TypeTestEnd:
				if ev.Test == nil || ev.Result == nil {
					d.logger.Warnf("Ignoring %s event without a test", ev.Type)
					continue
				}
				if pool == nil {
					d.logger.Warnf("Test event before begin, starting run with an empty suite")
					pool = d.begin(nil, &domain.Suite{})
				}
				lane := d.scheduler.Assign(ev.Test.Key(), ev.Result.WorkerIndex, pool.size())
				pool.submit(lane, ev)

			case events.TypeEnd:
				full := *ev.Full
				if full.StartTime.IsZero() {
					full.StartTime = start
				}
				return d.finish(pool, full, nil)
			}
		}
	}
}

func (d *Dispatcher) begin(ec *events.EngineConfig, suite *domain.Suite) *workerPool {
	cfg := d.runConfig(ec)
	d.logger.Debugf("Run started: %d tests, %d workers", len(suite.AllTests()), cfg.Workers)
	d.reporter.OnBegin(cfg, suite)
	return newWorkerPool(cfg.Workers, d.reporter)
}

// runConfig overlays the engine's echoed config on the local one
func (d *Dispatcher) runConfig(ec *events.EngineConfig) domain.RunConfig {
	cfg := d.cfg
	if ec == nil {
		return cfg
	}
	if ec.TestDir != "" {
		cfg.TestDir = ec.TestDir
	}
	if ec.Timeout > 0 {
		cfg.Timeout = time.Duration(ec.Timeout) * time.Millisecond
	}
	if ec.Retries > 0 {
		cfg.Retries = ec.Retries
	}
	if ec.Workers > 0 {
		cfg.Workers = ec.Workers
	}
	return cfg
}

func (d *Dispatcher) interrupted(start time.Time) domain.FullResult {
	return domain.FullResult{
		Status:    domain.RunInterrupted,
		StartTime: start,
		Duration:  d.now().Sub(start),
	}
}

func (d *Dispatcher) finish(pool *workerPool, full domain.FullResult, streamErr error) (Result, error) {
	if pool == nil {
		d.reporter.OnBegin(d.cfg, &domain.Suite{})
	} else {
		pool.wait()
	}
	d.logger.Debugf("Run finished: %s", full.Status)
	return Result{Full: full, ReporterErr: d.reporter.OnEnd(full)}, streamErr
}
