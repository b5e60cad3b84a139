package reporter

import (
	"context"
	"time"

	"ntr/internal/domain"
	"ntr/internal/storage"
)

// HistoryName is the name the run history reporter is registered under
const HistoryName = "history"

// historyTimeout bounds the insert at the end of a run
const historyTimeout = 10 * time.Second

// History appends a row per run to the history store
type History struct {
	store     storage.History
	workers   int
	collector *collector
}

// NewHistory creates a History reporter
func NewHistory(store storage.History) *History {
	return &History{store: store, collector: newCollector()}
}

func (h *History) OnBegin(cfg domain.RunConfig, _ *domain.Suite) {
	h.workers = cfg.Workers
	h.collector.begin()
}

func (h *History) OnTestBegin(test *domain.TestCase, _ *domain.TestResult) {
	h.collector.testBegin(test)
}

func (h *History) OnTestEnd(test *domain.TestCase, result *domain.TestResult) {
	h.collector.testEnd(test, result)
}

// OnEnd creates the history table when missing and inserts the run
func (h *History) OnEnd(full domain.FullResult) error {
	summary := h.collector.finish(full)

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if m, ok := h.store.(storage.Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			return &IOError{Reporter: HistoryName, Op: "migrate", Err: err}
		}
	}
	if err := h.store.SaveRun(ctx, storage.NewRunRecord(full, summary, h.workers)); err != nil {
		return &IOError{Reporter: HistoryName, Op: "save", Err: err}
	}
	return nil
}
