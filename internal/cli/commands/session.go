package commands

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ntr/internal/config"
	"ntr/internal/domain"
	"ntr/internal/events"
	"ntr/internal/execution"
	"ntr/internal/reporter"
	"ntr/internal/storage"
	"ntr/internal/ui"
)

// session is the reporting pipeline shared by run and report
type session struct {
	config  *config.Config
	logger  log.Logger
	storage storage.Storage
	viewer  ui.Viewer
}

func newSession(cfg *config.Config, logger log.Logger, st storage.Storage, viewer ui.Viewer) *session {
	return &session{config: cfg, logger: logger, storage: st, viewer: viewer}
}

// reporters builds the configured reporters; release closes what they hold open
func (s *session) reporters(cmd *cobra.Command) (m *reporter.Multi, release func(), err error) {
	release = func() {}
	deps := reporter.Deps{
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
		Color:   !color.NoColor,
		Logger:  s.logger,
		Config:  s.config,
		Storage: s.storage,
	}

	if slices.Contains(s.config.ReporterNames(), reporter.HistoryName) {
		history, err := storage.OpenMySQLHistory(s.config)
		if err != nil {
			return nil, release, err
		}
		deps.History = history
		release = func() {
			if err := history.Close(); err != nil {
				s.logger.Warnf("Failed to close history database: %v", err)
			}
		}
	}

	m, err = reporter.Build(s.config.Reporter, deps)
	if err != nil {
		release()
		return nil, func() {}, err
	}
	return m, release, nil
}

// dispatch decodes r and drives the reporters until the stream ends
func (s *session) dispatch(ctx context.Context, cmd *cobra.Command, r io.Reader) (execution.Result, error) {
	src, err := events.NewSource(s.config.Flags.Format, r)
	if err != nil {
		return execution.Result{}, err
	}

	multi, closeReporters, err := s.reporters(cmd)
	if err != nil {
		return execution.Result{}, err
	}
	defer closeReporters()

	s.logger.Debugf("Reporting with %v", s.config.ReporterNames())
	d := execution.NewDispatcher(multi, s.config.RunConfig(), s.logger)
	return d.Dispatch(ctx, src)
}

// finish reports reporter failures, optionally opens the viewer and maps the verdict to an error
func (s *session) finish(res execution.Result, streamErr error) error {
	if res.ReporterErr != nil {
		// Output problems never change the verdict
		s.logger.Errorf("Reporter error: %v", res.ReporterErr)
	}

	if s.config.Flags.OpenFailures && res.Full.Status != domain.RunPassed {
		s.openFailures()
	}

	if streamErr != nil {
		return streamErr
	}
	if res.Full.Status != domain.RunPassed {
		return fmt.Errorf("%w: run %s", ErrTestsFailed, res.Full.Status)
	}
	return nil
}

func (s *session) openFailures() {
	if !slices.Contains(s.config.ReporterNames(), reporter.JSONName) {
		s.logger.Warnf("--open-failures needs the %s reporter to save failures", reporter.JSONName)
		return
	}
	results, err := s.storage.Load()
	if err != nil {
		s.logger.Warnf("Failed to load failures: %v", err)
		return
	}
	if len(results.Details) == 0 {
		return
	}
	if err := s.viewer.View(results); err != nil {
		s.logger.Warnf("Failures viewer: %v", err)
	}
}
