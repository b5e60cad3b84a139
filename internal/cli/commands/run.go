package commands

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ntr/internal/config"
	"ntr/internal/execution"
)

// RunCommand handles the run command
type RunCommand struct {
	config      *config.Config
	session     *session
	newExecutor func(cfg *config.Config, stderr io.Writer, args []string) execution.Executor
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(cfg *config.Config, s *session) *RunCommand {
	return &RunCommand{
		config:  cfg,
		session: s,
		newExecutor: func(cfg *config.Config, stderr io.Writer, args []string) execution.Executor {
			return execution.NewRunner(cfg, stderr, args...)
		},
	}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	executor := rc.newExecutor(rc.config, cmd.ErrOrStderr(), args)

	var res execution.Result
	code, err := executor.Run(ctx, func(stdout io.Reader) error {
		var dispatchErr error
		res, dispatchErr = rc.session.dispatch(ctx, cmd, stdout)
		return dispatchErr
	})
	if err != nil && res.Full.Status == "" {
		// The engine never started or the reporters could not be built
		return err
	}
	rc.session.logger.Debugf("Engine exited with code %d", code)

	return rc.session.finish(res, err)
}
