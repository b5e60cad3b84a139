package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ntr/internal/config"
)

// ReportCommand handles the report command
type ReportCommand struct {
	config  *config.Config
	session *session
}

// NewReportCommand creates a new ReportCommand
func NewReportCommand(cfg *config.Config, s *session) *ReportCommand {
	return &ReportCommand{config: cfg, session: s}
}

// Execute runs the command
func (rc *ReportCommand) Execute(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open event stream: %w", err)
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := rc.session.dispatch(ctx, cmd, in)
	if err != nil && res.Full.Status == "" {
		return err
	}
	return rc.session.finish(res, err)
}
