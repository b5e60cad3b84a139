package commands

import (
	"github.com/spf13/cobra"

	"ntr/internal/config"
	"ntr/internal/discovery"
	"ntr/internal/storage"
	"ntr/internal/ui"
)

// FailuresCommand handles the failures command
type FailuresCommand struct {
	config  *config.Config
	storage storage.Storage
	viewer  ui.Viewer
	parser  *discovery.Parser
}

// NewFailuresCommand creates a new FailuresCommand
func NewFailuresCommand(cfg *config.Config, st storage.Storage, viewer ui.Viewer, parser *discovery.Parser) *FailuresCommand {
	return &FailuresCommand{
		config:  cfg,
		storage: st,
		viewer:  viewer,
		parser:  parser,
	}
}

// Execute runs the command
func (fc *FailuresCommand) Execute(cmd *cobra.Command, args []string) error {
	results, err := fc.storage.Load()
	if err != nil {
		return err
	}

	if fc.config.Flags.Print {
		ui.NewFormatter(fc.config, fc.parser, cmd.OutOrStdout()).PrintFailures(results.Details, fc.config.Flags.All)
		return nil
	}
	return fc.viewer.View(results)
}
