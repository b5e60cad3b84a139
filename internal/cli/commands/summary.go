package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ntr/internal/config"
	"ntr/internal/discovery"
	"ntr/internal/storage"
	"ntr/internal/ui"
)

// SummaryCommand handles the summary command
type SummaryCommand struct {
	config  *config.Config
	storage storage.Storage
	parser  *discovery.Parser
}

// NewSummaryCommand creates a new SummaryCommand
func NewSummaryCommand(cfg *config.Config, st storage.Storage, parser *discovery.Parser) *SummaryCommand {
	return &SummaryCommand{config: cfg, storage: st, parser: parser}
}

// Execute runs the command
func (sc *SummaryCommand) Execute(cmd *cobra.Command, args []string) error {
	results, err := sc.storage.Load()
	if err != nil {
		return err
	}

	formatter := ui.NewFormatter(sc.config, sc.parser, cmd.OutOrStdout())
	formatter.ClearScreen = !color.NoColor
	return formatter.PrintMetaStats(results)
}
