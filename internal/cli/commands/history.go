package commands

import (
	"context"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/spf13/cobra"

	"ntr/internal/config"
	"ntr/internal/discovery"
	"ntr/internal/storage"
	"ntr/internal/ui"
)

// historyTimeout bounds the migrate and query round trips
const historyTimeout = 30 * time.Second

// HistoryCommand handles the history command
type HistoryCommand struct {
	config *config.Config
	logger log.Logger
	parser *discovery.Parser
}

// NewHistoryCommand creates a new HistoryCommand
func NewHistoryCommand(cfg *config.Config, logger log.Logger, parser *discovery.Parser) *HistoryCommand {
	return &HistoryCommand{config: cfg, logger: logger, parser: parser}
}

// Execute runs the command
func (hc *HistoryCommand) Execute(cmd *cobra.Command, args []string) error {
	history, err := storage.OpenMySQLHistory(hc.config)
	if err != nil {
		return err
	}
	defer history.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), historyTimeout)
	defer cancel()

	if err := history.Ping(ctx); err != nil {
		return err
	}

	if hc.config.Flags.Migrate {
		if err := history.Migrate(ctx); err != nil {
			return err
		}
		hc.logger.Donef("History table %s is ready", hc.config.History.Table)
	}

	runs, err := history.Recent(ctx, hc.config.Flags.Limit)
	if err != nil {
		return err
	}
	ui.NewFormatter(hc.config, hc.parser, cmd.OutOrStdout()).PrintHistory(runs)
	return nil
}
