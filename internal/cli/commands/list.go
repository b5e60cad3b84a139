package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ntr/internal/config"
	"ntr/internal/discovery"
	"ntr/internal/storage"
	"ntr/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	config  *config.Config
	filter  *discovery.Filter
	parser  *discovery.Parser
	storage storage.Storage
}

// NewListCommand creates a new ListCommand
func NewListCommand(
	cfg *config.Config,
	filter *discovery.Filter,
	parser *discovery.Parser,
	st storage.Storage,
) *ListCommand {
	return &ListCommand{
		config:  cfg,
		filter:  filter,
		parser:  parser,
		storage: st,
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	scanner := discovery.NewScanner(lc.config.PathsToIgnore, lc.config.TestMatch)
	tests, err := scanner.Scan(lc.config.GetTestPath())
	if err != nil {
		return err
	}

	// Filter tests
	tests = lc.filter.FilterByName(tests, lc.config.Flags.NameFilter)

	out := cmd.OutOrStdout()
	if len(tests) == 0 {
		fmt.Fprintln(out, color.YellowString("No tests found"))
		return nil
	}

	formatter := ui.NewFormatter(lc.config, lc.parser, out)
	return formatter.PrintTestList(tests, lc.config.Flags.TestCases, lc.failedPaths())
}

// failedPaths marks files that had failures in the last saved run
func (lc *ListCommand) failedPaths() map[string]struct{} {
	results, err := lc.storage.Load()
	if err != nil {
		return nil
	}
	paths := make(map[string]struct{})
	for _, d := range results.Details {
		if d.FilePath != "" && !d.Resolved {
			paths[ui.FailedPathKey(lc.config.ProjectPath, d.FilePath)] = struct{}{}
		}
	}
	return paths
}
