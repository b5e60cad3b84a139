package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/spf13/cobra"

	"ntr/internal/cli"
	"ntr/internal/cli/commands"
	"ntr/internal/config"
)

var version = "dev"

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:   "ntr",
		Short: "Native text reporter for browser test runs",
		Long: `ntr drives reporters from a test engine's lifecycle event stream. It prints a live
line per finished test, a summary with failure details, and keeps the last run for later viewing.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Filled in by the root command's PersistentPreRunE once flags are parsed
	cfg := config.New()
	logger := log.NewLogger()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	// Create commands with dependencies
	cmds := commands.NewCommands(cfg, logger)

	// Register all commands
	cmds.Register(rootCmd, &flags, cfg, logger)

	// Execute root command
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		// The reporters already rendered the failures
		if !errors.Is(err, commands.ErrTestsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
