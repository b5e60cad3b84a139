package commands

import (
	"errors"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ntr/internal/cli"
	"ntr/internal/config"
	"ntr/internal/discovery"
	"ntr/internal/events"
	"ntr/internal/storage"
	"ntr/internal/ui"
)

// ErrTestsFailed is returned when the engine's verdict is anything but passed
var ErrTestsFailed = errors.New("tests did not pass")

// Commands holds all CLI commands
type Commands struct {
	Run      *RunCommand
	Report   *ReportCommand
	Summary  *SummaryCommand
	Failures *FailuresCommand
	List     *ListCommand
	History  *HistoryCommand
}

// NewCommands creates all commands with dependencies.
// cfg is filled in by the root command's PersistentPreRunE before any command executes.
func NewCommands(cfg *config.Config, logger log.Logger) *Commands {
	testCaseParser := discovery.NewParser()
	filter := discovery.NewFilter()
	jsonStorage := storage.NewJSONStorage(cfg)
	errorViewer := ui.NewErrorViewer(cfg, jsonStorage)
	session := newSession(cfg, logger, jsonStorage, errorViewer)

	return &Commands{
		Run:      NewRunCommand(cfg, session),
		Report:   NewReportCommand(cfg, session),
		Summary:  NewSummaryCommand(cfg, jsonStorage, testCaseParser),
		Failures: NewFailuresCommand(cfg, jsonStorage, errorViewer, testCaseParser),
		List:     NewListCommand(cfg, filter, testCaseParser, jsonStorage),
		History:  NewHistoryCommand(cfg, logger, testCaseParser),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config, logger log.Logger) {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "Path to the config file (default: ntr.yaml in the project)")
	rootCmd.PersistentFlags().StringVarP(&flags.ProjectPath, "project", "p", config.DefaultProjectPath, "Project directory")
	rootCmd.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "Disable coloured output")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")

	// Load config after flags are parsed, then apply flag overrides
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger.EnableDebugLog(flags.Verbose)
		if flags.NoColor {
			color.NoColor = true
		}

		loaded, err := config.Load(flags.ProjectPath, flags.ConfigFile)
		if err != nil {
			return err
		}
		*cfg = *loaded
		cfg.ApplyFlags(flags.ToConfigFlags())
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.ConfigFile != "" {
			logger.Debugf("Loaded config from %s", cfg.ConfigFile)
		}
		return nil
	}

	// Run command
	runCmd := &cobra.Command{
		Use:   "run [-- engine args]",
		Short: "Run the test engine and report its results",
		Long:  "Start the configured engine, read its event stream and drive the configured reporters",
		RunE:  c.Run.Execute,
	}
	runCmd.Flags().IntVarP(&flags.Workers, "workers", "w", 0, "Number of concurrent workers (overrides the config)")
	runCmd.Flags().StringSliceVarP(&flags.Reporters, "reporter", "r", nil, "Reporters to use, e.g. -r line,native-text (overrides the config)")
	runCmd.Flags().StringVar(&flags.Format, "format", events.FormatNTR, "Event stream format the engine writes (ntr or gotest)")
	runCmd.Flags().BoolVar(&flags.OpenFailures, "open-failures", false, "Open the failures viewer when the run finishes with failures")
	rootCmd.AddCommand(runCmd)

	// Report command
	reportCmd := &cobra.Command{
		Use:   "report [file|-]",
		Short: "Report a recorded event stream",
		Long:  "Read an event stream from a file or stdin and drive the configured reporters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.Report.Execute,
	}
	reportCmd.Flags().IntVarP(&flags.Workers, "workers", "w", 0, "Number of concurrent workers (overrides the config)")
	reportCmd.Flags().StringSliceVarP(&flags.Reporters, "reporter", "r", nil, "Reporters to use (overrides the config)")
	reportCmd.Flags().StringVar(&flags.Format, "format", events.FormatNTR, "Event stream format (ntr or gotest)")
	reportCmd.Flags().BoolVar(&flags.OpenFailures, "open-failures", false, "Open the failures viewer when the run finished with failures")
	rootCmd.AddCommand(reportCmd)

	// Summary command
	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Show statistics of the last run",
		Long:  "Display the statistics table and failure tree saved by the json reporter",
		Args:  cobra.NoArgs,
		RunE:  c.Summary.Execute,
	}
	rootCmd.AddCommand(summaryCmd)

	// Failures command
	failuresCmd := &cobra.Command{
		Use:   "failures",
		Short: "View failures of the last run",
		Long:  "Browse the failures saved by the json reporter in an interactive viewer and mark them resolved",
		Args:  cobra.NoArgs,
		RunE:  c.Failures.Execute,
	}
	failuresCmd.Flags().BoolVar(&flags.Print, "print", false, "Print failures instead of opening the viewer")
	failuresCmd.Flags().BoolVarP(&flags.All, "all", "a", false, "Include failures marked as resolved when printing")
	rootCmd.AddCommand(failuresCmd)

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered tests",
		Long:  "Scan and list spec files without running them",
		Args:  cobra.NoArgs,
		RunE:  c.List.Execute,
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter tests by name pattern (supports wildcards, e.g., '*login.spec.ts' or '*checkout*')")
	listCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Path to the folder where test detection should start")
	listCmd.Flags().BoolVarP(&flags.TestCases, "test-cases", "C", false, "List test cases under each file")
	rootCmd.AddCommand(listCmd)

	// History command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the history database",
		Long:  "List runs recorded by the history reporter in MySQL",
		Args:  cobra.NoArgs,
		RunE:  c.History.Execute,
	}
	historyCmd.Flags().BoolVarP(&flags.Migrate, "migrate", "m", false, "Create the history table before listing")
	historyCmd.Flags().IntVarP(&flags.Limit, "limit", "n", 20, "Number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
