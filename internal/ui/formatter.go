package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"ntr/internal/config"
	"ntr/internal/discovery"
	"ntr/internal/domain"
	"ntr/internal/storage"
)

const (
	rowDivider = "├─────────────────────────────────┼─────────────────────────────┤"
	tableTop   = "┌─────────────────────────────────┬─────────────────────────────┐"
	tableEnd   = "└─────────────────────────────────┴─────────────────────────────┘"
)

// Formatter formats and displays output
type Formatter struct {
	config *config.Config
	parser *discovery.Parser
	out    io.Writer

	// ClearScreen clears the terminal before the statistics table
	ClearScreen bool
}

// NewFormatter creates a new Formatter writing to out
func NewFormatter(cfg *config.Config, parser *discovery.Parser, out io.Writer) *Formatter {
	return &Formatter{
		config: cfg,
		parser: parser,
		out:    out,
	}
}

type statRow struct {
	label string
	value string
	paint func(format string, a ...interface{}) string
}

// PrintMetaStats displays the statistics of a saved run and a tree of its failures
func (f *Formatter) PrintMetaStats(output *domain.TestResultsOutput) error {
	if f.ClearScreen {
		fmt.Fprint(f.out, "\033[2J\033[H")
	}

	meta := output.Meta

	// Print header
	fmt.Fprint(f.out, "\n")
	fmt.Fprintln(f.out, color.CyanString("╔═══════════════════════════════════════════════════════════════╗"))
	fmt.Fprintln(f.out, color.CyanString("║                    Test Execution Statistics                  ║"))
	fmt.Fprintln(f.out, color.CyanString("╚═══════════════════════════════════════════════════════════════╝"))
	fmt.Fprintln(f.out)

	rows := []statRow{
		{"Status", string(meta.Status), statusPaint(meta.Status)},
		{"Total Tests", fmt.Sprint(meta.TotalTests), color.WhiteString},
		{"Passed", fmt.Sprint(meta.PassedTests), color.GreenString},
		{"Failed", fmt.Sprint(meta.FailedTests), color.RedString},
		{"Timed Out", fmt.Sprint(meta.TimedOutTests), color.RedString},
		{"Skipped", fmt.Sprint(meta.SkippedTests), color.YellowString},
		{"Interrupted", fmt.Sprint(meta.InterruptedTests), color.YellowString},
		{"Flaky", fmt.Sprint(meta.FlakyTests), color.YellowString},
		{"Duration", fmt.Sprintf("%.2fs", meta.DurationSeconds), color.WhiteString},
		{"Workers", fmt.Sprint(meta.Workers), color.WhiteString},
		{"Timestamp", meta.Timestamp, color.WhiteString},
	}

	fmt.Fprintln(f.out, tableTop)
	for i, row := range rows {
		fmt.Fprintf(f.out, "│ %-31s │ %s │\n", row.label, row.paint("%-27s", row.value))
		if i < len(rows)-1 {
			fmt.Fprintln(f.out, rowDivider)
		}
	}
	fmt.Fprintln(f.out, tableEnd)

	// Print summary line
	fmt.Fprintln(f.out)
	failed := meta.FailedTests + meta.TimedOutTests
	if failed == 0 && meta.Status == domain.RunPassed {
		fmt.Fprintln(f.out, color.GreenString("✓ All tests passed!"))
		return nil
	}
	if failed == 0 {
		fmt.Fprintln(f.out, color.YellowString("! Run %s", meta.Status))
		return nil
	}
	fmt.Fprintln(f.out, color.RedString("✗ %d test attempt(s) failed in %d file(s)", failed, countFiles(output.Details)))
	fmt.Fprintln(f.out)
	f.printFailedTestsTree(output.Details)
	return nil
}

// PrintFailures lists every failure with its message and stack trace
func (f *Formatter) PrintFailures(failures []domain.TestFailure, includeResolved bool) {
	shown := 0
	for _, failure := range failures {
		if failure.Resolved && !includeResolved {
			continue
		}
		shown++
		fmt.Fprintf(f.out, "%s %s\n", color.RedString("%d)", shown), color.RedString(failure.TestName))
		fmt.Fprintf(f.out, "   %s\n", color.CyanString(failureLocation(failure)))
		fmt.Fprintf(f.out, "%s\n", plainFailureDetails(failure, "   "))
	}
	if shown == 0 {
		fmt.Fprintln(f.out, color.GreenString("✓ No unresolved failures"))
	}
}

// failureLocation renders file:line:column of a failure
func failureLocation(failure domain.TestFailure) string {
	loc := domain.Location{File: failure.FilePath, Line: failure.Line, Column: failure.Column}
	if s := loc.String(); s != "" {
		return s
	}
	return "unknown location"
}

func plainFailureDetails(failure domain.TestFailure, pad string) string {
	var b strings.Builder
	if failure.Message != "" {
		for _, line := range strings.Split(failure.Message, "\n") {
			fmt.Fprintf(&b, "%s%s\n", pad, line)
		}
	}
	for _, line := range failure.StackTrace {
		fmt.Fprintf(&b, "%s%s\n", pad, color.HiBlackString(line))
	}
	if failure.Diff != "" {
		fmt.Fprintf(&b, "%sDiff:\n", pad)
		for _, line := range strings.Split(failure.Diff, "\n") {
			fmt.Fprintf(&b, "%s  %s\n", pad, line)
		}
	}
	for _, a := range failure.Attachments {
		fmt.Fprintf(&b, "%sattachment: %s %s\n", pad, a.Name, color.CyanString(a.Path))
	}
	return b.String()
}

func statusPaint(s domain.RunStatus) func(string, ...interface{}) string {
	switch s {
	case domain.RunPassed:
		return color.GreenString
	case domain.RunFailed, domain.RunTimedOut:
		return color.RedString
	default:
		return color.YellowString
	}
}

func countFiles(failures []domain.TestFailure) int {
	files := make(map[string]bool)
	for _, failure := range failures {
		files[failure.FilePath] = true
	}
	return len(files)
}

// TreeNode represents a node in the file tree structure
type TreeNode struct {
	Name     string
	Children map[string]*TreeNode
	Failures []domain.TestFailure
	IsFile   bool
}

// printFailedTestsTree prints a tree structure of failed tests
func (f *Formatter) printFailedTestsTree(failures []domain.TestFailure) {
	if len(failures) == 0 {
		return
	}

	// Group failures by file path
	fileMap := make(map[string][]domain.TestFailure)
	for _, failure := range failures {
		fileMap[failure.FilePath] = append(fileMap[failure.FilePath], failure)
	}

	root := &TreeNode{
		Name:     "",
		Children: make(map[string]*TreeNode),
		IsFile:   false,
	}

	// Process each file
	for filePath, fileFailures := range fileMap {
		parts := strings.Split(strings.TrimPrefix(filepath.ToSlash(filePath), "./"), "/")
		current := root

		// Navigate/create tree nodes for each path part
		for i, part := range parts {
			if part == "" {
				continue
			}

			if current.Children[part] == nil {
				current.Children[part] = &TreeNode{
					Name:     part,
					Children: make(map[string]*TreeNode),
					IsFile:   i == len(parts)-1,
				}
			}

			current = current.Children[part]

			// If this is the file (last part), add failures
			if i == len(parts)-1 {
				current.Failures = fileFailures
			}
		}
	}

	// Print tree recursively
	f.printTreeNode(root, "", true)
}

func (f *Formatter) printTreeNode(node *TreeNode, prefix string, isRoot bool) {
	// Sort children for consistent output
	var keys []string
	for key := range node.Children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Print children
	for i, key := range keys {
		child := node.Children[key]
		isLastChild := i == len(keys)-1

		// Determine connector
		var connector string
		if isRoot {
			connector = ""
		} else if isLastChild {
			connector = prefix + "   |_"
		} else {
			connector = prefix + "  |_"
		}

		// Print child node
		if child.IsFile {
			fmt.Fprintln(f.out, color.YellowString("%s%s", connector, child.Name))
		} else {
			fmt.Fprintln(f.out, color.CyanString("%s%s", connector, child.Name))
		}

		// Print test cases if this is a file
		if child.IsFile && len(child.Failures) > 0 {
			for j, failure := range child.Failures {
				isLastCase := j == len(child.Failures)-1
				var casePrefix string
				if isLastChild {
					if isLastCase {
						casePrefix = strings.ReplaceAll(prefix, "|", " ") + "        |_"
					} else {
						casePrefix = prefix + "  |        |_"
					}
				} else {
					if isLastCase {
						casePrefix = prefix + "  |        |_"
					} else {
						casePrefix = prefix + "  |  |     |_"
					}
				}
				name := failure.TestName
				if failure.Retry > 0 {
					name += fmt.Sprintf(" (retry #%d)", failure.Retry)
				}
				fmt.Fprintln(f.out, color.RedString("%s%s", casePrefix, name))
			}
		}

		// Recursively print children
		var newPrefix string
		if isRoot {
			newPrefix = "  "
		} else if isLastChild {
			newPrefix = strings.ReplaceAll(prefix, "|", " ") + "  "
		} else {
			newPrefix = prefix + "  |"
		}
		f.printTreeNode(child, newPrefix, false)
	}
}

// CountTestCases returns the total number of test cases across the given test files.
func (f *Formatter) CountTestCases(tests []string) (int, error) {
	var total int
	for _, test := range tests {
		cases, err := f.parser.FindTestCases(test)
		if err != nil {
			return 0, err
		}
		total += len(cases)
	}
	return total, nil
}

// FailedPathKey returns the key a file is matched by against the last run's failures:
// the lower-cased slash path relative to the project when the file is inside it
func FailedPathKey(projectPath, path string) string {
	p := filepath.Clean(path)
	if root, err := filepath.Abs(projectPath); err == nil {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, abs)
		}
		if rel, err := filepath.Rel(root, abs); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		}
	}
	return strings.ToLower(filepath.ToSlash(p))
}

// PrintTestList prints a list of test files, optionally with test cases.
// failedPaths is optional; if set, files in this set are marked with [F] in red (from last run).
func (f *Formatter) PrintTestList(tests []string, showTestCases bool, failedPaths map[string]struct{}) error {
	if showTestCases {
		fmt.Fprintln(f.out, color.GreenString("Found %d test file(s) with test cases:\n", len(tests)))
	} else {
		fmt.Fprintln(f.out, color.GreenString("Found %d test file(s):\n", len(tests)))
	}

	for i, test := range tests {
		isLastFile := i == len(tests)-1
		f.printTestFile(test, isLastFile, failedPaths)

		if !showTestCases {
			continue
		}

		testCases, err := f.parser.FindTestCases(test)
		if err != nil {
			fmt.Fprintln(f.out, color.RedString("Error reading test file %s: %v", test, err))
			continue
		}

		branch, last := "│   ├── ", "│   └── "
		if isLastFile {
			branch, last = "    ├── ", "    └── "
		}
		if len(testCases) == 0 {
			fmt.Fprintf(f.out, "%s%s\n", last, color.RedString("(no test cases found)"))
		}
		for j, testCase := range testCases {
			prefix := branch
			if j == len(testCases)-1 {
				prefix = last
			}
			fmt.Fprintf(f.out, "%s%s\n", prefix, color.YellowString(testCase))
		}

		// Add spacing between files (except for the last one)
		if !isLastFile {
			fmt.Fprintln(f.out)
		}
	}
	return nil
}

func (f *Formatter) printTestFile(test string, isLast bool, failedPaths map[string]struct{}) {
	// Get relative path for cleaner display
	relPath, err := filepath.Rel(f.config.ProjectPath, test)
	if err != nil {
		relPath = test
	}

	failMarker := ""
	if len(failedPaths) > 0 {
		if _, ok := failedPaths[FailedPathKey(f.config.ProjectPath, test)]; ok {
			failMarker = " " + color.RedString("[F]")
		}
	}

	if isLast {
		fmt.Fprintln(f.out, color.CyanString("└── %s%s", relPath, failMarker))
	} else {
		fmt.Fprintln(f.out, color.CyanString("├── %s%s", relPath, failMarker))
	}
}

// PrintHistory prints recent runs as a table, newest first
func (f *Formatter) PrintHistory(runs []storage.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(f.out, color.YellowString("No runs recorded yet"))
		return
	}

	fmt.Fprintln(f.out, color.CyanString("%-20s  %-12s  %6s  %6s  %6s  %6s  %5s  %10s", "Started", "Status", "Total", "Passed", "Failed", "Skipped", "Flaky", "Duration"))
	for _, run := range runs {
		failed := run.Failed + run.TimedOut
		line := fmt.Sprintf("%-20s  %-12s  %6d  %6d  %6d  %6d  %5d  %10s",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Status, run.Total, run.Passed, failed, run.Skipped, run.Flaky,
			fmt.Sprintf("%.2fs", run.Duration.Seconds()))
		fmt.Fprintln(f.out, statusPaint(run.Status)("%s", line))
	}
}
