package config

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultConfigFile is looked up in the project path when --config is not given
	DefaultConfigFile = "ntr.yaml"
	// DefaultTestDir is the directory the engine scans for tests
	DefaultTestDir = "./tests"
	// DefaultTimeoutMs is the per-test timeout in milliseconds
	DefaultTimeoutMs = 60000
	// DefaultRetries is the number of retries for a failing test
	DefaultRetries = 1
	// DefaultWorkers is the default number of concurrent workers
	DefaultWorkers = 4
	// DefaultScreenshot is the screenshot capture policy
	DefaultScreenshot = "only-on-failure"
	// DefaultVideo is the video capture policy
	DefaultVideo = "retain-on-failure"
	// DefaultOutputJSONFile is the default output JSON file name
	DefaultOutputJSONFile = "test-results.json"
	// DefaultOutputJSONDir is the default output directory
	DefaultOutputJSONDir = "storage"
	// DefaultHistoryTable stores one row per run
	DefaultHistoryTable = "ntr_runs"
)

// DefaultReporters mirrors the engine config: built-in line output plus the native text reporter
var DefaultReporters = []string{"line", "native-text"}

// DefaultTestMatch are the file suffixes treated as test files
var DefaultTestMatch = []string{
	".spec.ts",
	".spec.js",
	".spec.mjs",
	".test.ts",
	".test.js",
	".test.mjs",
}

// DefaultPathsToIgnore are the default directories to ignore when scanning for tests
var DefaultPathsToIgnore = []string{
	"node_modules",
	"test-results",
	"playwright-report",
	"storage",
	"dist",
	"coverage",
}
