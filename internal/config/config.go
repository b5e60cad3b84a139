package config

import (
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"ntr/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath string `yaml:"-"`
	ConfigFile  string `yaml:"-"`

	// Engine settings echoed to reporters
	TestDir  string         `yaml:"testDir"`
	Timeout  int            `yaml:"timeout"` // milliseconds
	Retries  int            `yaml:"retries"`
	Reporter []ReporterSpec `yaml:"reporter"`
	Use      Use            `yaml:"use"`
	Workers  int            `yaml:"workers"`

	// Discovery settings
	TestMatch     []string `yaml:"testMatch"`
	PathsToIgnore []string `yaml:"-"`

	Output  Output  `yaml:"output"`
	Engine  Engine  `yaml:"engine"`
	History History `yaml:"history"`

	// Command flags
	Flags Flags `yaml:"-"`
}

// Use holds the browser launch options
type Use struct {
	Headless   bool   `yaml:"headless"`
	Screenshot string `yaml:"screenshot"`
	Video      string `yaml:"video"`
}

// Output configures where the json reporter stores the last run
type Output struct {
	Dir  string `yaml:"dir"`
	File string `yaml:"file"`
}

// Engine is the external command that runs the tests and emits the event stream
type Engine struct {
	Command string `yaml:"command"`
	Args    string `yaml:"args"`
}

// History configures the MySQL run history
type History struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// ReporterSpec is one entry of the reporter list: a name and optional options
type ReporterSpec struct {
	Name    string
	Options map[string]any
}

// UnmarshalYAML accepts either `name` or `[name, {options}]`.
func (r *ReporterSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		r.Name = value.Value
		return nil
	case yaml.SequenceNode:
		if len(value.Content) == 0 || len(value.Content) > 2 {
			return fmt.Errorf("line %d: reporter entry must have a name and at most one options map", value.Line)
		}
		if err := value.Content[0].Decode(&r.Name); err != nil {
			return fmt.Errorf("line %d: reporter name: %w", value.Line, err)
		}
		if len(value.Content) == 2 {
			if err := value.Content[1].Decode(&r.Options); err != nil {
				return fmt.Errorf("line %d: reporter options: %w", value.Line, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("line %d: unexpected reporter entry", value.Line)
	}
}

// StringOption returns a string option or def when it is absent
func (r ReporterSpec) StringOption(key, def string) string {
	if v, ok := r.Options[key].(string); ok {
		return v
	}
	return def
}

// BoolOption returns a bool option or def when it is absent
func (r ReporterSpec) BoolOption(key string, def bool) bool {
	if v, ok := r.Options[key].(bool); ok {
		return v
	}
	return def
}

// Flags holds command-line flags
type Flags struct {
	ConfigFile   string
	ProjectPath  string
	Workers      int
	Reporters    []string
	NoColor      bool
	Verbose      bool
	TestPath     string
	NameFilter   string
	TestCases    bool
	Format       string
	OpenFailures bool
	All          bool
	Print        bool
	Migrate      bool
	Limit        int
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath: DefaultProjectPath,
		TestDir:     DefaultTestDir,
		Timeout:     DefaultTimeoutMs,
		Retries:     DefaultRetries,
		Workers:     DefaultWorkers,
		Use: Use{
			Headless:   true,
			Screenshot: DefaultScreenshot,
			Video:      DefaultVideo,
		},
		Output: Output{
			Dir:  DefaultOutputJSONDir,
			File: DefaultOutputJSONFile,
		},
		History: History{Table: DefaultHistoryTable},
		Flags:   Flags{Workers: DefaultWorkers},
	}
	for _, name := range DefaultReporters {
		cfg.Reporter = append(cfg.Reporter, ReporterSpec{Name: name})
	}
	// Copy default slices so callers can't mutate the package defaults
	cfg.TestMatch = append([]string(nil), DefaultTestMatch...)
	cfg.PathsToIgnore = append([]string(nil), DefaultPathsToIgnore...)
	return cfg
}

// ApplyFlags stores the flags and applies their overrides
func (c *Config) ApplyFlags(flags Flags) {
	c.Flags = flags

	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if len(flags.Reporters) > 0 {
		c.Reporter = c.Reporter[:0]
		for _, name := range flags.Reporters {
			c.Reporter = append(c.Reporter, ReporterSpec{Name: name})
		}
	}
}

// GetTestPath returns the test path, using flag if provided
func (c *Config) GetTestPath() string {
	dir := c.TestDir
	if c.Flags.TestPath != "" {
		dir = c.Flags.TestPath
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.ProjectPath, dir)
}

// GetOutputPath returns the full path to the output JSON file.
// Resolves to an absolute path so every command reads/writes the same file regardless of cwd.
func (c *Config) GetOutputPath() string {
	p := c.Output.File
	if !filepath.IsAbs(p) {
		dir := c.Output.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(c.ProjectPath, dir)
		}
		p = filepath.Join(dir, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// ResolvePath makes a path from the config relative to the project path
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectPath, p)
}

// ReporterNames lists the configured reporters in order
func (c *Config) ReporterNames() []string {
	names := make([]string, 0, len(c.Reporter))
	for _, r := range c.Reporter {
		names = append(names, r.Name)
	}
	return names
}

// RunConfig is the view of the configuration handed to reporters
func (c *Config) RunConfig() domain.RunConfig {
	return domain.RunConfig{
		TestDir:   c.TestDir,
		Timeout:   time.Duration(c.Timeout) * time.Millisecond,
		Retries:   c.Retries,
		Workers:   c.Workers,
		Reporters: c.ReporterNames(),
		Use: domain.UseOptions{
			Headless:   c.Use.Headless,
			Screenshot: c.Use.Screenshot,
			Video:      c.Use.Video,
		},
	}
}
