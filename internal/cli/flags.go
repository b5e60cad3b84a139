package cli

import "ntr/internal/config"

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

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		ConfigFile:   f.ConfigFile,
		ProjectPath:  f.ProjectPath,
		Workers:      f.Workers,
		Reporters:    append([]string(nil), f.Reporters...),
		NoColor:      f.NoColor,
		Verbose:      f.Verbose,
		TestPath:     f.TestPath,
		NameFilter:   f.NameFilter,
		TestCases:    f.TestCases,
		Format:       f.Format,
		OpenFailures: f.OpenFailures,
		All:          f.All,
		Print:        f.Print,
		Migrate:      f.Migrate,
		Limit:        f.Limit,
	}
}
