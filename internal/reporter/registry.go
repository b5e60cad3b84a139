package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ntr/internal/config"
	"ntr/internal/storage"
)

// NativeTextPath is the module-path alias the native text reporter is also known by
const NativeTextPath = "./reporter/native-text-reporter"

// Deps are the shared resources reporters are built from
type Deps struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Color   bool
	Logger  Warner
	Config  *config.Config
	Storage storage.Storage
	History storage.History
}

// Names lists every reporter name Build accepts
func Names() []string {
	return []string{LineName, NativeTextName, NativeTextPath, JSONName, HistoryName}
}

// openReportFile creates the file behind a reporter's outputFile option
var openReportFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// Build creates the configured reporters in order. When one fails, the files
// opened for the earlier ones are closed.
func Build(specs []config.ReporterSpec, deps Deps) (*Multi, error) {
	reporters := make([]Reporter, 0, len(specs))
	var opened []io.Closer
	for _, spec := range specs {
		r, closer, err := build(spec, deps)
		if err != nil {
			for _, c := range opened {
				c.Close()
			}
			return nil, err
		}
		if closer != nil {
			opened = append(opened, closer)
		}
		reporters = append(reporters, r)
	}
	return NewMulti(reporters...), nil
}

// build returns the reporter and, when it owns an open file, that file
func build(spec config.ReporterSpec, deps Deps) (Reporter, io.Closer, error) {
	switch spec.Name {
	case LineName:
		return NewLine(deps.Stderr), nil, nil

	case NativeTextName, NativeTextPath:
		opts := []Option{WithColor(spec.BoolOption("color", deps.Color))}
		if deps.Logger != nil {
			opts = append(opts, WithLogger(deps.Logger))
		}
		out := deps.Stdout
		if file := spec.StringOption("outputFile", ""); file != "" {
			path := file
			if deps.Config != nil {
				path = deps.Config.ResolvePath(file)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, nil, fmt.Errorf("create report dir: %w", err)
			}
			f, err := openReportFile(path)
			if err != nil {
				return nil, nil, fmt.Errorf("open report file: %w", err)
			}
			// Files never get escape codes unless asked for explicitly
			opts = append(opts, WithColor(spec.BoolOption("color", false)), WithCloser(f))
			return NewNativeText(f, opts...), f, nil
		}
		return NewNativeText(out, opts...), nil, nil

	case JSONName:
		store := deps.Storage
		if store == nil {
			if deps.Config == nil {
				return nil, nil, fmt.Errorf("%w: json reporter needs an output path", config.ErrInvalid)
			}
			store = storage.NewJSONStorage(deps.Config)
		}
		return NewJSON(store), nil, nil

	case HistoryName:
		if deps.History == nil {
			return nil, nil, fmt.Errorf("%w: history reporter needs a history database", config.ErrInvalid)
		}
		return NewHistory(deps.History), nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown reporter %q", config.ErrInvalid, spec.Name)
	}
}
