package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/kballard/go-shellquote"
	"github.com/mattn/go-shellwords"

	"ntr/internal/config"
)

// Runner launches the external test engine
type Runner struct {
	config *config.Config
	stderr io.Writer
	args   []string
}

// NewRunner creates a new Runner. args are appended to the engine's command line.
func NewRunner(cfg *config.Config, stderr io.Writer, args ...string) *Runner {
	return &Runner{config: cfg, stderr: stderr, args: args}
}

// Command returns the engine's argv: engine.command, then engine.args, then the pass-through args
func (r *Runner) Command() ([]string, error) {
	if r.config.Engine.Command == "" {
		return nil, fmt.Errorf("%w: engine.command is not set", config.ErrInvalid)
	}

	argv, err := shellwords.Parse(r.config.Engine.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: engine.command: %v", config.ErrInvalid, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: engine.command is empty", config.ErrInvalid)
	}

	extra, err := shellquote.Split(r.config.Engine.Args)
	if err != nil {
		return nil, fmt.Errorf("%w: engine.args: %v", config.ErrInvalid, err)
	}
	argv = append(argv, extra...)
	return append(argv, r.args...), nil
}

// Env returns the engine's environment: ours plus the run settings
func (r *Runner) Env() []string {
	env := os.Environ()
	return append(env,
		"NTR_WORKERS="+strconv.Itoa(r.config.Workers),
		"NTR_RETRIES="+strconv.Itoa(r.config.Retries),
		"NTR_TIMEOUT_MS="+strconv.Itoa(r.config.Timeout),
	)
}

// Run starts the engine in the project directory and streams its stdout to
// consume. stderr is forwarded as is. The returned code is the engine's exit code.
func (r *Runner) Run(ctx context.Context, consume func(stdout io.Reader) error) (int, error) {
	argv, err := r.Command()
	if err != nil {
		return -1, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = r.Env()
	cmd.Dir = r.config.ProjectPath
	cmd.Stderr = r.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("failed to open engine output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("failed to start engine %s: %w", argv[0], err)
	}

	consumeErr := consume(stdout)
	// Drain whatever follows the end event so the engine never blocks on a full pipe
	_, _ = io.Copy(io.Discard, stdout)

	waitErr := cmd.Wait()
	code := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return -1, errors.Join(consumeErr, fmt.Errorf("engine failed: %w", waitErr))
		}
		code = exitErr.ExitCode()
	}
	return code, consumeErr
}
