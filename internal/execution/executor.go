package execution

import (
	"context"
	"io"
)

// Executor runs a test engine and hands its event stream to consume.
// It returns the engine's exit code.
type Executor interface {
	Run(ctx context.Context, consume func(stdout io.Reader) error) (int, error)
}
