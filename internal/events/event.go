// Package events decodes the lifecycle event stream an engine emits while it
// runs tests.
package events

import (
	"errors"
	"fmt"
	"io"

	"ntr/internal/domain"
)

// Type identifies a lifecycle event
type Type string

const (
	TypeBegin     Type = "begin"
	TypeTestBegin Type = "testBegin"
	TypeTestEnd   Type = "testEnd"
	TypeEnd       Type = "end"
)

// Event is one decoded lifecycle callback.
// Begin carries Suite and optionally Config, TestBegin/TestEnd carry Test and
// Result, End carries Full.
type Event struct {
	Type   Type
	Config *EngineConfig
	Suite  *domain.Suite
	Test   *domain.TestCase
	Result *domain.TestResult
	Full   *domain.FullResult
}

// EngineConfig is the subset of the engine's resolved config echoed in the begin event
type EngineConfig struct {
	TestDir string `json:"testDir,omitempty"`
	Timeout int    `json:"timeout,omitempty"` // milliseconds
	Retries int    `json:"retries,omitempty"`
	Workers int    `json:"workers,omitempty"`
}

// Source yields events in stream order and io.EOF once exhausted
type Source interface {
	Next() (Event, error)
}

// ErrUnsupportedVersion is returned for a stream whose protocol version is out of range
var ErrUnsupportedVersion = errors.New("unsupported event stream version")

// DecodeError reports a malformed line of the stream
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("event stream line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Stream formats accepted by NewSource
const (
	FormatNTR    = "ntr"
	FormatGoTest = "gotest"
)

// NewSource returns a Source decoding r in the given format
func NewSource(format string, r io.Reader) (Source, error) {
	switch format {
	case "", FormatNTR:
		return NewDecoder(r), nil
	case FormatGoTest:
		return NewGoTestDecoder(r), nil
	default:
		return nil, fmt.Errorf("unknown event stream format %q (want %s or %s)", format, FormatNTR, FormatGoTest)
	}
}
