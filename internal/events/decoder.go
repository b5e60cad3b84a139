package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-version"

	"ntr/internal/domain"
)

// SupportedVersions is the range of protocol versions the decoder understands
const SupportedVersions = ">= 1.0, < 2.0"

// maxLineSize bounds a single event; stack traces and diffs can be large
const maxLineSize = 4 * 1024 * 1024

var supported = version.MustConstraints(version.NewConstraint(SupportedVersions))

type wireEvent struct {
	Type    Type             `json:"type"`
	Version string           `json:"version,omitempty"`
	Config  *EngineConfig    `json:"config,omitempty"`
	Suite   *domain.Suite    `json:"suite,omitempty"`
	TestID  string           `json:"testId,omitempty"`
	Test    *domain.TestCase `json:"test,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
}

type wireResult struct {
	Status      domain.Status       `json:"status"`
	Duration    float64             `json:"duration"` // milliseconds
	StartTime   time.Time           `json:"startTime"`
	Retry       int                 `json:"retry"`
	WorkerIndex *int                `json:"workerIndex"`
	Errors      []domain.TestError  `json:"errors"`
	Attachments []domain.Attachment `json:"attachments"`
}

type wireFullResult struct {
	Status    domain.RunStatus `json:"status"`
	StartTime time.Time        `json:"startTime"`
	Duration  float64          `json:"duration"` // milliseconds
}

// Decoder reads the ntr JSON-lines protocol
type Decoder struct {
	scanner *bufio.Scanner
	line    int
	tests   map[string]*domain.TestCase
}

// NewDecoder creates a Decoder reading from r
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Decoder{
		scanner: scanner,
		tests:   make(map[string]*domain.TestCase),
	}
}

// Next returns the next event, skipping blank lines
func (d *Decoder) Next() (Event, error) {
	for d.scanner.Scan() {
		d.line++
		raw := d.scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		ev, err := d.decode(raw)
		if err != nil {
			return Event{}, &DecodeError{Line: d.line, Err: err}
		}
		return ev, nil
	}
	if err := d.scanner.Err(); err != nil {
		return Event{}, &DecodeError{Line: d.line + 1, Err: err}
	}
	return Event{}, io.EOF
}

func (d *Decoder) decode(raw []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return Event{}, err
	}

	switch w.Type {
	case TypeBegin:
		if err := checkVersion(w.Version); err != nil {
			return Event{}, err
		}
		suite := w.Suite
		if suite == nil {
			suite = &domain.Suite{}
		}
		for _, tc := range suite.AllTests() {
			d.tests[tc.Key()] = tc
		}
		return Event{Type: TypeBegin, Config: w.Config, Suite: suite}, nil

	case TypeTestBegin, TypeTestEnd:
		tc, err := d.resolveTest(w)
		if err != nil {
			return Event{}, err
		}
		result := &domain.TestResult{WorkerIndex: -1}
		if len(w.Result) > 0 {
			var wr wireResult
			if err := json.Unmarshal(w.Result, &wr); err != nil {
				return Event{}, fmt.Errorf("result: %w", err)
			}
			result = wr.toDomain()
		}
		if w.Type == TypeTestEnd && !result.Status.Valid() {
			return Event{}, fmt.Errorf("unknown test status %q", result.Status)
		}
		return Event{Type: w.Type, Test: tc, Result: result}, nil

	case TypeEnd:
		full := &domain.FullResult{Status: domain.RunPassed}
		if len(w.Result) > 0 {
			var wr wireFullResult
			if err := json.Unmarshal(w.Result, &wr); err != nil {
				return Event{}, fmt.Errorf("result: %w", err)
			}
			if wr.Status == "" {
				wr.Status = domain.RunPassed
			}
			full = &domain.FullResult{
				Status:    wr.Status,
				StartTime: wr.StartTime,
				Duration:  millis(wr.Duration),
			}
		}
		return Event{Type: TypeEnd, Full: full}, nil

	default:
		return Event{}, fmt.Errorf("unknown event type %q", w.Type)
	}
}

// resolveTest returns the announced TestCase so begin and end share one pointer
func (d *Decoder) resolveTest(w wireEvent) (*domain.TestCase, error) {
	if w.TestID != "" {
		if tc, ok := d.tests[w.TestID]; ok {
			return tc, nil
		}
		if w.Test == nil {
			return nil, fmt.Errorf("unknown test id %q", w.TestID)
		}
	}
	if w.Test == nil {
		return nil, errors.New("test event without test")
	}
	if w.Test.ID == "" {
		w.Test.ID = w.TestID
	}
	if tc, ok := d.tests[w.Test.Key()]; ok {
		return tc, nil
	}
	d.tests[w.Test.Key()] = w.Test
	return w.Test, nil
}

func (w wireResult) toDomain() *domain.TestResult {
	worker := -1
	if w.WorkerIndex != nil {
		worker = *w.WorkerIndex
	}
	return &domain.TestResult{
		Status:      w.Status,
		Duration:    millis(w.Duration),
		StartTime:   w.StartTime,
		Retry:       w.Retry,
		WorkerIndex: worker,
		Errors:      w.Errors,
		Attachments: w.Attachments,
	}
}

func checkVersion(v string) error {
	if v == "" {
		return nil
	}
	parsed, err := version.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, v)
	}
	if !supported.Check(parsed) {
		return fmt.Errorf("%w: %s (want %s)", ErrUnsupportedVersion, v, SupportedVersions)
	}
	return nil
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
