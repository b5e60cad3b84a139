package domain

import (
	"fmt"
	"strings"
)

// TitleSeparator joins the segments of a test's title path.
const TitleSeparator = " › "

// Location points at a line in a test source file
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// String renders file:line:column, dropping missing parts
func (l Location) String() string {
	switch {
	case l.File == "":
		return ""
	case l.Line == 0:
		return l.File
	case l.Column == 0:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
}

// Annotation is a typed note attached to a test (skip reason, issue link, ...)
type Annotation struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// TestCase is a single test as enumerated by the engine. It is immutable for
// the duration of a run.
type TestCase struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	TitlePath      []string     `json:"titlePath,omitempty"` // project, file, describe blocks, title
	Location       Location     `json:"location"`
	ExpectedStatus Status       `json:"expectedStatus,omitempty"`
	Annotations    []Annotation `json:"annotations,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	Retries        int          `json:"retries,omitempty"`
}

// Key returns the identity used to pair test begin and end events.
func (t *TestCase) Key() string {
	if t.ID != "" {
		return t.ID
	}
	return t.Location.String() + TitleSeparator + t.FullTitle()
}

// FullTitle joins the non-empty segments of the title path.
func (t *TestCase) FullTitle() string {
	if len(t.TitlePath) == 0 {
		return t.Title
	}
	parts := make([]string, 0, len(t.TitlePath))
	for _, p := range t.TitlePath {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, TitleSeparator)
}

// Suite is a node of the enumerated test tree
type Suite struct {
	Title    string      `json:"title,omitempty"`
	Location *Location   `json:"location,omitempty"`
	Suites   []*Suite    `json:"suites,omitempty"`
	Tests    []*TestCase `json:"tests,omitempty"`
}

// AllTests returns every test in the tree, depth first.
func (s *Suite) AllTests() []*TestCase {
	if s == nil {
		return nil
	}
	tests := make([]*TestCase, 0, len(s.Tests))
	tests = append(tests, s.Tests...)
	for _, child := range s.Suites {
		tests = append(tests, child.AllTests()...)
	}
	return tests
}
