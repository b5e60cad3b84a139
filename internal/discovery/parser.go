package discovery

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// testCallPattern matches test('title', ...) and it("title", ...) calls, including
// modifiers like test.only or test.skip. The title may use any JS quote style.
var testCallPattern = regexp.MustCompile(
	`\b(?:test|it)(?:\.(?:only|skip|fixme|fail|slow))?\s*\(\s*` +
		`(?:'((?:\\.|[^'\\])*)'|"((?:\\.|[^"\\])*)"|` + "`((?:\\\\.|[^`\\\\])*)`" + `)`)

// Parser parses test files to extract test titles
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// FindTestCases returns the test titles declared in a spec file, in source order
func (p *Parser) FindTestCases(filePath string) ([]string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", filePath, err)
	}

	seen := make(map[string]bool) // Use map to avoid duplicates
	var testCases []string
	for _, match := range testCallPattern.FindAllStringSubmatch(string(content), -1) {
		title := firstNonEmpty(match[1:])
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		testCases = append(testCases, unescape(title))
	}
	return testCases, nil
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var escapes = strings.NewReplacer(`\'`, `'`, `\"`, `"`, "\\`", "`", `\\`, `\`)

func unescape(s string) string {
	return escapes.Replace(s)
}
