package reporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ntr/internal/domain"
)

// titleCase upper-cases the first letter of each word. A Caser keeps state,
// so one is made per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// FormatDuration renders a duration the way the summary prints it: 850ms, 1.3s, 2m 5s
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		d = d.Round(time.Second)
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// Plural picks the singular or plural noun for n
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

// StatusLabel is the lower-case human label of an outcome
func StatusLabel(s domain.Status) string {
	switch s {
	case domain.StatusTimedOut:
		return "timed out"
	case "":
		return "unknown"
	default:
		return string(s)
	}
}

// palette holds the colours of one reporter instance so colour can be
// switched off per reporter rather than process-wide
type palette struct {
	green, red, yellow, cyan, dim, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		cyan:   color.New(color.FgCyan),
		dim:    color.New(color.FgHiBlack),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.green, p.red, p.yellow, p.cyan, p.dim, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) mark(s domain.Status) string {
	switch s {
	case domain.StatusPassed:
		return p.green.Sprint("✓")
	case domain.StatusFailed, domain.StatusTimedOut:
		return p.red.Sprint("✘")
	case domain.StatusSkipped:
		return p.yellow.Sprint("-")
	default:
		return p.yellow.Sprint("!")
	}
}

func (p palette) forStatus(s domain.Status) *color.Color {
	switch s {
	case domain.StatusPassed:
		return p.green
	case domain.StatusFailed, domain.StatusTimedOut:
		return p.red
	default:
		return p.yellow
	}
}

// indent prefixes every line of s
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
