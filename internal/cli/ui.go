package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/registry"
)

// =============================================================================
// Palette
// =============================================================================

var (
	colorAccent  = lipgloss.Color("36")  // teal: node names, keys, counts
	colorOK      = lipgloss.Color("35")  // green
	colorWarn    = lipgloss.Color("220") // amber: skipped connections, recovered failures
	colorFail    = lipgloss.Color("167") // soft red
	colorCommand = lipgloss.Color("75")  // light blue
	colorValue   = lipgloss.Color("255")
	colorLabel   = lipgloss.Color("245")
	colorMuted   = lipgloss.Color("240")
)

var (
	// StyleTitle for document headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	// StyleHighlight for node names and store keys.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)

	// StyleDim for secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorMuted)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorValue)

	// StyleNumber for counts.
	StyleNumber = lipgloss.NewStyle().Foreground(colorAccent)

	// StyleWarning for recovered failures.
	StyleWarning = lipgloss.NewStyle().Foreground(colorWarn)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleCommand     = lipgloss.NewStyle().Foreground(colorCommand)
	styleKey         = lipgloss.NewStyle().Foreground(colorLabel).Width(12)
)

// statusMark is the leading glyph of a status line.
type statusMark struct {
	glyph string
	style lipgloss.Style
}

var (
	markOK   = statusMark{"✓", lipgloss.NewStyle().Foreground(colorOK)}
	markFail = statusMark{"✗", lipgloss.NewStyle().Foreground(colorFail)}
	markWarn = statusMark{"!", lipgloss.NewStyle().Foreground(colorWarn)}
	markInfo = statusMark{"›", lipgloss.NewStyle().Foreground(colorLabel)}
)

const iconArrow = "→"

// stdout receives all human-readable command output. Logs go to the
// logger's writer instead.
var stdout io.Writer = os.Stdout

// =============================================================================
// Status Lines
// =============================================================================

func (m statusMark) print(msg string) {
	fmt.Fprintln(stdout, m.style.Render(m.glyph)+" "+msg)
}

func printSuccess(format string, args ...any) { markOK.print(fmt.Sprintf(format, args...)) }
func printError(format string, args ...any)   { markFail.print(fmt.Sprintf(format, args...)) }
func printInfo(format string, args ...any)    { markInfo.print(fmt.Sprintf(format, args...)) }

func printWarning(format string, args ...any) {
	markWarn.print(StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented secondary line under a status line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printWarnings prints the failures an operation recovered from, one per
// node. Coded errors show their user message only.
func printWarnings(warnings []registry.Warning) {
	for _, w := range warnings {
		if w.Err != nil {
			printWarning("%s: %s: %s", w.Node, w.Message, errors.UserMessage(w.Err))
			continue
		}
		printWarning("%s: %s", w.Node, w.Message)
	}
}

// printFile prints the path of a written file.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printBlock prints a pre-rendered block such as a table.
func printBlock(s string) {
	fmt.Fprintln(stdout, s)
}

func printNewline() {
	fmt.Fprintln(stdout)
}

// =============================================================================
// Stats
// =============================================================================

// stat is one count shown by printStats.
type stat struct {
	n     int
	label string
}

// printStats prints operation counts on a single line. Zero counts are
// left out and warnings are highlighted.
func printStats(stats ...stat) {
	var parts []string
	for _, s := range stats {
		switch {
		case s.n == 0:
			continue
		case s.label == "warnings":
			parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d %s", s.n, s.label)))
		default:
			parts = append(parts, StyleNumber.Render(fmt.Sprint(s.n))+" "+StyleDim.Render(s.label))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintln(stdout, "  "+strings.Join(parts, StyleDim.Render(" · ")))
	}
}

// printNextStep suggests the command that continues from this one.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}
