package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/techtree/pkg/research"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success, unlocked techs
	colorYellow = lipgloss.Color("220") // Amber - warnings, research in progress
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values, available techs
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text, locked techs
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for tech names and emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleCached  = lipgloss.NewStyle().Foreground(colorGreen)
	styleFresh   = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// statusStyles colors a tech by research status, in listings and in the
// terminal viewer alike.
var statusStyles = map[research.Status]lipgloss.Style{
	research.Locked:      lipgloss.NewStyle().Foreground(colorDim),
	research.Available:   lipgloss.NewStyle().Foreground(colorWhite),
	research.Researching: lipgloss.NewStyle().Foreground(colorYellow).Bold(true),
	research.Unlocked:    lipgloss.NewStyle().Foreground(colorGreen),
}

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func (c *CLI) line(s string) {
	fmt.Fprintln(c.out, s)
}

// success prints a line with a check mark.
func (c *CLI) success(format string, args ...any) {
	c.line(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

// fail prints a line with a cross.
func (c *CLI) fail(format string, args ...any) {
	c.line(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func (c *CLI) warn(format string, args ...any) {
	c.line(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (c *CLI) info(format string, args ...any) {
	c.line(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// detail prints an indented, muted line.
func (c *CLI) detail(format string, args ...any) {
	c.line("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// file prints a written output path.
func (c *CLI) file(path string) {
	c.line("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// field prints a labeled value.
func (c *CLI) field(key, value string) {
	c.line(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// techs prints a labeled list of tech IDs colored by their status in s.
func (c *CLI) techs(key string, ids []string, status research.Status) {
	if len(ids) == 0 {
		c.field(key, "-")
		return
	}
	style := statusStyles[status]
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = style.Render(id)
	}
	c.line(styleKey.Render(key) + " " + strings.Join(parts, StyleDim.Render(", ")))
}

// stats prints table and layout statistics on a single line.
func (c *CLI) stats(techCount, edgeCount, columns int, cached bool) {
	var parts []string
	if techCount > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d techs", techCount)))
	}
	if edgeCount > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d requirements", edgeCount)))
	}
	if columns > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d columns", columns)))
	}
	if cached {
		parts = append(parts, styleCached.Render("cached"))
	} else {
		parts = append(parts, styleFresh.Render("fresh"))
	}
	c.line("  " + strings.Join(parts, StyleDim.Render(" · ")))
}

// nextStep prints a blank line and a suggested follow-up command.
func (c *CLI) nextStep(description, command string) {
	c.line("")
	c.line(StyleDim.Render(description+":") + " " + styleCommand.Render(command))
}
