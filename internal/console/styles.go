package console

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette for device output
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - device titles
	MutedColor   = lipgloss.Color("#626262") // Gray - labels, separators
	TextColor    = lipgloss.Color("#FFFFFF") // White - values
	AccentColor  = lipgloss.Color("#43BF6D") // Green - custom payload
)

// Layout constants
const (
	DefaultWidth    = 60  // Separator width when the writer is not a terminal
	MaxContentWidth = 100 // Maximum separator width
	LabelWidth      = 11  // Width of the "Hardware:" style label column
)

// styles are bound to one renderer so colour support follows the writer,
// not the process stdout.
type styles struct {
	title  lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	custom lipgloss.Style
	rule   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().
			Foreground(PrimaryColor).
			Bold(true),
		label: r.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2).
			Width(LabelWidth + 2),
		value: r.NewStyle().
			Foreground(TextColor),
		custom: r.NewStyle().
			Foreground(AccentColor),
		rule: r.NewStyle().
			Foreground(MutedColor),
	}
}
