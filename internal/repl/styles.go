package repl

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles are bound to the console's writer, so colors are dropped when the
// output is not a terminal.
type styles struct {
	index     lipgloss.Style
	assistant lipgloss.Style
	prompt    lipgloss.Style
	warning   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		index: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		assistant: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("208")),
		prompt: r.NewStyle().
			Foreground(lipgloss.Color("242")),
		warning: r.NewStyle().
			Foreground(lipgloss.Color("214")),
	}
}
