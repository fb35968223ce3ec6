package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by text-mode rendering.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	ID      lipgloss.Style
}

// newStyles builds the style set. Without color the zero styles pass
// text through unchanged.
func newStyles(color bool) Styles {
	if !color {
		return Styles{}
	}
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		ID:      lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	}
}
