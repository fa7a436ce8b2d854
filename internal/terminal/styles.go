package terminal

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for terminal output.
type Styles struct {
	Prompt  lipgloss.Style
	Project lipgloss.Style
	Info    lipgloss.Style
	Warn    lipgloss.Style
	Error   lipgloss.Style
	Output  lipgloss.Style
	Done    lipgloss.Style
	Failed  lipgloss.Style
	Header  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Project: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Output:  lipgloss.NewStyle().Faint(true),
		Done:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Header:  lipgloss.NewStyle().Bold(true).Underline(true),
	}
}

// PlainStyles renders everything unstyled.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{s, s, s, s, s, s, s, s, s}
}
