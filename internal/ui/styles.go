package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mmr-tortoise/labsync/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("cyan")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("34")).
		Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Header renders a section heading.
func Header(s string) string {
	return headerStyle.Render(s)
}

// OK renders a success accent.
func OK(s string) string {
	return okStyle.Render(s)
}

// Fail renders a failure accent.
func Fail(s string) string {
	return failStyle.Render(s)
}

// Warn renders a warning accent.
func Warn(s string) string {
	return warnStyle.Render(s)
}

// Dim renders de-emphasized detail text.
func Dim(s string) string {
	return dimStyle.Render(s)
}

// Check renders a pass/fail glyph for doctor-style check lists.
func Check(ok bool) string {
	if ok {
		return okStyle.Render("✔")
	}
	return failStyle.Render("✘")
}

// StateBadge renders a repository state with the color carrying the
// judgement: green for a healthy populated copy, yellow for an empty
// one, red for a foreign directory, dim for not-there-yet.
func StateBadge(state model.RepoState) string {
	switch state {
	case model.RepoPopulated:
		return okStyle.Render(state.String())
	case model.RepoEmpty:
		return warnStyle.Render(state.String())
	case model.RepoInvalid:
		return failStyle.Render(state.String())
	case model.RepoAbsent:
		return dimStyle.Render(state.String())
	default:
		return state.String()
	}
}
