package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// run starts a full-screen program with model and returns the final model.
func run[M tea.Model](model M) (M, error) {
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return model, err
	}
	if m, ok := final.(M); ok {
		return m, nil
	}
	return model, nil
}
