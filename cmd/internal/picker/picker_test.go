package picker

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func press(m tea.Model, key tea.KeyMsg) (Model, tea.Cmd) {
	next, cmd := m.Update(key)
	return next.(Model), cmd
}

func TestPickerEnterSelectsHighlighted(t *testing.T) {
	m := New("Multiple modules found for \"Bar\". Select one:", []string{"A.Bar", "X.Bar"})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	choice, ok := m.Choice()
	require.True(t, ok)
	require.Equal(t, "X.Bar", choice)
}

func TestPickerKeepsCandidateOrder(t *testing.T) {
	m := New("pick", []string{"Z.Bar", "A.Bar"})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	choice, ok := m.Choice()
	require.True(t, ok)
	require.Equal(t, "Z.Bar", choice)
}

func TestPickerEscCancels(t *testing.T) {
	m := New("pick", []string{"A.Bar", "X.Bar"})
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	_, ok := m.Choice()
	require.False(t, ok)
}

func TestPickerViewListsCandidates(t *testing.T) {
	m := New("pick", []string{"A.Bar", "X.Bar"})
	view := m.View()
	require.Contains(t, view, "A.Bar")
	require.Contains(t, view, "X.Bar")
}
