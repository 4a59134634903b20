// Package picker offers a terminal list for choosing between ambiguous
// module candidates.
package picker

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

type candidateItem struct {
	name  string
	index int
}

func (c candidateItem) Title() string       { return c.name }
func (c candidateItem) Description() string { return "" }
func (c candidateItem) FilterValue() string { return c.name }

// Model is the bubbletea model behind Run.
type Model struct {
	list      list.Model
	choice    string
	cancelled bool
}

// New builds a model listing items in the given order.
func New(prompt string, items []string) Model {
	listItems := make([]list.Item, 0, len(items))
	for i, name := range items {
		listItems = append(listItems, candidateItem{name: name, index: i})
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	l := list.New(listItems, delegate, 60, len(items)*2+6)
	l.Title = prompt
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	return Model{list: l}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(candidateItem); ok {
				m.choice = item.name
			} else {
				m.cancelled = true
			}
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.list.View()
}

// Choice returns the selected candidate; ok is false when the user cancelled.
func (m Model) Choice() (string, bool) {
	if m.cancelled || m.choice == "" {
		return "", false
	}
	return m.choice, true
}

// Run shows the list on out, reading keys from in.
func Run(ctx context.Context, prompt string, items []string, in io.Reader, out io.Writer) (string, bool, error) {
	program := tea.NewProgram(New(prompt, items),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := program.Run()
	if err != nil {
		return "", false, err
	}
	m, ok := final.(Model)
	if !ok {
		return "", false, nil
	}
	choice, picked := m.Choice()
	return choice, picked, nil
}
