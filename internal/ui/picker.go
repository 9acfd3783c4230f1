package ui

import (
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/cloudctl/internal/errors"
)

// Choice is one entry in a picker.
type Choice struct {
	Title       string
	Description string
	Value       string
}

// choiceItem implements list.Item for the Bubbles list component.
type choiceItem struct {
	choice Choice
}

func (i choiceItem) Title() string       { return i.choice.Title }
func (i choiceItem) Description() string { return i.choice.Description }

func (i choiceItem) FilterValue() string {
	return i.choice.Title + " " + i.choice.Description
}

// PickerModel is a Bubble Tea model for selecting one choice.
type PickerModel struct {
	list     list.Model
	choices  []Choice
	selected *Choice
	quitting bool
}

type pickerKeyMap struct {
	Enter key.Binding
	Quit  key.Binding
}

var pickerKeys = pickerKeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "cancel"),
	),
}

// NewPickerModel creates a picker titled title over choices.
func NewPickerModel(title string, choices []Choice) PickerModel {
	items := make([]list.Item, len(choices))
	for i, c := range choices {
		items[i] = choiceItem{choice: c}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderForeground(ColorSecondary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorMuted)

	l := list.New(items, delegate, 80, 15)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(len(choices) > 5)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 0, 1, 0)
	l.Styles.HelpStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	return PickerModel{list: l, choices: choices}
}

// Init implements tea.Model.
func (m PickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, pickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(choiceItem); ok {
				m.selected = &item.choice
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, pickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m PickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// Selected returns the selected choice, or nil if cancelled.
func (m PickerModel) Selected() *Choice {
	return m.selected
}

// Pick displays an interactive picker and returns the selected choice.
// A single choice is returned without showing the picker.
// Cancelling returns nil without an error.
func Pick(title string, choices []Choice, in io.Reader, out io.Writer) (*Choice, error) {
	if len(choices) == 0 {
		return nil, errors.NewResolution("Nothing to choose from for: "+title, "")
	}
	if len(choices) == 1 {
		return &choices[0], nil
	}

	p := tea.NewProgram(
		NewPickerModel(title, choices),
		tea.WithOutput(out),
		tea.WithInput(in),
	)

	finalModel, err := p.Run()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Picker failed",
			"Try running again, or pass the value as an argument.")
	}

	if m, ok := finalModel.(PickerModel); ok {
		return m.Selected(), nil
	}
	return nil, nil
}
