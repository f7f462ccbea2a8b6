package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PromptOptions configures a single-line prompt
type PromptOptions struct {
	Title       string
	Placeholder string
	CharLimit   int
	Required    bool
	Secret      bool // mask input, for PINs
}

// PromptModel asks for one line of text
type PromptModel struct {
	opts  PromptOptions
	input textinput.Model

	value         string
	submitted     bool
	cancelled     bool
	validationErr string
}

// NewPromptModel creates a focused prompt
func NewPromptModel(opts PromptOptions) PromptModel {
	input := textinput.New()
	input.Width = 60
	input.Placeholder = opts.Placeholder
	input.CharLimit = opts.CharLimit
	if input.CharLimit == 0 {
		input.CharLimit = 200
	}
	if opts.Secret {
		input.EchoMode = textinput.EchoPassword
		input.EchoCharacter = '•'
	}
	input.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
	input.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPlaceholder))
	input.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))
	input.Focus()

	return PromptModel{opts: opts, input: input}
}

// Value returns the submitted text
func (m PromptModel) Value() string {
	return m.value
}

// Cancelled reports whether the user left without submitting
func (m PromptModel) Cancelled() bool {
	return m.cancelled
}

// Init initializes the model
func (m PromptModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			value := strings.TrimSpace(m.input.Value())
			if value == "" && m.opts.Required {
				m.validationErr = "A value is required"
				return m, nil
			}
			m.value = value
			m.submitted = true
			return m, tea.Quit
		}
		m.validationErr = ""
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the prompt
func (m PromptModel) View() string {
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Bold(true)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentMain)).
		Padding(0, 1)
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText)).Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.opts.Title))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(m.input.View()))
	b.WriteString("\n")
	if m.validationErr != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render(m.validationErr))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter confirm · esc cancel"))
	b.WriteString("\n")
	return b.String()
}

// ErrPromptCancelled is returned when the user leaves a prompt with esc
var ErrPromptCancelled = errors.New("cancelled")

// RunPrompt asks for one line of text inline
func RunPrompt(opts PromptOptions) (string, error) {
	finalModel, err := tea.NewProgram(NewPromptModel(opts)).Run()
	if err != nil {
		return "", err
	}
	m := finalModel.(PromptModel)
	if m.Cancelled() {
		return "", ErrPromptCancelled
	}
	return m.Value(), nil
}
