package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/clockin/internal/models"
)

// TimerAction is what the user asked for when leaving the timer
type TimerAction int

const (
	ActionLeave  TimerAction = iota // exit, session keeps running
	ActionStop                      // stop the running session
	ActionResume                    // end the interruption, resume the parent
)

// TimerModel is a live view of the running session of one scope
type TimerModel struct {
	width  int
	height int

	session *models.Session // running session
	paused  *models.Session // parent under the running interruption, if any
	now     func() time.Time

	elapsed time.Duration
	frame   int
	shimmer *ShimmerState

	action TimerAction
	done   bool
	notice string
}

// timerTickMsg is sent every second to update the timer
type timerTickMsg struct{}

// animationTickMsg is sent for faster animations
type animationTickMsg struct{}

// NewTimerModel creates a timer for the running session and its paused parent
func NewTimerModel(session, paused *models.Session) TimerModel {
	return TimerModel{
		session: session,
		paused:  paused,
		now:     time.Now,
		elapsed: time.Since(session.StartedAt),
		shimmer: NewShimmerState(),
	}
}

// Action returns the choice the user made before the program quit
func (m TimerModel) Action() TimerAction {
	return m.action
}

func timerTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return timerTickMsg{} })
}

func animationTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg { return animationTickMsg{} })
}

// Init starts both timer and animation tickers
func (m TimerModel) Init() tea.Cmd {
	return tea.Batch(timerTick(), animationTick())
}

// Update handles messages
func (m TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case timerTickMsg:
		m.elapsed = m.now().Sub(m.session.StartedAt)
		if m.done {
			return m, nil
		}
		return m, timerTick()

	case animationTickMsg:
		m.frame = (m.frame + 1) % 4
		m.shimmer.Advance(len([]rune(m.headerText())))
		if m.done {
			return m, nil
		}
		return m, animationTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "s", "S":
			if m.session.IsInterruption() {
				m.notice = "Interrupted, press r to resume first"
				return m, nil
			}
			m.action = ActionStop
			m.done = true
			return m, tea.Quit
		case "r", "R":
			if !m.session.IsInterruption() {
				m.notice = "Not interrupted, nothing to resume"
				return m, nil
			}
			m.action = ActionResume
			m.done = true
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			m.action = ActionLeave
			m.done = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m TimerModel) headerText() string {
	if m.session.IsInterruption() {
		return "INTERRUPTED"
	}
	return "ON THE CLOCK"
}

// View renders the timer
func (m TimerModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	helpBar := m.renderHelpBar()
	contentHeight := m.height - 2

	if m.width < 90 {
		return lipgloss.JoinVertical(lipgloss.Left, m.renderTimerPanel(m.width, contentHeight), helpBar)
	}

	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth - 2
	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTimerPanel(leftWidth, contentHeight),
		"  ",
		m.renderDetailsPanel(rightWidth, contentHeight),
	)
	return lipgloss.JoinVertical(lipgloss.Left, content, helpBar)
}

// renderTimerPanel renders the clock for the running session
func (m TimerModel) renderTimerPanel(width, height int) string {
	center := lipgloss.NewStyle().Align(lipgloss.Center).Width(width)
	var components []string

	animChars := []string{"⏱", "⏲", "⏱", "⏲"}
	anim := animChars[m.frame]
	components = append(components, center.Bold(true).Render(
		fmt.Sprintf("%s  %s  %s", anim, m.shimmer.Render(m.headerText()), anim)))

	jobStyle := center.Foreground(lipgloss.Color(ColorPrimaryText)).Bold(true)
	components = append(components, jobStyle.Render(truncate(m.session.JobDisplayName(), width-4)))

	clockColor := ColorAccentBright
	if m.session.IsInterruption() {
		clockColor = ColorWarning
	}
	var clock []string
	for _, line := range strings.Split(renderBigClock(m.elapsed, clockColor), "\n") {
		clock = append(clock, center.Render(line))
	}
	components = append(components, strings.Join(clock, "\n"))

	started := fmt.Sprintf("Started at %s", m.session.StartedAt.Local().Format("15:04:05"))
	components = append(components, center.Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true).Render(started))

	if m.notice != "" {
		components = append(components, center.Foreground(lipgloss.Color(ColorError)).Render(m.notice))
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(strings.Join(components, "\n\n"))
}

// renderDetailsPanel lists the session fields and the paused parent
func (m TimerModel) renderDetailsPanel(width, height int) string {
	s := m.session
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentMain)).
		Width(width-12).
		Padding(0, 1)
	b.WriteString(titleStyle.Render(fmt.Sprintf("Session #%d", s.ID)))
	b.WriteString("\n\n")

	b.WriteString(detailLine("Status", statusLabel(s), statusColor(s)))
	b.WriteString(detailLine("Job", s.JobDisplayName(), ColorAccentBright))
	b.WriteString(detailLine("Who", performer(s), ColorPrimaryText))
	b.WriteString(detailLine("Tags", tagList(s.Tags), ColorAccentBright))
	if s.Description != "" {
		b.WriteString(detailLine("Notes", s.Description, ColorSecondaryText))
	}
	if s.IsInterruption() {
		b.WriteString(detailLine("Reason", s.InterruptionReason, ColorWarning))
	}

	if m.paused != nil {
		separator := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBorder))
		b.WriteString("\n")
		b.WriteString(separator.Render(strings.Repeat("─", min(width-12, 40))))
		b.WriteString("\n\n")
		b.WriteString(detailLine("Paused", m.paused.JobDisplayName(), ColorWarning))
		b.WriteString(detailLine("Since", m.paused.StartedAt.Local().Format("15:04:05"), ColorSecondaryText))
	}

	return lipgloss.NewStyle().Width(width).Height(height).PaddingTop(2).Render(b.String())
}

func detailLine(label, value, color string) string {
	if value == "" {
		value = "none"
		color = ColorDisabledText
	}
	return fmt.Sprintf("%-8s %s\n",
		lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Render(label+":"),
		lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(value))
}

// renderHelpBar renders the help bar at the bottom
func (m TimerModel) renderHelpBar() string {
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width)

	helpText := "s stop · esc/q exit (keep running) · ctrl+c force quit"
	if m.session.IsInterruption() {
		helpText = "r resume paused work · esc/q exit (keep running)"
	}
	return helpStyle.Render(helpText)
}

func statusLabel(s *models.Session) string {
	if s.IsInterruption() && s.IsActive() {
		return "interruption"
	}
	return string(s.Status)
}

func statusColor(s *models.Session) string {
	switch s.Status {
	case models.StatusOpen:
		return ColorSuccess
	case models.StatusPaused:
		return ColorWarning
	}
	return ColorDisabledText
}

func performer(s *models.Session) string {
	if s.Employee != nil {
		return s.Employee.FullName()
	}
	return s.PerformerName
}

func tagList(tags []models.ActivityTag) string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, "#"+tag.Name)
	}
	return strings.Join(names, " ")
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if width < 4 || len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// RunTimerTUI shows the timer until the user leaves and returns their choice.
// The caller performs the stop or resume.
func RunTimerTUI(session, paused *models.Session) (TimerAction, error) {
	p := tea.NewProgram(NewTimerModel(session, paused), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return ActionLeave, err
	}
	return finalModel.(TimerModel).Action(), nil
}
