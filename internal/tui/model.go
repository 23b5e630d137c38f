// internal/tui/model.go
// Package tui renders one streamed generation in the terminal: content as it
// arrives, recovered tool calls beneath it, and the completion summary.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/util"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	callNameStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	callArgsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	callBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("135")).Padding(0, 1)
	statusStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Padding(0, 1)
)

// Messages emitted while a generation streams.
type (
	ContentMsg struct {
		Content string
	}
	ToolCallMsg struct {
		Call providers.ToolCall
	}
	DoneMsg struct {
		Meta providers.StreamMetadata
	}
	ErrorMsg struct {
		Err error
	}
)

// Model is the Bubble Tea model for a single generation.
type Model struct {
	title      string
	spinner    spinner.Model
	viewport   viewport.Model
	content    strings.Builder
	calls      []providers.ToolCall
	meta       providers.StreamMetadata
	err        error
	done       bool
	quitOnDone bool
	width      int
	height     int
}

// New returns a model titled title. With quitOnDone the program exits as soon
// as the generation finishes.
func New(title string, quitOnDone bool) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return &Model{
		title:      title,
		spinner:    s,
		viewport:   viewport.New(80, 20),
		quitOnDone: quitOnDone,
	}
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update routes stream messages and key presses.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-m.chromeHeight(), 1)
		m.refresh()
		return m, nil

	case ContentMsg:
		m.content.WriteString(msg.Content)
		m.refresh()
		return m, nil

	case ToolCallMsg:
		m.calls = append(m.calls, msg.Call)
		return m, nil

	case DoneMsg:
		m.done = true
		m.meta = msg.Meta
		if m.quitOnDone {
			return m, tea.Quit
		}
		return m, nil

	case ErrorMsg:
		m.done = true
		m.err = msg.Err
		if m.quitOnDone {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.done {
		return m, nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the title line, the content, the tool calls and a status line.
func (m *Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if calls := m.renderCalls(); calls != "" {
		b.WriteString(calls)
		b.WriteString("\n")
	}
	b.WriteString(m.status())
	return b.String()
}

// Content returns the text received so far.
func (m *Model) Content() string { return m.content.String() }

// Calls returns the tool calls received so far.
func (m *Model) Calls() []providers.ToolCall { return m.calls }

// Err returns the stream error, if any.
func (m *Model) Err() error { return m.err }

func (m *Model) refresh() {
	m.viewport.SetContent(util.WrapToWidth(m.content.String(), m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m *Model) chromeHeight() int {
	// title, blank line, status line, and one line per call plus the box border
	h := 3
	if len(m.calls) > 0 {
		h += len(m.calls) + 2
	}
	return h
}

func (m *Model) renderCalls() string {
	if len(m.calls) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.calls))
	for _, call := range m.calls {
		lines = append(lines, fmt.Sprintf("%d %s %s",
			call.Index,
			callNameStyle.Render(call.Function.Name),
			callArgsStyle.Render(call.Function.Arguments)))
	}
	return callBoxStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) status() string {
	switch {
	case m.err != nil:
		return errorStyle.Render("Error: " + m.err.Error())
	case m.done:
		return statusStyle.Render(fmt.Sprintf("done · %s · %d tool calls · %d tokens in %s  (q to quit)",
			m.meta.Model, m.meta.ToolCalls, m.meta.EvalCount, time.Duration(m.meta.TotalDuration).Round(time.Millisecond)))
	default:
		return m.spinner.View() + statusStyle.Render(" generating…")
	}
}
