// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ashutoshrp06/reasonchain/internal/types"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Stepper yields the emissions of one run. agent.Run satisfies it.
type Stepper interface {
	Next(ctx context.Context) (types.Emission, bool)
}

// StartFunc begins a reasoning run for a prompt.
type StartFunc func(prompt string) (Stepper, error)

type runState int

const (
	stateIdle runState = iota
	stateReasoning
)

// Model is the Bubble Tea model for the interactive reasoning session.
type Model struct {
	// UI Components
	textInput textinput.Model
	spinner   spinner.Model
	viewport  viewport.Model
	styles    Styles

	// State
	state    runState
	entries  []entry
	current  []types.StepView
	width    int
	height   int
	ready    bool
	quitting bool
	err      error

	// Active run
	run    Stepper
	runCtx context.Context
	runSeq int
	cancel context.CancelFunc

	start     StartFunc
	toolNames []string
}

// entry is one item of the session history.
type entry struct {
	role    string // "user", "system", "run"
	content string
	steps   []types.StepView
	total   *time.Duration
}

// emissionMsg carries the result of one Next call back to the model.
type emissionMsg struct {
	seq      int
	emission types.Emission
	ok       bool
}

// NewModel creates a new UI model. toolNames is empty when tools are off.
func NewModel(start StartFunc, toolNames []string) Model {
	styles := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "Ask anything... (e.g., 'How many r's are in strawberry?')"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 80
	ti.TextStyle = styles.Input
	ti.Cursor.Style = styles.Cursor

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	vp := viewport.New(0, 0)
	vp.KeyMap = viewport.DefaultKeyMap()

	return Model{
		textInput: ti,
		spinner:   s,
		viewport:  vp,
		styles:    styles,
		state:     stateIdle,
		entries:   make([]entry, 0),
		start:     start,
		toolNames: toolNames,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

// headerHeight returns the number of terminal lines occupied by the banner.
func (m Model) headerHeight() int {
	banner := m.styles.BannerTitle.Render(Banner())
	return lipgloss.Height(banner) + 2
}

// footerHeight returns the number of terminal lines occupied by the input + help bar.
func (m Model) footerHeight() int {
	return 4
}

// updateViewport rebuilds the viewport content and scrolls to the bottom.
func (m *Model) updateViewport() {
	var b strings.Builder

	for _, e := range m.entries {
		b.WriteString(m.renderEntry(e))
		b.WriteString("\n")
	}

	if m.state == stateReasoning {
		for _, v := range m.current {
			b.WriteString(m.styles.RenderStep(v, m.width))
			b.WriteString("\n")
		}
		b.WriteString(m.renderStatus())
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.state == stateIdle {
				m.quitting = true
				return m, tea.Quit
			}
			m.abandon()
			m.updateViewport()
			return m, nil

		case tea.KeyEnter:
			if m.state != stateIdle {
				return m, nil
			}

			query := strings.TrimSpace(m.textInput.Value())
			if query == "" {
				return m, nil
			}

			if handled, cmd := m.handleCommand(query); handled {
				m.textInput.SetValue("")
				m.updateViewport()
				return m, cmd
			}

			m.textInput.SetValue("")
			cmd := m.startRun(query)
			m.updateViewport()
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10

		vpWidth := msg.Width
		vpHeight := msg.Height - m.headerHeight() - m.footerHeight()
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(vpWidth, vpHeight)
			m.viewport.KeyMap = viewport.DefaultKeyMap()
		} else {
			m.viewport.Width = vpWidth
			m.viewport.Height = vpHeight
		}

		m.ready = true
		m.updateViewport()

	case emissionMsg:
		cmd := m.handleEmission(msg)
		m.updateViewport()
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		m.updateViewport()
	}

	if m.state == stateIdle {
		var tiCmd tea.Cmd
		m.textInput, tiCmd = m.textInput.Update(msg)
		cmds = append(cmds, tiCmd)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

// startRun seeds a run and schedules its first step.
func (m *Model) startRun(prompt string) tea.Cmd {
	m.entries = append(m.entries, entry{role: "user", content: prompt})

	if m.start == nil {
		m.entries = append(m.entries, entry{role: "system", content: "Error: no reasoning backend configured"})
		return nil
	}

	run, err := m.start(prompt)
	if err != nil {
		m.err = err
		m.entries = append(m.entries, entry{role: "system", content: fmt.Sprintf("Error: %v", err)})
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.run = run
	m.runCtx = ctx
	m.cancel = cancel
	m.runSeq++
	m.current = nil
	m.err = nil
	m.state = stateReasoning

	return tea.Batch(nextEmission(ctx, run, m.runSeq), m.spinner.Tick)
}

// nextEmission pulls one emission off the run in the background.
func nextEmission(ctx context.Context, run Stepper, seq int) tea.Cmd {
	return func() tea.Msg {
		e, ok := run.Next(ctx)
		return emissionMsg{seq: seq, emission: e, ok: ok}
	}
}

func (m *Model) handleEmission(msg emissionMsg) tea.Cmd {
	// Emissions from an abandoned run are dropped.
	if msg.seq != m.runSeq || m.state != stateReasoning {
		return nil
	}

	if !msg.ok {
		m.finishRun(nil)
		return nil
	}

	m.current = msg.emission.Steps
	if msg.emission.Done() {
		m.finishRun(msg.emission.Total)
		return nil
	}
	return nextEmission(m.runCtx, m.run, m.runSeq)
}

func (m *Model) finishRun(total *time.Duration) {
	m.entries = append(m.entries, entry{role: "run", steps: m.current, total: total})
	m.current = nil
	m.run = nil
	m.runCtx = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state = stateIdle
}

// abandon stops the active run. Steps received so far stay in the history.
func (m *Model) abandon() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if len(m.current) > 0 {
		m.entries = append(m.entries, entry{role: "run", steps: m.current})
	}
	m.entries = append(m.entries, entry{role: "system", content: "Run abandoned."})
	m.current = nil
	m.run = nil
	m.runCtx = nil
	m.runSeq++
	m.state = stateIdle
}

// handleCommand processes special commands.
func (m *Model) handleCommand(input string) (bool, tea.Cmd) {
	switch strings.ToLower(input) {
	case "exit", "quit", "q":
		m.quitting = true
		return true, tea.Quit

	case "clear":
		m.entries = make([]entry, 0)
		return true, nil

	case "help", "?":
		m.entries = append(m.entries, entry{
			role: "system",
			content: `Available commands:
  help, ?     Show this help
  clear       Clear the session history
  tools       List the tools available to the model
  exit, quit  Exit

Press esc while a run is in progress to abandon it.

Example prompts:
  "How many r's are in the word strawberry?"
  "Which is larger, 9.11 or 9.9?"
  "What is the 20th Fibonacci number?"`,
		})
		return true, nil

	case "tools":
		content := "Tools are disabled for this session (start with --tools to enable them)."
		if len(m.toolNames) > 0 {
			content = "Available tools:\n  " + strings.Join(m.toolNames, "\n  ")
		}
		m.entries = append(m.entries, entry{role: "system", content: content})
		return true, nil
	}

	return false, nil
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return m.styles.SystemMessage.Render("Goodbye!\n")
	}

	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	b.WriteString(m.styles.BannerTitle.Render(Banner()))
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	b.WriteString(m.styles.Prompt.Render("> "))
	if m.state == stateIdle {
		b.WriteString(m.textInput.View())
	} else {
		b.WriteString(m.styles.StatusText.Render("(reasoning... esc to abandon)"))
	}
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())

	return m.styles.App.Render(b.String())
}

// renderEntry renders one history entry.
func (m Model) renderEntry(e entry) string {
	switch e.role {
	case "user":
		return m.styles.UserMessage.Render("You: " + e.content)

	case "system":
		return m.styles.SystemMessage.Render(e.content)

	case "run":
		var b strings.Builder
		for i, v := range e.steps {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(m.styles.RenderStep(v, m.width))
		}
		if e.total != nil {
			b.WriteString("\n")
			b.WriteString(m.styles.RenderTotal(*e.total))
		}
		return b.String()
	}
	return ""
}

// renderStatus renders the current processing status.
func (m Model) renderStatus() string {
	label := fmt.Sprintf("Reasoning (step %d)...", len(m.current)+1)
	return fmt.Sprintf("%s %s",
		m.spinner.View(),
		m.styles.StateLabel.Render(label),
	)
}

// renderHelpBar renders the bottom help bar.
func (m Model) renderHelpBar() string {
	help := []string{
		m.styles.HelpKey.Render("enter") + m.styles.HelpValue.Render(" send"),
		m.styles.HelpKey.Render("esc") + m.styles.HelpValue.Render(" abandon run"),
		m.styles.HelpKey.Render("ctrl+c") + m.styles.HelpValue.Render(" quit"),
		m.styles.HelpKey.Render("help") + m.styles.HelpValue.Render(" commands"),
	}
	return m.styles.HelpBar.Render(strings.Join(help, "  |  "))
}

// Run starts the interactive session and blocks until the user quits.
func Run(start StartFunc, toolNames []string) error {
	p := tea.NewProgram(NewModel(start, toolNames), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
