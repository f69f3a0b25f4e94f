// Package tui provides a Bubble Tea terminal user interface for modkeeper.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/modkeeper/modkeeper/internal/config"
	"github.com/modkeeper/modkeeper/internal/manager"
	"github.com/modkeeper/modkeeper/internal/model"
	"github.com/modkeeper/modkeeper/internal/registry"
	"github.com/modkeeper/modkeeper/internal/workflow"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateList State = iota
	StateInput
	StateWorking
)

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model

	settings *config.Settings
	manager  *manager.Manager
	engine   *workflow.Engine
	registry *registry.Registry

	mods    []model.Mod
	cursor  int
	logs    []string
	pending int
	status  string

	ctx    context.Context
	cancel context.CancelFunc

	// events carries workflow engine events into the Bubble Tea loop.
	events chan workflow.Event

	width  int
	height int
}

// NewModel creates a new TUI model wired to the given collaborators.
// The engine's events are forwarded into the Bubble Tea loop so task
// progress shows up live.
func NewModel(settings *config.Settings, mgr *manager.Manager, engine *workflow.Engine, reg *registry.Registry) Model {
	ti := textinput.New()
	ti.Placeholder = "https://github.com/owner/mod"
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	ctx, cancel := context.WithCancel(context.Background())

	events := make(chan workflow.Event, 64)
	engine.AddListener(func(ev workflow.Event) {
		select {
		case events <- ev:
		default:
			// A full buffer only drops UI updates, never work.
		}
	})

	return Model{
		state:     StateList,
		textInput: ti,
		spinner:   sp,
		settings:  settings,
		manager:   mgr,
		engine:    engine,
		registry:  reg,
		ctx:       ctx,
		cancel:    cancel,
		events:    events,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadMods(), m.waitForEvent(), m.spinner.Tick)
}

// Message types
type (
	// modsLoadedMsg carries the registry contents after a reload.
	modsLoadedMsg struct {
		Mods []model.Mod
		Err  error
	}

	// engineEventMsg wraps one workflow engine event.
	engineEventMsg struct {
		Event workflow.Event
	}

	// opDoneMsg is sent when a foreground operation finishes.
	opDoneMsg struct {
		Status string
		Err    error
	}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				m.state = StateList
				m.textInput.SetValue("")
			}

		case "q":
			if m.state == StateList {
				m.cancel()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == StateList && m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.state == StateList && m.cursor < len(m.mods)-1 {
				m.cursor++
			}

		case "a":
			if m.state == StateList {
				m.state = StateInput
				m.textInput.Focus()
				return m, textinput.Blink
			}

		case "t":
			if m.state == StateList && len(m.mods) > 0 {
				mod := m.mods[m.cursor]
				m.state = StateWorking
				m.status = "toggling " + mod.Name
				return m, tea.Batch(m.toggleMod(mod), m.spinner.Tick)
			}

		case "x":
			if m.state == StateList && len(m.mods) > 0 {
				mod := m.mods[m.cursor]
				m.state = StateWorking
				m.status = "deleting " + mod.Name
				return m, tea.Batch(m.deleteMod(mod), m.spinner.Tick)
			}

		case "u":
			if m.state == StateList {
				m.state = StateWorking
				m.status = "checking all mods for updates"
				return m, tea.Batch(m.updateAll(), m.spinner.Tick)
			}

		case "enter":
			if m.state == StateInput && m.textInput.Value() != "" {
				url := m.textInput.Value()
				m.textInput.SetValue("")
				m.state = StateWorking
				m.status = "resolving " + url
				m.logs = nil
				return m, tea.Batch(m.addMod(url), m.spinner.Tick)
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case modsLoadedMsg:
		if msg.Err == nil {
			m.mods = msg.Mods
			if m.cursor >= len(m.mods) {
				m.cursor = max(0, len(m.mods)-1)
			}
		}

	case engineEventMsg:
		m.appendEventLog(msg.Event)
		switch msg.Event.Type {
		case workflow.WorkflowCompleted, workflow.WorkflowFailed:
			if m.pending > 0 {
				m.pending--
			}
			cmds = append(cmds, m.loadMods())
			if m.pending == 0 && m.state == StateWorking {
				m.state = StateList
			}
		}
		cmds = append(cmds, m.waitForEvent())

	case opDoneMsg:
		if msg.Err != nil {
			m.logs = append(m.logs, errorStyle.Render("✗ "+msg.Err.Error()))
			if m.pending == 0 {
				m.state = StateList
			}
		} else if msg.Status != "" {
			m.logs = append(m.logs, successStyle.Render("✓ "+msg.Status))
		}
		if m.pending == 0 && msg.Err == nil {
			m.state = StateList
		}
		cmds = append(cmds, m.loadMods())
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) appendEventLog(ev workflow.Event) {
	var line string
	switch ev.Type {
	case workflow.TaskStarted:
		line = dimStyle.Render("• " + ev.WorkflowName + ": " + ev.TaskName)
	case workflow.TaskFailed:
		line = errorStyle.Render("✗ " + ev.TaskName + ": " + ev.Err.Error())
	case workflow.WorkflowCompleted:
		line = successStyle.Render("✓ " + ev.WorkflowName)
	case workflow.WorkflowFailed:
		line = errorStyle.Render("✗ " + ev.WorkflowName + " failed")
	default:
		return
	}
	m.logs = append(m.logs, line)
	// Keep only the last 10 lines
	if len(m.logs) > 10 {
		m.logs = m.logs[len(m.logs)-10:]
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🔧 Modkeeper"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Keep your game mods up to date"))
	b.WriteString("\n\n")

	switch m.state {
	case StateList:
		b.WriteString(m.viewList())
	case StateInput:
		b.WriteString(m.viewInput())
	case StateWorking:
		b.WriteString(m.viewWorking())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewList() string {
	var b strings.Builder

	if len(m.mods) == 0 {
		b.WriteString(dimStyle.Render("No mods yet. Press 'a' to add one."))
		b.WriteString("\n")
	}
	for i, mod := range m.mods {
		marker := "  "
		style := infoStyle
		if i == m.cursor {
			marker = "> "
			style = selectedStyle
		}

		enabled := dimStyle.Render("disabled")
		if mod.Enabled {
			enabled = successStyle.Render("enabled")
		}
		line := fmt.Sprintf("%s%s %s [%s]", marker, mod.Name, mod.Version.String(), enabled)
		if mod.BuiltIn {
			line += dimStyle.Render(" (built-in)")
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	if len(m.logs) > 0 {
		b.WriteString("\n")
		for _, line := range m.logs {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Game data: " + m.settings.GameDataPath))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter mod page URL:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewWorking() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(m.status))
	b.WriteString("\n\n")

	for _, line := range m.logs {
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateList:
		return "a: add • t: toggle • u: update all • x: delete • ↑/↓: move • q: quit"
	case StateInput:
		return "enter: add mod • esc: back"
	case StateWorking:
		return "ctrl+c: quit"
	}
	return ""
}

// waitForEvent blocks on the engine event channel and republishes the
// next event as a Bubble Tea message.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return engineEventMsg{Event: <-m.events}
	}
}

func (m Model) loadMods() tea.Cmd {
	return func() tea.Msg {
		mods, err := m.registry.GetAll()
		return modsLoadedMsg{Mods: mods, Err: err}
	}
}

func (m *Model) addMod(url string) tea.Cmd {
	m.pending++
	return func() tea.Msg {
		if err := m.manager.AddOrUpdateMod(m.ctx, url); err != nil {
			return opDoneMsg{Err: err}
		}
		return opDoneMsg{}
	}
}

func (m Model) toggleMod(mod model.Mod) tea.Cmd {
	return func() tea.Msg {
		if err := m.manager.ToggleEnabled(m.ctx, mod); err != nil {
			return opDoneMsg{Err: err}
		}
		return opDoneMsg{Status: "toggled " + mod.Name}
	}
}

func (m Model) deleteMod(mod model.Mod) tea.Cmd {
	return func() tea.Msg {
		if err := m.manager.DeleteMod(m.ctx, mod); err != nil {
			return opDoneMsg{Err: err}
		}
		return opDoneMsg{Status: "deleted " + mod.Name}
	}
}

func (m *Model) updateAll() tea.Cmd {
	return func() tea.Msg {
		checks, err := m.manager.UpdateAllMods(m.ctx)
		if err != nil {
			return opDoneMsg{Err: err}
		}
		updates := 0
		for _, check := range checks {
			if check.Ordering == model.OrderingNewer {
				updates++
			}
		}
		if updates == 0 {
			return opDoneMsg{Status: "all mods are up to date"}
		}
		return opDoneMsg{Status: fmt.Sprintf("updating %d mod(s)", updates)}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings, mgr *manager.Manager, engine *workflow.Engine, reg *registry.Registry) error {
	p := tea.NewProgram(NewModel(settings, mgr, engine, reg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
