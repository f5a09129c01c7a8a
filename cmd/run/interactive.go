package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/statkit/statbridge"
	"github.com/statkit/statbridge/engine"
	"github.com/statkit/statbridge/history"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type consoleState int

const (
	stateEdit consoleState = iota
	stateRunning
	stateResult
)

type consoleModel struct {
	eng     *engine.Engine
	store   *history.Store
	input   textarea.Model
	spin    spinner.Model
	state   consoleState
	resp    *statbridge.Response
	runErr  error
	elapsed time.Duration
}

type runDoneMsg struct {
	resp    *statbridge.Response
	err     error
	elapsed time.Duration
}

func newConsoleModel(eng *engine.Engine, store *history.Store) *consoleModel {
	ta := textarea.New()
	ta.Placeholder = "result = 1 + 1"
	ta.Prompt = "│ "
	ta.SetWidth(72)
	ta.SetHeight(8)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &consoleModel{
		eng:   eng,
		store: store,
		input: ta,
		spin:  sp,
		state: stateEdit,
	}
}

func (m *consoleModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m *consoleModel) runScript(script string) tea.Cmd {
	return func() tea.Msg {
		started := time.Now()
		resp, err := m.eng.Run(context.Background(), script, nil)
		elapsed := time.Since(started)
		recordRun(m.store, string(m.eng.Kind()), script, started, resp, err)
		return runDoneMsg{resp: resp, err: err, elapsed: elapsed}
	}
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "ctrl+r":
			if m.state == stateEdit && strings.TrimSpace(m.input.Value()) != "" {
				m.state = stateRunning
				return m, tea.Batch(m.spin.Tick, m.runScript(m.input.Value()))
			}

		case "esc":
			if m.state == stateResult {
				m.state = stateEdit
				m.resp = nil
				m.runErr = nil
				m.input.Focus()
				return m, textarea.Blink
			}

		case "ctrl+l":
			if m.state == stateEdit {
				m.input.Reset()
			}
		}

	case runDoneMsg:
		m.state = stateResult
		m.resp = msg.resp
		m.runErr = msg.err
		m.elapsed = msg.elapsed
		return m, nil

	case spinner.TickMsg:
		if m.state == stateRunning {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.state == stateEdit {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *consoleModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("statbridge"))
	b.WriteString(" ")
	b.WriteString(statusStyle.Render(fmt.Sprintf("%s engine, %s", m.eng.Kind(), m.eng.Status())))
	b.WriteString("\n\n")

	switch m.state {
	case stateEdit:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("ctrl+r run • ctrl+l clear • ctrl+c quit"))

	case stateRunning:
		b.WriteString(m.spin.View())
		b.WriteString(" running...")

	case stateResult:
		b.WriteString(m.renderResult())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("esc back to editor • ctrl+c quit"))
	}

	return b.String()
}

func (m *consoleModel) renderResult() string {
	var b strings.Builder
	b.WriteString(statusStyle.Render(fmt.Sprintf("completed in %s", m.elapsed.Round(time.Millisecond))))
	b.WriteString("\n\n")

	if m.runErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("bridge error: %v", m.runErr)))
		if m.resp != nil && m.resp.Output != "" {
			b.WriteString("\n\n")
			b.WriteString(outputStyle.Render(m.resp.Output))
		}
		return b.String()
	}

	if m.resp.Output != "" {
		b.WriteString(outputStyle.Render(m.resp.Output))
		b.WriteString("\n\n")
	}
	if !m.resp.Success {
		b.WriteString(errorStyle.Render(m.resp.Error))
		return b.String()
	}
	if m.resp.Result != nil {
		pretty, err := json.MarshalIndent(m.resp.Result, "", "  ")
		if err != nil {
			pretty = []byte(fmt.Sprintf("%v", m.resp.Result))
		}
		b.WriteString(resultStyle.Render(string(pretty)))
	} else {
		b.WriteString(resultStyle.Render("(no result)"))
	}
	if len(m.resp.Plots) > 0 {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(fmt.Sprintf("%d plot(s) captured", len(m.resp.Plots))))
	}
	return b.String()
}

func runInteractive(eng *engine.Engine, store *history.Store) error {
	p := tea.NewProgram(newConsoleModel(eng, store), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
