package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/asmtrace/capture"
	"github.com/wippyai/asmtrace/wazerotrace"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type captureModel struct {
	host     *wazerotrace.Host
	agent    *capture.Agent
	wasmFile string
	invoke   string

	spinner spinner.Model
	stats   capture.Stats
	done    bool
	err     error
}

type runDoneMsg struct {
	err error
}

type statsTickMsg time.Time

func newCaptureModel(host *wazerotrace.Host, agent *capture.Agent, wasmFile, invoke string) *captureModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return &captureModel{
		host:     host,
		agent:    agent,
		wasmFile: wasmFile,
		invoke:   invoke,
		spinner:  s,
	}
}

func statsTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return statsTickMsg(t)
	})
}

func (m *captureModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, statsTick(), m.runModule)
}

func (m *captureModel) runModule() tea.Msg {
	return runDoneMsg{err: run(m.host, m.wasmFile, m.invoke)}
}

func (m *captureModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case statsTickMsg:
		m.stats = m.agent.Session().Stats()
		if m.done {
			return m, nil
		}
		return m, statsTick()

	case runDoneMsg:
		m.done = true
		m.err = msg.err
		m.stats = m.agent.Session().Stats()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *captureModel) View() string {
	s := titleStyle.Render("asmtrace") + "  " + m.wasmFile + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
		} else {
			s += valueStyle.Render("module finished") + "\n\n"
		}
	} else {
		s += m.spinner.View() + " capturing...\n\n"
	}

	rows := []struct {
		label string
		value uint64
	}{
		{"method loads", m.stats.MethodLoads},
		{"method unloads", m.stats.MethodUnloads},
		{"dynamic code", m.stats.DynamicCodes},
		{"bytes written", m.stats.Bytes},
	}
	for _, r := range rows {
		s += fmt.Sprintf("  %s %s\n",
			labelStyle.Render(fmt.Sprintf("%-15s", r.label)),
			valueStyle.Render(fmt.Sprintf("%d", r.value)))
	}

	s += "\n" + helpStyle.Render("q: quit")
	return s
}

func runInteractive(host *wazerotrace.Host, agent *capture.Agent, wasmFile, invoke string) error {
	p := tea.NewProgram(newCaptureModel(host, agent, wasmFile, invoke), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(*captureModel); ok {
		return m.err
	}
	return nil
}
