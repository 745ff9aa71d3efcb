package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

type actionMsg struct {
	details []string
	err     error
}

type tickMsg time.Time

type model struct {
	title    string
	details  []string
	err      error
	done     bool
	frame    int
	started  time.Time
	finished time.Time
	action   func(context.Context) ([]string, error)
	timeout  time.Duration
}

func newModel(title string, action func(context.Context) ([]string, error)) model {
	return model{title: title, action: action, started: time.Now(), timeout: 2 * time.Minute}
}

func tick() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	run := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		details, err := m.action(ctx)
		return actionMsg{details: details, err: err}
	}
	return tea.Batch(run, tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = fmt.Errorf("interrupted")
			m.done = true
			return m, tea.Quit
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case actionMsg:
		m.details = msg.details
		m.err = msg.err
		m.done = true
		m.finished = time.Now()
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	if !m.done {
		fmt.Fprintf(&b, "\n%s running %s\n", spinnerFrames[m.frame], mutedStyle.Render(time.Since(m.started).Round(time.Second).String()))
		return b.String()
	}
	elapsed := mutedStyle.Render("(" + m.finished.Sub(m.started).Round(time.Millisecond).String() + ")")
	if m.err != nil {
		fmt.Fprintf(&b, "%s: %v %s\n", failedStyle.Render("FAILED"), m.err, elapsed)
	} else {
		fmt.Fprintf(&b, "%s %s\n", okStyle.Render("OK"), elapsed)
	}
	for _, d := range m.details {
		b.WriteString("- " + d + "\n")
	}
	return b.String()
}

// Run executes action behind a progress view and returns its result once it completes.
func Run(title string, action func(context.Context) ([]string, error)) ([]string, error) {
	p := tea.NewProgram(newModel(title, action))
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	res := final.(model)
	return res.details, res.err
}
