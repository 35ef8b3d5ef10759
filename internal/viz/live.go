// Package viz renders a live terminal view of a running simulation.
package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/mkron/eulerdg/internal/config"
	"github.com/mkron/eulerdg/internal/driver"
	"github.com/mkron/eulerdg/internal/par"
)

const graphWidth = 70

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// SampleMsg carries one output-tick observation from the driver.
type SampleMsg driver.Sample

// DoneMsg signals the run finished (or failed).
type DoneMsg struct {
	Report driver.Report
	Err    error
}

// Model is the bubbletea state of the live view.
type Model struct {
	params  *config.Parameters
	samples []driver.Sample
	report  *driver.Report
	err     error
}

func NewModel(p *config.Parameters) Model {
	return Model{params: p}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case SampleMsg:
		m.samples = append(m.samples, driver.Sample(msg))
	case DoneMsg:
		rep := msg.Report
		m.report = &rep
		m.err = msg.Err
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("eulerdg  %dd  degree %d  %s  case %d",
		m.params.Dimension, m.params.Degree, m.params.Scheme, m.params.InitialCase)))
	b.WriteString("\n")

	t := 0.0
	if len(m.samples) > 0 {
		t = m.samples[len(m.samples)-1].Time
	}
	b.WriteString(labelStyle.Render("time"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%.3f / %.3f", t, m.params.FinalTime)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("output ticks"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", len(m.samples))))
	b.WriteString("\n")

	if len(m.samples) > 0 {
		last := m.samples[len(m.samples)-1]
		b.WriteString(labelStyle.Render("error density"))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%.4e", last.ErrorDensity)))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("density mag"))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%.4e", last.DensityMagnitude)))
		b.WriteString("\n")
	}

	if len(m.samples) > 1 {
		data := make([]float64, len(m.samples))
		for i, s := range m.samples {
			data[i] = s.ErrorDensity
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(graphWidth),
			asciigraph.Caption("density error vs output tick"),
		)
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	if m.report != nil {
		switch {
		case m.err != nil:
			b.WriteString(warnStyle.Render("failed: " + m.err.Error()))
		case m.report.Stable:
			b.WriteString(okStyle.Render(fmt.Sprintf("finished: %d steps, stable", m.report.Steps)))
		default:
			b.WriteString(warnStyle.Render(fmt.Sprintf("finished: %d steps, divergent", m.report.Steps)))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("q: quit"))
	b.WriteString("\n")
	return b.String()
}

// RunLive executes one simulation with the terminal monitor attached.
func RunLive(p *config.Parameters) error {
	prog := tea.NewProgram(NewModel(p))

	go func() {
		pr := driver.New(p, par.Serial(), nil)
		pr.SetSampleHook(func(s driver.Sample) {
			prog.Send(SampleMsg(s))
		})
		rep, err := pr.Run()
		prog.Send(DoneMsg{Report: rep, Err: err})
	}()

	_, err := prog.Run()
	return err
}
