// Package viz renders a live terminal view of the cantilever deflection
// while the equation of motion is stepped in real (scaled) time.
package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/cantisim/internal/dynamo"
)

const (
	graphWidth      = 70
	graphHeight     = 12
	historyCapacity = 600
)

type TickMsg time.Time

// Model steps the oscillator between frames and keeps a scrolling deflection
// history for the chart.
type Model struct {
	sys   dynamo.System
	integ dynamo.Integrator

	state   dynamo.State
	initial dynamo.State
	t       float64
	dt      float64

	// simulated samples advanced per frame; the oscillator runs far above
	// any terminal refresh rate, so each frame covers many drive cycles
	stepsPerTick int

	trigger float64
	title   string

	running bool
	history []float64
}

func NewModel(sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, dt, trigger float64, title string) Model {
	return Model{
		sys:          sys,
		integ:        integ,
		state:        x0.Clone(),
		initial:      x0.Clone(),
		dt:           dt,
		stepsPerTick: 200,
		trigger:      trigger,
		title:        title,
		running:      true,
		history:      make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.t = 0
			m.state = m.initial.Clone()
			m.history = m.history[:0]
		case "+", "=":
			m.stepsPerTick *= 2
		case "-", "_":
			if m.stepsPerTick > 1 {
				m.stepsPerTick /= 2
			}
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) step() {
	for i := 0; i < m.stepsPerTick; i++ {
		m.state = m.integ.Step(m.sys, m.state, m.t, m.dt)
		m.t += m.dt
	}
	m.history = append(m.history, m.state[0]*1e9)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")

	if len(m.history) > 1 {
		window := m.history
		if len(window) > graphWidth {
			window = window[len(window)-graphWidth:]
		}
		chart := asciigraph.Plot(window,
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.Caption("deflection (nm)"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	s.WriteString(labelStyle.Render("Status") + valueStyle.Render(status) + "\n")
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.1f µs", m.t*1e6)) + "\n")
	s.WriteString(labelStyle.Render("Deflection") + valueStyle.Render(fmt.Sprintf("%.3f nm", m.state[0]*1e9)) + "\n")
	s.WriteString(labelStyle.Render("Velocity") + valueStyle.Render(fmt.Sprintf("%.3e m/s", m.state[1])) + "\n")
	s.WriteString(labelStyle.Render("Speed") + valueStyle.Render(fmt.Sprintf("%d samples/frame", m.stepsPerTick)) + "\n")

	if m.t >= m.trigger {
		s.WriteString(alertStyle.Render("● FORCE ACTIVE") + "\n")
	} else {
		s.WriteString(labelStyle.Render("Trigger") + valueStyle.Render(fmt.Sprintf("in %.1f µs", (m.trigger-m.t)*1e6)) + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Pause  R:Reset  +/-:Speed  Q:Quit"))

	return frameStyle.Render(s.String())
}

// Run blocks until the user quits the live view.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
