// Package tui draws the dashboard in a terminal with bubbletea.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"acdash/pkg/engine"
	"acdash/pkg/telemetry"
)

const (
	statusConnected  = "Connected"
	statusConnecting = "Connecting..."
	rpmBarWidth      = 40
)

type Model struct {
	display   telemetry.Display
	connected bool
	frames    int
	quitting  bool
}

func New() Model {
	return Model{display: telemetry.Placeholder()}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case engine.Event:
		switch msg.Kind {
		case engine.EventSnapshot:
			m.display = msg.Display
			m.frames++
		case engine.EventConnection:
			m.connected = msg.Connected
		}
	}
	return m, nil
}

func (m Model) Display() telemetry.Display { return m.display }

func (m Model) Connected() bool { return m.connected }

func (m Model) Status() string {
	if m.connected {
		return statusConnected
	}
	return statusConnecting
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	d := m.display
	var b strings.Builder

	fmt.Fprintf(&b, "acdash  [%s]\n\n", m.Status())
	fmt.Fprintf(&b, "  GEAR %-3s  %s km/h   RPM %s\n", d.Gear, d.Speed, d.RPM)
	fmt.Fprintf(&b, "  %s\n\n", rpmBar(d.RPMPercent, rpmBarWidth))

	fmt.Fprintf(&b, "  %s  %s  %s  %s  %s\n\n",
		indicator("ABS", d.ABS),
		indicator("TC", d.TC),
		indicator("DRS", d.DRS),
		indicator("PIT", d.PitLimiter),
		indicator("BRK", d.Brake),
	)

	fmt.Fprintf(&b, "  LAP %-4s  TIME %s  DELTA %s  BEST %s\n", d.Lap, d.LapTime, d.Delta, d.BestLap)
	fmt.Fprintf(&b, "  FUEL %3.0f%%  rem %s  per lap %s  cap %s\n", d.FuelFill, d.FuelRemaining, d.FuelPerLap, d.FuelCapacity)
	fmt.Fprintf(&b, "  WATER %s  BB %s  TYRES %s\n\n", d.WaterTemp, d.BrakeBias, d.TyreCompound)

	fmt.Fprintf(&b, "         %-12s %-12s\n", "PRESSURE", "CORE TEMP")
	for i, corner := range []string{"FL", "FR", "RL", "RR"} {
		fmt.Fprintf(&b, "    %s   %-12s %-12s\n", corner, d.TyrePressure.Text[i], d.TyreTemp.Text[i])
	}

	fmt.Fprintf(&b, "\n  %d updates   q to quit\n", m.frames)
	return b.String()
}

func indicator(name string, ind telemetry.Indicator) string {
	mark := " "
	if ind.Active {
		mark = "*"
	}
	return fmt.Sprintf("[%s%s %s %s]", mark, name, ind.Label, ind.Value)
}

func rpmBar(percent float64, width int) string {
	filled := int(percent * float64(width) / 100)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// Run shows the dashboard until the user quits, events is closed or ctx is
// cancelled.
func Run(ctx context.Context, events <-chan engine.Event, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(New(), opts...)

	go func() {
		for {
			select {
			case <-ctx.Done():
				p.Quit()
				return
			case ev, ok := <-events:
				if !ok {
					p.Quit()
					return
				}
				p.Send(ev)
			}
		}
	}()

	_, err := p.Run()
	return err
}
