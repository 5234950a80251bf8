// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/blotctl/pkg/blot"
	"github.com/Thermoquad/blotctl/pkg/session"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	statusLifetime = 4 * time.Second
	maxLogEntries  = 100
)

// Edit modes
const (
	editNone = iota
	editCoordinates
	editStep
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// interactiveModel is the Bubble Tea model for keyboard control
type interactiveModel struct {
	sess     *session.Session
	connInfo string

	// Movement
	area    blot.Area
	step    float64
	originX float64
	originY float64

	// Device state
	state deviceState
	queue opQueue

	// Widgets
	spinner spinner.Model
	input   textinput.Model
	mode    int

	// Status line and event log
	status    string
	statusErr bool
	statusAt  time.Time
	events    []logEntry

	// UI state
	width    int
	height   int
	quitting bool
	fatal    error
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type interactiveTickMsg time.Time

// startMsg triggers the startup sequence
type startMsg struct{}

type callDoneMsg struct {
	op *pendingOp
}

type sessionEndedMsg struct {
	err error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func newInteractiveModel(sess *session.Session, connInfo string, c Config) interactiveModel {
	ti := textinput.New()
	ti.CharLimit = 24
	ti.Width = 20

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return interactiveModel{
		sess:     sess,
		connInfo: connInfo,
		area:     blot.DefaultArea(),
		step:     c.Step,
		originX:  c.OriginX,
		originY:  c.OriginY,
		spinner:  sp,
		input:    ti,
		width:    80,
		height:   24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m interactiveModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg { return startMsg{} },
		waitSession(m.sess),
		interactiveTickCmd(),
	)
}

func interactiveTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return interactiveTickMsg(t)
	})
}

// waitCall reports when a call resolves
func waitCall(op *pendingOp) tea.Cmd {
	return func() tea.Msg {
		<-op.call.Done()
		return callDoneMsg{op: op}
	}
}

// waitSession reports when the session ends
func waitSession(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		<-s.Done()
		return sessionEndedMsg{err: s.Err()}
	}
}

func (m interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode != editNone {
			return m.handleEditKey(msg)
		}
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case interactiveTickMsg:
		if m.status != "" && time.Time(msg).Sub(m.statusAt) >= statusLifetime {
			m.status = ""
		}
		return m, interactiveTickCmd()

	case startMsg:
		m.addLogEntry(fmt.Sprintf("Connected: %s", m.connInfo), false)
		cmds := []tea.Cmd{
			m.submit(blot.Pen(false)),
			m.submit(blot.Motors(true)),
			m.submit(blot.Move(m.originX, m.originY)),
		}
		return m, tea.Batch(cmds...)

	case callDoneMsg:
		m.finish(msg.op)

	case sessionEndedMsg:
		if m.quitting {
			return m, nil
		}
		m.fatal = msg.err
		if m.fatal == nil {
			m.fatal = session.ErrClosed
		}
		m.addLogEntry(fmt.Sprintf("Session ended: %v", m.fatal), true)
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m interactiveModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "w", "f":
		cmd = m.moveBy(0, m.step)
	case "down", "s", "b":
		cmd = m.moveBy(0, -m.step)
	case "left", "a", "l":
		cmd = m.moveBy(-m.step, 0)
	case "right", "d", "r":
		cmd = m.moveBy(m.step, 0)

	case "p":
		cmd = m.submit(blot.Pen(!m.queue.projected(m.state).PenDown))
	case "u":
		cmd = m.submit(blot.Pen(false))

	case "m":
		cmd = m.submit(blot.Motors(!m.queue.projected(m.state).MotorsOn))

	case "o":
		cmd = m.submit(blot.OriginGoto())
	case "O":
		cmd = m.submit(blot.OriginSet())

	case "R":
		m.sess.ResetStats()
		m.setStatus("Statistics reset", false)

	case "g":
		return m.startEdit(editCoordinates, "x,y", ""), textinput.Blink
	case "c":
		return m.startEdit(editStep, "step", strconv.FormatFloat(m.step, 'f', -1, 64)), textinput.Blink
	}

	return m, cmd
}

func (m interactiveModel) startEdit(mode int, placeholder, value string) interactiveModel {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	return m
}

func (m interactiveModel) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.endEdit()
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.endEdit()

		if mode == editStep {
			m.applyStep(text)
			return m, nil
		}
		cmd := m.gotoEntered(text)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) endEdit() {
	m.mode = editNone
	m.input.Blur()
	m.input.Reset()
}

func (m *interactiveModel) applyStep(text string) {
	step, err := strconv.ParseFloat(text, 64)
	if err != nil {
		m.setStatus(fmt.Sprintf("Invalid step %q", text), true)
		return
	}
	if err := validateStep(step); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.step = step
	m.setStatus(fmt.Sprintf("Step set to %g mm", step), false)
}

func (m *interactiveModel) gotoEntered(text string) tea.Cmd {
	xs, ys, ok := strings.Cut(text, ",")
	if !ok {
		m.setStatus(fmt.Sprintf("Expected x,y but got %q", text), true)
		return nil
	}
	x, y, err := parseCoordinates(strings.TrimSpace(xs), strings.TrimSpace(ys))
	if err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}

	cx, cy := m.area.Clamp(x, y)
	if cx != x || cy != y {
		m.setStatus(fmt.Sprintf("Clamped to (%.2f, %.2f)", cx, cy), false)
	}
	return m.submit(blot.Move(cx, cy))
}

// moveBy queues a move relative to the projected position
func (m *interactiveModel) moveBy(dx, dy float64) tea.Cmd {
	p := m.queue.projected(m.state)
	x, y := m.area.Clamp(p.X+dx, p.Y+dy)
	if p.Known && x == p.X && y == p.Y {
		m.setStatus("At the edge of the work area", false)
		return nil
	}
	return m.submit(blot.Move(x, y))
}

func (m *interactiveModel) submit(c blot.Command) tea.Cmd {
	op := m.queue.push(m.sess.Submit(c))
	return waitCall(op)
}

// finish applies completed commands in submission order
func (m *interactiveModel) finish(op *pendingOp) {
	for _, done := range m.queue.complete(op) {
		c := done.call.Command()
		if _, err := done.call.Result(); err != nil {
			m.setStatus(fmt.Sprintf("%s failed: %v", c, err), true)
			m.addLogEntry(fmt.Sprintf("%s failed: %v", c, err), true)
			continue
		}
		m.state.apply(c)
		m.addLogEntry(fmt.Sprintf("%s ok (%s)", c, done.call.RTT().Round(time.Millisecond)), false)
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m interactiveModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	s.WriteString(titleStyle.Render("BLOT CONTROL"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q to quit", m.connInfo)))
	s.WriteString("\n\n")

	s.WriteString(m.renderDevicePanel(statsLabelStyle, statsValueStyle, warningStyle, boxStyle))
	s.WriteString("\n")
	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n")

	// Edit prompt or status line
	switch m.mode {
	case editCoordinates:
		s.WriteString(statsLabelStyle.Render("Coordinates (x,y): "))
		s.WriteString(m.input.View())
	case editStep:
		s.WriteString(statsLabelStyle.Render("Step size (mm): "))
		s.WriteString(m.input.View())
	default:
		if m.status != "" {
			if m.statusErr {
				s.WriteString(errorStyle.Render(m.status))
			} else {
				s.WriteString(warningStyle.Render(m.status))
			}
		}
	}
	s.WriteString("\n")

	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render("arrows/wasd move | g goto | c step | p pen | m motors | o origin | O set origin | R reset stats"))

	return s.String()
}

func (m interactiveModel) renderDevicePanel(statsLabelStyle, statsValueStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder

	// Busy indicator
	if n := m.queue.len(); n > 0 {
		s.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), warningStyle.Render(fmt.Sprintf("Blot is moving (%d outstanding)", n))))
	} else if m.state.Known {
		s.WriteString(statsValueStyle.Render(fmt.Sprintf("Blot is stopped at (%.2f, %.2f)", m.state.X, m.state.Y)))
		s.WriteString("\n")
	} else {
		s.WriteString(warningStyle.Render("Position unknown"))
		s.WriteString("\n")
	}

	position := "unknown"
	if m.state.Known {
		position = fmt.Sprintf("(%.2f, %.2f)", m.state.X, m.state.Y)
	}
	if m.queue.pendingPosition() {
		p := m.queue.projected(m.state)
		position += warningStyle.Render(fmt.Sprintf(" → (%.2f, %.2f)", p.X, p.Y))
	}
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Position:"), position))

	pen := penName(m.state.PenDown)
	if c, ok := m.queue.pendingKind(blot.CmdPen); ok && c.Down != m.state.PenDown {
		pen += warningStyle.Render(" → " + penName(c.Down))
	}
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Pen:"), pen))

	motors := onOff(m.state.MotorsOn)
	if c, ok := m.queue.pendingKind(blot.CmdMotors); ok && c.Enable != m.state.MotorsOn {
		motors += warningStyle.Render(" → " + onOff(c.Enable))
	}
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Motors:"), motors))

	s.WriteString(fmt.Sprintf("%s (%.2f, %.2f)  %s %g mm",
		statsLabelStyle.Render("Origin:"), m.state.OriginX, m.state.OriginY,
		statsLabelStyle.Render("Step:"), m.step))

	return boxStyle.Width(m.width - 4).Render(s.String())
}

func (m interactiveModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle lipgloss.Style, boxStyle lipgloss.Style) string {
	stats := m.sess.Stats()

	errText := statsValueStyle.Render("0")
	if n := stats.Errors(); n > 0 {
		errText = errorStyle.Render(fmt.Sprintf("%d", n))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.FramesSent)),
		statsLabelStyle.Render("Received:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.FramesReceived)),
		statsLabelStyle.Render("Errors:"), errText,
		statsLabelStyle.Render("Timeouts:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.Timeouts)),
		statsLabelStyle.Render("RTT:"), statsValueStyle.Render(stats.AverageRTT().Round(time.Millisecond).String()),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m interactiveModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	logHeight := min(8, len(m.events))
	startIdx := len(m.events) - logHeight

	if len(m.events) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for _, entry := range m.events[startIdx:] {
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func penName(down bool) string {
	if down {
		return "DOWN"
	}
	return "UP"
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func (m *interactiveModel) setStatus(message string, isError bool) {
	m.status = message
	m.statusErr = isError
	m.statusAt = time.Now()
}

func (m *interactiveModel) addLogEntry(message string, isError bool) {
	m.events = append(m.events, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	if len(m.events) > maxLogEntries {
		m.events = m.events[len(m.events)-maxLogEntries:]
	}
}
