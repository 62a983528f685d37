package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"keybridge/internal/eventstream"
	"keybridge/internal/hotkeys"
)

const maxWatchEvents = 12

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2121DE"))
	pressedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00"))
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#1919A6")).Padding(0, 1)
	hotkeyHelpKey = dimStyle.Underline(true)
)

type streamMsg eventstream.Message

type streamDoneMsg struct{ err error }

type watchEvent struct {
	name string
	seq  uint64
	at   time.Time
	held time.Duration
}

type watchModel struct {
	url       string
	connected bool
	pressed   bool
	pressedAt time.Time
	presses   int
	events    []watchEvent
	err       error
}

func newWatchModel(url string) watchModel {
	return watchModel{url: url}
}

func (m watchModel) Init() tea.Cmd {
	return nil
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case streamMsg:
		m.apply(eventstream.Message(msg))
	case streamDoneMsg:
		m.connected = false
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *watchModel) apply(msg eventstream.Message) {
	switch msg.Type {
	case eventstream.TypeHello:
		m.connected = true
		return
	case eventstream.TypeEvent:
	default:
		return
	}

	ev := watchEvent{name: msg.Name, seq: msg.Seq, at: msg.Time()}
	switch msg.Name {
	case hotkeys.EventPressed:
		m.pressed = true
		m.pressedAt = ev.at
		m.presses++
	case hotkeys.EventReleased:
		if m.pressed {
			ev.held = ev.at.Sub(m.pressedAt)
		}
		m.pressed = false
	}
	m.events = append(m.events, ev)
	if len(m.events) > maxWatchEvents {
		m.events = m.events[len(m.events)-maxWatchEvents:]
	}
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("KeyBridge events"))
	b.WriteString(dimStyle.Render("  " + m.url))
	b.WriteString("\n\n")

	switch {
	case m.pressed:
		b.WriteString(pressedStyle.Render("● pressed"))
	case m.connected:
		b.WriteString(idleStyle.Render("○ idle"))
	default:
		b.WriteString(idleStyle.Render("… connecting"))
	}
	fmt.Fprintf(&b, "   presses: %d\n", m.presses)

	var rows []string
	for i := len(m.events) - 1; i >= 0; i-- {
		ev := m.events[i]
		row := fmt.Sprintf("#%-5d %s  %s", ev.seq, ev.at.Local().Format("15:04:05.000"), ev.name)
		if ev.held > 0 {
			row += dimStyle.Render(fmt.Sprintf("  held %s", ev.held))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		rows = append(rows, dimStyle.Render("waiting for the shortcut..."))
	}
	b.WriteString(panelStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(hotkeyHelpKey.Render("q") + dimStyle.Render(" quit") + "\n")
	return b.String()
}

func (c *cli) watch(ctx context.Context) int {
	url, ok := c.streamURL()
	if !ok {
		return 1
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newWatchModel(url), tea.WithContext(ctx))
	go func() {
		err := eventstream.Subscribe(subCtx, url, func(msg eventstream.Message) {
			p.Send(streamMsg(msg))
		})
		p.Send(streamDoneMsg{err: err})
	}()

	final, err := p.Run()
	cancel()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		c.errorf("watch: %v\n", err)
		return 1
	}
	if m, ok := final.(watchModel); ok && m.err != nil {
		c.errorf("watch: %v\n", m.err)
		return 1
	}
	return 0
}
