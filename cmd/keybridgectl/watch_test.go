package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"keybridge/internal/eventstream"
	"keybridge/internal/hotkeys"
)

func eventAt(name string, seq uint64, at time.Time) streamMsg {
	return streamMsg{Type: eventstream.TypeEvent, Name: name, Seq: seq, TS: at.UnixMilli()}
}

func updateWatch(t *testing.T, m watchModel, msg tea.Msg) (watchModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	wm, ok := next.(watchModel)
	if !ok {
		t.Fatalf("Update() returned %T", next)
	}
	return wm, cmd
}

func TestWatchModelTracksPressCycle(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := newWatchModel("ws://127.0.0.1:7170/events")

	m, _ = updateWatch(t, m, streamMsg{Type: eventstream.TypeHello})
	if !m.connected {
		t.Fatal("connected = false after hello")
	}
	if !strings.Contains(m.View(), "idle") {
		t.Fatalf("View() = %q, want idle", m.View())
	}

	m, _ = updateWatch(t, m, eventAt(hotkeys.EventPressed, 1, base))
	if !m.pressed || m.presses != 1 {
		t.Fatalf("after press pressed=%v presses=%d", m.pressed, m.presses)
	}
	if !strings.Contains(m.View(), "pressed") {
		t.Fatalf("View() = %q, want pressed", m.View())
	}

	m, _ = updateWatch(t, m, eventAt(hotkeys.EventReleased, 2, base.Add(750*time.Millisecond)))
	if m.pressed {
		t.Fatal("pressed = true after release")
	}
	if len(m.events) != 2 || m.events[1].held != 750*time.Millisecond {
		t.Fatalf("events = %+v", m.events)
	}
	if !strings.Contains(m.View(), "held 750ms") {
		t.Fatalf("View() = %q, want held duration", m.View())
	}
}

func TestWatchModelReleaseWithoutPress(t *testing.T) {
	m := newWatchModel("ws://x")
	m, _ = updateWatch(t, m, eventAt(hotkeys.EventReleased, 1, time.Now()))
	if m.pressed || m.events[0].held != 0 {
		t.Fatalf("model = %+v", m)
	}
}

func TestWatchModelKeepsRecentEvents(t *testing.T) {
	m := newWatchModel("ws://x")
	base := time.Now()
	for i := range maxWatchEvents + 5 {
		m, _ = updateWatch(t, m, eventAt(hotkeys.EventPressed, uint64(i+1), base))
	}
	if len(m.events) != maxWatchEvents {
		t.Fatalf("len(events) = %d, want %d", len(m.events), maxWatchEvents)
	}
	if m.events[0].seq != 6 {
		t.Fatalf("oldest seq = %d, want 6", m.events[0].seq)
	}
}

func TestWatchModelQuits(t *testing.T) {
	tests := []struct {
		name    string
		msg     tea.Msg
		wantErr bool
	}{
		{name: "q key", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}},
		{name: "ctrl+c", msg: tea.KeyMsg{Type: tea.KeyCtrlC}},
		{name: "stream closed", msg: streamDoneMsg{}},
		{name: "stream failed", msg: streamDoneMsg{err: errors.New("eventstream: read: EOF")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := updateWatch(t, newWatchModel("ws://x"), tt.msg)
			if cmd == nil {
				t.Fatal("Update() cmd = nil, want tea.Quit")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Fatalf("cmd() = %T, want tea.QuitMsg", cmd())
			}
			if (m.err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", m.err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(m.View(), "EOF") {
				t.Fatalf("View() = %q, want error text", m.View())
			}
		})
	}
}

func TestWatchModelIgnoresOtherKeys(t *testing.T) {
	_, cmd := updateWatch(t, newWatchModel("ws://x"), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if cmd != nil {
		t.Fatal("Update() cmd != nil for unbound key")
	}
}
