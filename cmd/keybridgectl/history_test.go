package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"keybridge/internal/control"
	"keybridge/internal/history"
	"keybridge/internal/ipc"
)

func TestRenderHistory(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		page control.HistoryPage
		want []string
	}{
		{
			name: "empty",
			page: control.HistoryPage{},
			want: []string{"no activations recorded"},
		},
		{
			name: "rows",
			page: control.HistoryPage{
				Total: 1234,
				Items: []history.Activation{
					{
						ID:         "5f0c1a2b-aaaa-bbbb-cccc-ddddeeeeffff",
						Shortcut:   "Ctrl+Shift+K",
						PressedAt:  now.Add(-5 * time.Minute),
						DurationMs: 1500,
						Processed:  true,
					},
					{
						ID:         "plain",
						Shortcut:   "F9",
						PressedAt:  now.Add(-2 * time.Hour),
						DurationMs: 80,
					},
				},
			},
			want: []string{
				"ID", "SHORTCUT", "HELD",
				"5f0c1a2b ", "Ctrl+Shift+K", "5 minutes ago", "1.5s", "yes",
				"plain", "F9", "2 hours ago", "80ms", "no",
				"showing 2 of 1,234 activations",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := renderHistory(&buf, tt.page, now); err != nil {
				t.Fatalf("renderHistory() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Fatalf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestHistoryCommand(t *testing.T) {
	orig := nowFn
	t.Cleanup(func() { nowFn = orig })
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	nowFn = func() time.Time { return now }

	raw, err := json.Marshal(control.HistoryPage{
		Total: 1,
		Items: []history.Activation{{ID: "abc", Shortcut: "Alt+Space", PressedAt: now.Add(-time.Minute), DurationMs: 200}},
	})
	if err != nil {
		t.Fatal(err)
	}

	c, stdout, _ := newTestCLI(t)
	got := stubSend(t, ipc.Success(string(raw)), nil)
	if code := c.run(t.Context(), []string{"history", "5"}); code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}
	if got.Command != control.CmdHistory || len(got.Args) != 1 || got.Args[0] != "5" {
		t.Fatalf("request = %+v", *got)
	}
	if !strings.Contains(stdout.String(), "Alt+Space") || !strings.Contains(stdout.String(), "1 minute ago") {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestHistoryCommandErrors(t *testing.T) {
	tests := []struct {
		name       string
		resp       ipc.Response
		wantStderr string
	}{
		{name: "server failure", resp: ipc.Failure("history: history is disabled"), wantStderr: "history is disabled"},
		{name: "bad payload", resp: ipc.Success("not json"), wantStderr: "decode response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, stderr := newTestCLI(t)
			stubSend(t, tt.resp, nil)
			if code := c.run(t.Context(), []string{"history"}); code != 1 {
				t.Fatalf("run() = %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Fatalf("stderr = %q, want %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}
