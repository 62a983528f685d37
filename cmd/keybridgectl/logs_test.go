package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"keybridge/internal/sessionlog"
)

func writeDiagnosticsFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func stubDiagnosticsDir(t *testing.T, dir string) {
	t.Helper()
	orig := diagnosticsDirFn
	t.Cleanup(func() { diagnosticsDirFn = orig })
	diagnosticsDirFn = func() string { return dir }
}

func TestFormatEntry(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	stamp := ts.Local().Format("2006-01-02 15:04:05.000")
	tests := []struct {
		name  string
		entry sessionlog.Entry
		want  string
	}{
		{
			name:  "plain",
			entry: sessionlog.Entry{Timestamp: ts, Level: "warn", Message: "queue full"},
			want:  stamp + " WARN  queue full",
		},
		{
			name: "source and sorted attrs",
			entry: sessionlog.Entry{
				Timestamp: ts,
				Level:     "error",
				Message:   "register failed",
				Source:    "hotkeys",
				Attrs:     map[string]string{"shortcut": "Ctrl+K", "error": "busy"},
			},
			want: stamp + ` ERROR [hotkeys] register failed error="busy" shortcut="Ctrl+K"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatEntry(tt.entry); got != tt.want {
				t.Fatalf("formatEntry() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogsPrintsLatestFile(t *testing.T) {
	dir := t.TempDir()
	stubDiagnosticsDir(t, dir)
	writeDiagnosticsFile(t, dir, "diagnostics-20240101-000000-1.jsonl",
		`{"seq":1,"ts":"2024-01-01T00:00:00Z","level":"warn","msg":"old run"}`)
	writeDiagnosticsFile(t, dir, "diagnostics-20240602-000000-2.jsonl",
		`{"seq":1,"ts":"2024-06-02T00:00:00Z","level":"warn","msg":"new run"}`,
		``,
		`{"seq":2,"ts":"2024-06-02T00:00:01Z","le`)

	c, stdout, stderr := newTestCLI(t)
	if code := c.run(t.Context(), []string{"logs"}); code != 0 {
		t.Fatalf("run() = %d, stderr = %q", code, stderr.String())
	}
	out := stdout.String()
	if strings.Contains(out, "old run") {
		t.Fatalf("printed older file:\n%s", out)
	}
	if !strings.Contains(out, "WARN  new run") {
		t.Fatalf("missing entry:\n%s", out)
	}
	if !strings.Contains(out, `{"seq":2,"ts":"2024-06-02T00:00:01Z","le`) {
		t.Fatalf("partial line not echoed:\n%s", out)
	}
}

func TestLogsErrors(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantStderr string
	}{
		{name: "no files", args: nil, wantStderr: "no diagnostics log found"},
		{name: "bad flag", args: []string{"-x"}, wantStderr: `unknown flag "-x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubDiagnosticsDir(t, t.TempDir())
			c, _, stderr := newTestCLI(t)
			if code := c.run(t.Context(), append([]string{"logs"}, tt.args...)); code != 1 {
				t.Fatalf("run() = %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Fatalf("stderr = %q, want %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestFollowLogStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := writeDiagnosticsFile(t, dir, "diagnostics-20240602-000000-2.jsonl",
		`{"seq":1,"ts":"2024-06-02T00:00:00Z","level":"warn","msg":"first"}`)

	ctx, cancel := context.WithCancel(t.Context())
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- followLog(ctx, path, &out) }()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "first") {
		if time.Now().After(deadline) {
			t.Fatal("existing line was not printed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("followLog() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("followLog() did not return after cancel")
	}
}
