package ipc

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestReadFrame(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
		wantEOF bool
	}{
		{name: "newline terminated", input: "{\"command\":\"current\"}\nrest", want: "{\"command\":\"current\"}\n"},
		{name: "eof without newline", input: `{"command":"current"}`, want: `{"command":"current"}`},
		{name: "empty input", input: "", wantEOF: true},
		{name: "oversized", input: strings.Repeat("a", 33) + "\n", wantErr: "exceeds 32 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := bufio.NewReaderSize(strings.NewReader(tt.input), 33)
			got, err := readFrame(reader, 32)
			switch {
			case tt.wantEOF:
				if err != io.EOF {
					t.Fatalf("readFrame() error = %v, want io.EOF", err)
				}
			case tt.wantErr != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("readFrame() error = %v, want %q", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("readFrame() error = %v", err)
				}
				if string(got) != tt.want {
					t.Fatalf("readFrame() = %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Request
		wantErr bool
	}{
		{name: "with args", raw: `{"command":"register","args":["Ctrl+K"]}`, want: Request{Command: "register", Args: []string{"Ctrl+K"}}},
		{name: "trims command", raw: `{"command":"  current "}`, want: Request{Command: "current"}},
		{name: "missing command", raw: `{"args":["x"]}`, wantErr: true},
		{name: "not json", raw: `register Ctrl+K`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeRequest([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Command != tt.want.Command || strings.Join(got.Args, ",") != strings.Join(tt.want.Args, ",") {
				t.Fatalf("decodeRequest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, Success("ok")); err != nil {
		t.Fatalf("writeFrame() error = %v", err)
	}
	if got := buf.String(); got != "{\"exit_code\":0,\"stdout\":\"ok\\n\"}\n" {
		t.Fatalf("writeFrame() = %q", got)
	}
}

func TestResponseHelpers(t *testing.T) {
	if resp := Failure("bad %s", "thing"); resp.ExitCode != 1 || resp.Stderr != "bad thing\n" || resp.OK() {
		t.Fatalf("Failure() = %+v", resp)
	}
	if resp := Success(""); resp.Stdout != "" || !resp.OK() {
		t.Fatalf("Success(\"\") = %+v", resp)
	}
	if resp := Success("line\n"); resp.Stdout != "line\n" {
		t.Fatalf("Success() double newline: %q", resp.Stdout)
	}
}

func TestDefaultEndpointRejectsUntrustedOverride(t *testing.T) {
	t.Setenv(EndpointEnv, "relative/evil")
	t.Setenv("USERNAME", "unit tester")

	got := DefaultEndpoint()
	if got == "relative/evil" {
		t.Fatal("DefaultEndpoint() accepted an invalid override")
	}
	if !strings.Contains(got, "unit_tester") {
		t.Fatalf("DefaultEndpoint() = %q, want sanitized username", got)
	}
}
