// Package ipc is the local control channel between KeyBridge and
// keybridgectl: one newline-terminated JSON request and one response per
// connection, over a per-user named pipe on Windows and a unix socket
// elsewhere.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"keybridge/internal/userutil"
)

// EndpointEnv overrides the default endpoint when it passes validation.
const EndpointEnv = "KEYBRIDGE_PIPE"

const (
	maxRequestBytes  = 64 * 1024
	maxResponseBytes = 256 * 1024
)

// Request is one control command.
type Request struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Response mirrors a CLI invocation result.
type Response struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

// OK reports whether the command succeeded.
func (r Response) OK() bool { return r.ExitCode == 0 }

// Failure builds an exit-code-1 response with a trailing newline.
func Failure(format string, args ...any) Response {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return Response{ExitCode: 1, Stderr: msg}
}

// Success builds an exit-code-0 response. Empty stdout stays empty.
func Success(stdout string) Response {
	if stdout != "" && !strings.HasSuffix(stdout, "\n") {
		stdout += "\n"
	}
	return Response{Stdout: stdout}
}

// CommandExecutor runs one request.
type CommandExecutor interface {
	Execute(req Request) Response
}

// ExecutorFunc adapts a function into CommandExecutor.
type ExecutorFunc func(req Request) Response

func (f ExecutorFunc) Execute(req Request) Response { return f(req) }

// DefaultEndpoint returns the control endpoint for the current user,
// honoring EndpointEnv when its value is acceptable on this platform.
func DefaultEndpoint() string {
	if v := strings.TrimSpace(os.Getenv(EndpointEnv)); v != "" {
		if validEndpoint(v) {
			return v
		}
		slog.Warn("[ipc] "+EndpointEnv+" rejected: value does not match allowed pattern", "value", v)
	}
	return defaultEndpointFor(userutil.CurrentUsername())
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		return Request{}, errors.New("command is required")
	}
	return req, nil
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// writeFrame writes v as one JSON line.
func writeFrame(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(raw, '\n'))
	return err
}

// readFrame reads one newline-terminated frame of at most maxBytes. The
// reader must be sized maxBytes+1. A final frame without a newline is
// accepted; an empty stream returns io.EOF.
func readFrame(reader *bufio.Reader, maxBytes int) ([]byte, error) {
	raw, err := reader.ReadSlice('\n')
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		return nil, fmt.Errorf("frame exceeds %d bytes", maxBytes)
	case errors.Is(err, io.EOF):
		if len(raw) == 0 {
			return nil, io.EOF
		}
		return raw, nil
	case err != nil:
		return nil, err
	}
	return raw, nil
}
