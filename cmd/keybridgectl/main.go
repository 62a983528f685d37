package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"keybridge/internal/control"
	"keybridge/internal/ipc"
)

// sendFn is replaced in tests.
var sendFn = ipc.Send

// cli carries the streams and endpoint a command writes to.
type cli struct {
	stdout   io.Writer
	stderr   io.Writer
	endpoint string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	c := &cli{stdout: os.Stdout, stderr: os.Stderr, endpoint: ipc.DefaultEndpoint()}
	code := c.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		c.printUsage()
		return 0
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "-h", "--help", "help":
		c.printUsage()
		return 0
	case control.CmdRegister, control.CmdUnregister, control.CmdCurrent,
		control.CmdActivateWindow, control.CmdStreamURL:
		return c.forward(ipc.Request{Command: cmd, Args: rest})
	case control.CmdHistory:
		return c.history(rest)
	case "logs":
		return c.logs(ctx, rest)
	case "watch":
		return c.watch(ctx)
	default:
		c.errorf("unknown command %q\n", cmd)
		c.printUsage()
		return 1
	}
}

// forward sends req to the running app and relays its output verbatim.
func (c *cli) forward(req ipc.Request) int {
	resp, ok := c.send(req)
	if !ok {
		return 1
	}
	if resp.Stdout != "" {
		c.write(resp.Stdout)
	}
	if resp.Stderr != "" {
		c.errorf("%s", resp.Stderr)
	}
	return resp.ExitCode
}

func (c *cli) send(req ipc.Request) (ipc.Response, bool) {
	resp, err := sendFn(c.endpoint, req)
	if err != nil {
		if ipc.IsConnectionError(err) {
			c.errorf("no server running on %s\n", c.endpoint)
			return ipc.Response{}, false
		}
		c.errorf("%v\n", err)
		return ipc.Response{}, false
	}
	return resp, true
}

// streamURL asks the running app for its event stream address.
func (c *cli) streamURL() (string, bool) {
	resp, ok := c.send(ipc.Request{Command: control.CmdStreamURL})
	if !ok {
		return "", false
	}
	if !resp.OK() {
		c.errorf("%s", resp.Stderr)
		return "", false
	}
	return strings.TrimSpace(resp.Stdout), true
}

func (c *cli) write(s string) {
	_, _ = io.WriteString(c.stdout, s)
}

func (c *cli) errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.stderr, format, args...)
}

func (c *cli) printUsage() {
	c.write(`usage: keybridgectl <command> [args]

commands:
  register <shortcut>   register a global shortcut, e.g. "Ctrl+Shift+K"
  unregister            remove the current shortcut
  current               print the registered shortcut
  activate-window       bring the KeyBridge window to the front
  stream-url            print the event stream WebSocket URL
  history [limit]       list recent activations (default 20)
  logs [-f]             print the latest diagnostics log, -f to follow
  watch                 show hotkey events live
`)
}
