// Package control maps keybridgectl commands onto the running application.
package control

import (
	"encoding/json"
	"strconv"
	"strings"

	"keybridge/internal/history"
	"keybridge/internal/ipc"
)

// Command names understood by Executor.
const (
	CmdRegister       = "register"
	CmdUnregister     = "unregister"
	CmdCurrent        = "current"
	CmdActivateWindow = "activate-window"
	CmdStreamURL      = "stream-url"
	CmdHistory        = "history"
)

const defaultHistoryLimit = 20

// Host is the application surface the control channel drives. Hotkey
// calls must go through the same manager the front-end uses.
type Host interface {
	RegisterHotkey(text string) error
	UnregisterHotkey() error
	CurrentHotkey() (string, bool)
	ActivateWindow()
	EventStreamURL() string
	RecentActivations(limit int) ([]history.Activation, int, error)
}

// HistoryPage is the JSON payload of the history command.
type HistoryPage struct {
	Items []history.Activation `json:"items"`
	Total int                  `json:"total"`
}

// Executor implements ipc.CommandExecutor.
type Executor struct {
	host Host
}

// NewExecutor creates an executor bound to host.
func NewExecutor(host Host) *Executor {
	return &Executor{host: host}
}

// Execute runs one control request.
func (e *Executor) Execute(req ipc.Request) ipc.Response {
	switch req.Command {
	case CmdRegister:
		// The accelerator may arrive split on spaces ("Ctrl + K").
		text := strings.TrimSpace(strings.Join(req.Args, " "))
		if text == "" {
			return ipc.Failure("usage: register <shortcut>")
		}
		if err := e.host.RegisterHotkey(text); err != nil {
			return ipc.Failure("%s", err.Error())
		}
		return ipc.Success("")

	case CmdUnregister:
		if err := e.host.UnregisterHotkey(); err != nil {
			return ipc.Failure("%s", err.Error())
		}
		return ipc.Success("")

	case CmdCurrent:
		current, ok := e.host.CurrentHotkey()
		if !ok {
			return ipc.Success("")
		}
		return ipc.Success(current)

	case CmdActivateWindow:
		e.host.ActivateWindow()
		return ipc.Success("")

	case CmdStreamURL:
		url := e.host.EventStreamURL()
		if url == "" {
			return ipc.Failure("event stream is disabled")
		}
		return ipc.Success(url)

	case CmdHistory:
		return e.history(req.Args)

	default:
		return ipc.Failure("unknown command: %s", req.Command)
	}
}

func (e *Executor) history(args []string) ipc.Response {
	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return ipc.Failure("history: limit must be a positive integer, got %q", args[0])
		}
		limit = n
	}
	items, total, err := e.host.RecentActivations(limit)
	if err != nil {
		return ipc.Failure("history: %v", err)
	}
	if items == nil {
		items = []history.Activation{}
	}
	raw, err := json.Marshal(HistoryPage{Items: items, Total: total})
	if err != nil {
		return ipc.Failure("history: encode: %v", err)
	}
	return ipc.Success(string(raw))
}
