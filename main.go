package main

import (
	"embed"
	"errors"
	"log/slog"
	"os"

	"keybridge/internal/control"
	"keybridge/internal/ipc"
	"keybridge/internal/singleinstance"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	logLevel := new(slog.LevelVar)
	app := NewApp(logLevel)
	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(app.newLogHandler(base)))

	// Checked before Wails starts: a second instance only hands off focus.
	lock, err := singleinstance.TryLock(singleinstance.DefaultName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[DEBUG-SINGLE] another instance is already running, signaling activation")
		resp, sendErr := ipc.Send(ipc.DefaultEndpoint(), ipc.Request{Command: control.CmdActivateWindow})
		if sendErr != nil {
			slog.Warn("[DEBUG-SINGLE] failed to signal existing instance", "error", sendErr)
		} else if !resp.OK() {
			slog.Warn("[DEBUG-SINGLE] existing instance rejected activation", "stderr", resp.Stderr)
		}
		return
	}
	if err != nil {
		slog.Warn("[DEBUG-SINGLE] instance lock failed, proceeding without single-instance guard", "error", err)
	}
	if lock != nil {
		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				slog.Warn("[DEBUG-SINGLE] instance lock release failed", "error", releaseErr)
			}
		}()
	}

	err = wails.Run(&options.App{
		Title:     "KeyBridge",
		Width:     720,
		Height:    560,
		MinWidth:  480,
		MinHeight: 360,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 10, G: 16, B: 22, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []any{
			app,
		},
	})
	if err != nil {
		slog.Error("[ERROR-APP] wails run failed", "error", err)
	}
}
