//go:build windows

package oshotkeys

import (
	"golang.design/x/hotkey"

	"keybridge/internal/hotkeys"
)

var platformModifiers = map[hotkeys.Modifier]hotkey.Modifier{
	hotkeys.ModCtrl:  hotkey.ModCtrl,
	hotkeys.ModAlt:   hotkey.ModAlt,
	hotkeys.ModShift: hotkey.ModShift,
	hotkeys.ModSuper: hotkey.ModWin,
}
