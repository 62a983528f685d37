//go:build darwin

package oshotkeys

import (
	"golang.design/x/hotkey"

	"keybridge/internal/hotkeys"
)

var platformModifiers = map[hotkeys.Modifier]hotkey.Modifier{
	hotkeys.ModCtrl:  hotkey.ModCtrl,
	hotkeys.ModAlt:   hotkey.ModOption,
	hotkeys.ModShift: hotkey.ModShift,
	hotkeys.ModSuper: hotkey.ModCmd,
}
