//go:build darwin || windows

package oshotkeys

import (
	"fmt"

	"golang.design/x/hotkey"

	"keybridge/internal/hotkeys"
)

// platformKeys maps canonical key names to OS key codes. The hotkey package
// defines the same constant names on every supported platform.
var platformKeys = map[hotkeys.Key]hotkey.Key{
	"A": hotkey.KeyA, "B": hotkey.KeyB, "C": hotkey.KeyC, "D": hotkey.KeyD,
	"E": hotkey.KeyE, "F": hotkey.KeyF, "G": hotkey.KeyG, "H": hotkey.KeyH,
	"I": hotkey.KeyI, "J": hotkey.KeyJ, "K": hotkey.KeyK, "L": hotkey.KeyL,
	"M": hotkey.KeyM, "N": hotkey.KeyN, "O": hotkey.KeyO, "P": hotkey.KeyP,
	"Q": hotkey.KeyQ, "R": hotkey.KeyR, "S": hotkey.KeyS, "T": hotkey.KeyT,
	"U": hotkey.KeyU, "V": hotkey.KeyV, "W": hotkey.KeyW, "X": hotkey.KeyX,
	"Y": hotkey.KeyY, "Z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"F1": hotkey.KeyF1, "F2": hotkey.KeyF2, "F3": hotkey.KeyF3, "F4": hotkey.KeyF4,
	"F5": hotkey.KeyF5, "F6": hotkey.KeyF6, "F7": hotkey.KeyF7, "F8": hotkey.KeyF8,
	"F9": hotkey.KeyF9, "F10": hotkey.KeyF10, "F11": hotkey.KeyF11, "F12": hotkey.KeyF12,
	"Space":  hotkey.KeySpace,
	"Tab":    hotkey.KeyTab,
	"Enter":  hotkey.KeyReturn,
	"Escape": hotkey.KeyEscape,
	"Delete": hotkey.KeyDelete,
	"Up":     hotkey.KeyUp,
	"Down":   hotkey.KeyDown,
	"Left":   hotkey.KeyLeft,
	"Right":  hotkey.KeyRight,
}

// toPlatform converts a parsed shortcut into the OS modifier list and key code.
func toPlatform(sc hotkeys.Shortcut) ([]hotkey.Modifier, hotkey.Key, error) {
	key, ok := platformKeys[sc.Key()]
	if !ok {
		return nil, 0, fmt.Errorf("key %q has no platform mapping", sc.Key())
	}
	list := sc.ModifierList()
	mods := make([]hotkey.Modifier, 0, len(list))
	for _, mod := range list {
		platformMod, ok := platformModifiers[mod]
		if !ok {
			return nil, 0, fmt.Errorf("modifier %s is not supported on this platform", mod)
		}
		mods = append(mods, platformMod)
	}
	return mods, key, nil
}
