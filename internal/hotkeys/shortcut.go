package hotkeys

import (
	"fmt"
	"runtime"
	"strings"
)

// Modifier is a platform-neutral modifier bitmask.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModSuper
)

// Key is the canonical name of a non-modifier key ("K", "F12", "Space").
type Key string

// Shortcut is a parsed shortcut descriptor.
// Construct only via ParseShortcut so that the canonical form stays consistent.
type Shortcut struct {
	modifiers Modifier
	key       Key
}

// Modifiers returns the modifier bitmask.
func (s Shortcut) Modifiers() Modifier { return s.modifiers }

// Key returns the canonical key name.
func (s Shortcut) Key() Key { return s.key }

// ModifierList returns the set modifiers in canonical order.
func (s Shortcut) ModifierList() []Modifier {
	mods := make([]Modifier, 0, len(modifierOrder))
	for _, mod := range modifierOrder {
		if s.modifiers&mod != 0 {
			mods = append(mods, mod)
		}
	}
	return mods
}

// String returns the canonical form, e.g. "Ctrl+Shift+K".
func (s Shortcut) String() string {
	parts := make([]string, 0, 5)
	for _, mod := range s.ModifierList() {
		parts = append(parts, mod.String())
	}
	return strings.Join(append(parts, string(s.key)), "+")
}

func (m Modifier) String() string {
	if name, ok := modifierNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Modifier(%d)", uint8(m))
}

var modifierOrder = []Modifier{ModCtrl, ModAlt, ModShift, ModSuper}

var modifierNames = map[Modifier]string{
	ModCtrl:  "Ctrl",
	ModAlt:   "Alt",
	ModShift: "Shift",
	ModSuper: "Super",
}

// goos is a test seam for the CommandOrControl resolution.
var goos = runtime.GOOS

// primaryModifier resolves CommandOrControl: Cmd on macOS, Ctrl elsewhere.
func primaryModifier() Modifier {
	if goos == "darwin" {
		return ModSuper
	}
	return ModCtrl
}

func lookupModifier(token string) (Modifier, bool) {
	switch token {
	case "COMMANDORCONTROL", "CMDORCTRL", "COMMANDORCTRL", "CMDORCONTROL":
		return primaryModifier(), true
	case "CONTROL", "CTRL":
		return ModCtrl, true
	case "ALT", "OPTION", "ALTGR":
		return ModAlt, true
	case "SHIFT":
		return ModShift, true
	case "COMMAND", "CMD", "SUPER", "META", "WIN":
		return ModSuper, true
	}
	return 0, false
}

var namedKeys = map[string]Key{
	"SPACE":      "Space",
	"TAB":        "Tab",
	"ENTER":      "Enter",
	"RETURN":     "Enter",
	"ESC":        "Escape",
	"ESCAPE":     "Escape",
	"DELETE":     "Delete",
	"DEL":        "Delete",
	"UP":         "Up",
	"ARROWUP":    "Up",
	"DOWN":       "Down",
	"ARROWDOWN":  "Down",
	"LEFT":       "Left",
	"ARROWLEFT":  "Left",
	"RIGHT":      "Right",
	"ARROWRIGHT": "Right",
}

func lookupKey(token string) (Key, bool) {
	if key, ok := namedKeys[token]; ok {
		return key, true
	}
	if len(token) == 1 {
		ch := token[0]
		if (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			return Key(token), true
		}
		return "", false
	}
	// F1..F12
	if len(token) <= 3 && token[0] == 'F' {
		switch token[1:] {
		case "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12":
			return Key(token), true
		}
	}
	return "", false
}

// ParseShortcut parses accelerator text such as "CommandOrControl+Shift+K".
// Tokens are case-insensitive and may be padded with spaces. Exactly one
// non-modifier key is required; repeated modifiers collapse.
func ParseShortcut(text string) (Shortcut, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return Shortcut{}, fmt.Errorf("shortcut is empty")
	}

	var (
		sc     Shortcut
		hasKey bool
	)
	for _, part := range strings.Split(raw, "+") {
		token := strings.ToUpper(strings.TrimSpace(part))
		if token == "" {
			return Shortcut{}, fmt.Errorf("empty token in %q", raw)
		}
		if mod, ok := lookupModifier(token); ok {
			sc.modifiers |= mod
			continue
		}
		key, ok := lookupKey(token)
		if !ok {
			return Shortcut{}, fmt.Errorf("unknown key %q in %q", strings.TrimSpace(part), raw)
		}
		if hasKey {
			return Shortcut{}, fmt.Errorf("multiple keys in %q: %s and %s", raw, sc.key, key)
		}
		sc.key = key
		hasKey = true
	}
	if !hasKey {
		return Shortcut{}, fmt.Errorf("missing key in %q", raw)
	}
	return sc, nil
}
