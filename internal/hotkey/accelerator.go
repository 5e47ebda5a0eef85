package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

type Modifier uint8

const (
	Shift Modifier = 1 << iota
	Ctrl
	Alt
	Super
)

// Accelerator is a parsed key combination such as "Ctrl+Shift+R"
type Accelerator struct {
	Mods Modifier
	Key  string // canonical key name: "A".."Z", "0".."9", "F1".."F12", "Space", ...
}

func (a Accelerator) String() string {
	var parts []string
	for _, m := range []struct {
		mod  Modifier
		name string
	}{{Ctrl, "Ctrl"}, {Alt, "Alt"}, {Shift, "Shift"}, {Super, "Super"}} {
		if a.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, a.Key), "+")
}

var modifierNames = map[string]Modifier{
	"shift":   Shift,
	"ctrl":    Ctrl,
	"control": Ctrl,
	"alt":     Alt,
	"option":  Alt,
	"opt":     Alt,
	"super":   Super,
	"cmd":     Super,
	"command": Super,
	"meta":    Super,
	"win":     Super,
}

var namedKeys = map[string]string{
	"space":  "Space",
	"enter":  "Return",
	"return": "Return",
	"tab":    "Tab",
	"esc":    "Escape",
	"escape": "Escape",
}

// ParseAccelerator parses "Mod+Mod+Key". Modifier names are case-insensitive
// and there must be exactly one non-modifier key.
func ParseAccelerator(accel string) (Accelerator, error) {
	var a Accelerator
	if strings.TrimSpace(accel) == "" {
		return a, fmt.Errorf("empty accelerator")
	}

	for _, part := range strings.Split(accel, "+") {
		p := strings.TrimSpace(part)
		if p == "" {
			return a, fmt.Errorf("invalid accelerator %q", accel)
		}
		if mod, ok := modifierNames[strings.ToLower(p)]; ok {
			a.Mods |= mod
			continue
		}
		if a.Key != "" {
			return a, fmt.Errorf("accelerator %q has more than one key", accel)
		}
		key, err := canonicalKey(p)
		if err != nil {
			return a, fmt.Errorf("accelerator %q: %w", accel, err)
		}
		a.Key = key
	}

	if a.Key == "" {
		return a, fmt.Errorf("accelerator %q has no key", accel)
	}
	return a, nil
}

func canonicalKey(p string) (string, error) {
	if named, ok := namedKeys[strings.ToLower(p)]; ok {
		return named, nil
	}
	if len(p) == 1 {
		c := p[0]
		switch {
		case c >= 'a' && c <= 'z':
			return string(c - 'a' + 'A'), nil
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			return p, nil
		}
	}
	upper := strings.ToUpper(p)
	if strings.HasPrefix(upper, "F") {
		if n, err := strconv.Atoi(upper[1:]); err == nil && n >= 1 && n <= 12 && strconv.Itoa(n) == upper[1:] {
			return upper, nil
		}
	}
	return "", fmt.Errorf("unknown key %q", p)
}

// x11Keysym is the name XStringToKeysym expects for a canonical key
func x11Keysym(key string) string {
	switch key {
	case "Space":
		return "space"
	case "Return", "Tab", "Escape":
		return key
	}
	if len(key) == 1 && key[0] >= 'A' && key[0] <= 'Z' {
		return string(key[0] - 'A' + 'a')
	}
	return key
}

// X11 modifier masks
const (
	x11ShiftMask   = 1 << 0
	x11ControlMask = 1 << 2
	x11Mod1Mask    = 1 << 3 // Alt
	x11Mod4Mask    = 1 << 6 // Super
)

func x11Modifiers(m Modifier) int {
	var mask int
	if m&Shift != 0 {
		mask |= x11ShiftMask
	}
	if m&Ctrl != 0 {
		mask |= x11ControlMask
	}
	if m&Alt != 0 {
		mask |= x11Mod1Mask
	}
	if m&Super != 0 {
		mask |= x11Mod4Mask
	}
	return mask
}

// Carbon modifier flags
const (
	carbonCmdKey     = 0x0100
	carbonShiftKey   = 0x0200
	carbonOptionKey  = 0x0800
	carbonControlKey = 0x1000
)

func carbonModifiers(m Modifier) uint32 {
	var mask uint32
	if m&Shift != 0 {
		mask |= carbonShiftKey
	}
	if m&Ctrl != 0 {
		mask |= carbonControlKey
	}
	if m&Alt != 0 {
		mask |= carbonOptionKey
	}
	if m&Super != 0 {
		mask |= carbonCmdKey
	}
	return mask
}

// macOS virtual key codes (ANSI layout)
var carbonKeyCodes = map[string]uint32{
	"A": 0, "S": 1, "D": 2, "F": 3, "H": 4, "G": 5, "Z": 6, "X": 7,
	"C": 8, "V": 9, "B": 11, "Q": 12, "W": 13, "E": 14, "R": 15,
	"Y": 16, "T": 17, "1": 18, "2": 19, "3": 20, "4": 21, "6": 22,
	"5": 23, "9": 25, "7": 26, "8": 28, "0": 29, "O": 31, "U": 32,
	"I": 34, "P": 35, "L": 37, "J": 38, "K": 40, "N": 45, "M": 46,
	"Return": 36, "Tab": 48, "Space": 49, "Escape": 53,
	"F1": 122, "F2": 120, "F3": 99, "F4": 118, "F5": 96, "F6": 97,
	"F7": 98, "F8": 100, "F9": 101, "F10": 109, "F11": 103, "F12": 111,
}
