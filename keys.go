package blindkey

import (
	"fmt"
	"strings"
)

// Key is a USB HID keyboard usage ID (usage page 0x07).
type Key uint8

const (
	KeyA         Key = 0x04
	Key1         Key = 0x1E
	Key0         Key = 0x27
	KeyEnter     Key = 0x28
	KeyEscape    Key = 0x29
	KeyBackspace Key = 0x2A
	KeyTab       Key = 0x2B
	KeySpace     Key = 0x2C
	KeyF1        Key = 0x3A
	KeyF2        Key = 0x3B
	KeyF12       Key = 0x45
	KeyDelete    Key = 0x4C
	KeyRight     Key = 0x4F
	KeyLeft      Key = 0x50
	KeyDown      Key = 0x51
	KeyUp        Key = 0x52
)

// Modifier is the modifier bitmap of a boot keyboard report.
type Modifier uint8

const (
	ModCtrl  Modifier = 0x01
	ModShift Modifier = 0x02
	ModAlt   Modifier = 0x04
	ModGUI   Modifier = 0x08
)

// Chord is one key pressed with zero or more modifiers.
type Chord struct {
	Mods Modifier
	Key  Key
}

func tap(k Key) Chord {
	return Chord{Key: k}
}

var namedKeys = map[string]Key{
	"enter":     KeyEnter,
	"return":    KeyEnter,
	"esc":       KeyEscape,
	"escape":    KeyEscape,
	"backspace": KeyBackspace,
	"tab":       KeyTab,
	"space":     KeySpace,
	"delete":    KeyDelete,
	"right":     KeyRight,
	"left":      KeyLeft,
	"down":      KeyDown,
	"up":        KeyUp,
}

var namedMods = map[string]Modifier{
	"ctrl":  ModCtrl,
	"shift": ModShift,
	"alt":   ModAlt,
	"gui":   ModGUI,
	"win":   ModGUI,
}

var keyNames = func() map[Key]string {
	out := map[Key]string{}
	for name, k := range namedKeys {
		if prev, ok := out[k]; !ok || len(name) < len(prev) {
			out[k] = name
		}
	}
	return out
}()

// ParseKey accepts a key name ("enter", "f12", "down") or a single printable character.
func ParseKey(name string) (Chord, error) {
	lower := strings.ToLower(name)
	if k, ok := namedKeys[lower]; ok {
		return tap(k), nil
	}
	var n int
	if _, err := fmt.Sscanf(lower, "f%d", &n); err == nil && n >= 1 && n <= 12 && lower == fmt.Sprintf("f%d", n) {
		return tap(KeyF1 + Key(n-1)), nil
	}
	if len(name) == 1 {
		if c, ok := charChord(name[0]); ok {
			return c, nil
		}
	}
	return Chord{}, fmt.Errorf("unknown key %q", name)
}

// ParseChord combines a key name with modifier names.
func ParseChord(key string, mods []string) (Chord, error) {
	c, err := ParseKey(key)
	if err != nil {
		return Chord{}, err
	}
	for _, m := range mods {
		bit, ok := namedMods[strings.ToLower(m)]
		if !ok {
			return Chord{}, fmt.Errorf("unknown modifier %q", m)
		}
		c.Mods |= bit
	}
	return c, nil
}

func (c Chord) String() string {
	var parts []string
	for _, m := range []struct {
		bit  Modifier
		name string
	}{{ModCtrl, "ctrl"}, {ModShift, "shift"}, {ModAlt, "alt"}, {ModGUI, "gui"}} {
		if c.Mods&m.bit != 0 {
			parts = append(parts, m.name)
		}
	}
	switch {
	case keyNames[c.Key] != "":
		parts = append(parts, keyNames[c.Key])
	case c.Key >= KeyF1 && c.Key <= KeyF12:
		parts = append(parts, fmt.Sprintf("f%d", c.Key-KeyF1+1))
	case c.Key >= KeyA && c.Key < KeyA+26:
		parts = append(parts, string(rune('a'+c.Key-KeyA)))
	case c.Key >= Key1 && c.Key <= Key0:
		parts = append(parts, string("1234567890"[c.Key-Key1]))
	default:
		parts = append(parts, fmt.Sprintf("0x%02X", uint8(c.Key)))
	}
	return strings.Join(parts, "+")
}

// US layout punctuation: unshifted and shifted character per usage ID.
var punctuation = []struct {
	key            Key
	plain, shifted byte
}{
	{0x2D, '-', '_'},
	{0x2E, '=', '+'},
	{0x2F, '[', '{'},
	{0x30, ']', '}'},
	{0x31, '\\', '|'},
	{0x33, ';', ':'},
	{0x34, '\'', '"'},
	{0x35, '`', '~'},
	{0x36, ',', '<'},
	{0x37, '.', '>'},
	{0x38, '/', '?'},
}

const shiftedDigits = "!@#$%^&*()"

// charChord maps a printable ASCII character to its chord on a US layout.
func charChord(ch byte) (Chord, bool) {
	switch {
	case ch >= 'a' && ch <= 'z':
		return Chord{Key: KeyA + Key(ch-'a')}, true
	case ch >= 'A' && ch <= 'Z':
		return Chord{Mods: ModShift, Key: KeyA + Key(ch-'A')}, true
	case ch >= '1' && ch <= '9':
		return Chord{Key: Key1 + Key(ch-'1')}, true
	case ch == '0':
		return Chord{Key: Key0}, true
	case ch == ' ':
		return Chord{Key: KeySpace}, true
	case ch == '\n':
		return Chord{Key: KeyEnter}, true
	case ch == '\t':
		return Chord{Key: KeyTab}, true
	}
	if i := strings.IndexByte(shiftedDigits, ch); i >= 0 {
		return Chord{Mods: ModShift, Key: Key1 + Key(i)}, true
	}
	for _, p := range punctuation {
		switch ch {
		case p.plain:
			return Chord{Key: p.key}, true
		case p.shifted:
			return Chord{Mods: ModShift, Key: p.key}, true
		}
	}
	return Chord{}, false
}
