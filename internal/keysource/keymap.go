package keysource

// Linux input event key codes (input-event-codes.h) for the keys the
// decoder cares about.
const (
	keyEsc        = 1
	keyBackspace  = 14
	keyTab        = 15
	keyEnter      = 28
	keyLeftCtrl   = 29
	keyLeftShift  = 42
	keyRightShift = 54
	keyLeftAlt    = 56
	keySpace      = 57
	keyCapsLock   = 58
	keyRightCtrl  = 97
	keyRightAlt   = 100
	keyLeftMeta   = 125
	keyKPEnter    = 96
)

// keymapEntry holds the unshifted and shifted character for a key code.
type keymapEntry struct {
	normal  rune
	shifted rune
}

// Keymap translates evdev key codes to printable characters for a US
// QWERTY layout, taking shift and caps-lock state into account. Layout
// remapping beyond QWERTY is not attempted; unmapped codes produce no
// character and are surfaced as KindOther.
type Keymap struct {
	entries map[uint16]keymapEntry
}

// NewQwertyKeymap builds the US QWERTY table.
func NewQwertyKeymap() *Keymap {
	e := map[uint16]keymapEntry{
		// Number row.
		2: {'1', '!'}, 3: {'2', '@'}, 4: {'3', '#'}, 5: {'4', '$'},
		6: {'5', '%'}, 7: {'6', '^'}, 8: {'7', '&'}, 9: {'8', '*'},
		10: {'9', '('}, 11: {'0', ')'}, 12: {'-', '_'}, 13: {'=', '+'},

		// Top letter row.
		16: {'q', 'Q'}, 17: {'w', 'W'}, 18: {'e', 'E'}, 19: {'r', 'R'},
		20: {'t', 'T'}, 21: {'y', 'Y'}, 22: {'u', 'U'}, 23: {'i', 'I'},
		24: {'o', 'O'}, 25: {'p', 'P'}, 26: {'[', '{'}, 27: {']', '}'},

		// Home row.
		30: {'a', 'A'}, 31: {'s', 'S'}, 32: {'d', 'D'}, 33: {'f', 'F'},
		34: {'g', 'G'}, 35: {'h', 'H'}, 36: {'j', 'J'}, 37: {'k', 'K'},
		38: {'l', 'L'}, 39: {';', ':'}, 40: {'\'', '"'}, 41: {'`', '~'},
		43: {'\\', '|'},

		// Bottom row.
		44: {'z', 'Z'}, 45: {'x', 'X'}, 46: {'c', 'C'}, 47: {'v', 'V'},
		48: {'b', 'B'}, 49: {'n', 'N'}, 50: {'m', 'M'}, 51: {',', '<'},
		52: {'.', '>'}, 53: {'/', '?'},

		keySpace: {' ', ' '},
	}
	return &Keymap{entries: e}
}

// Translate maps a key code to a character given modifier state. ok is
// false when the code produces no printable character.
func (k *Keymap) Translate(code uint16, shift, capsLock bool) (rune, bool) {
	entry, found := k.entries[code]
	if !found {
		return 0, false
	}

	isLetter := entry.normal >= 'a' && entry.normal <= 'z'
	if isLetter {
		// Caps lock inverts shift for letters only.
		if shift != capsLock {
			return entry.shifted, true
		}
		return entry.normal, true
	}
	if shift {
		return entry.shifted, true
	}
	return entry.normal, true
}

// isModifier reports whether a key code is a modifier key. Modifier-only
// presses never reach the match buffer.
func isModifier(code uint16) bool {
	switch code {
	case keyLeftShift, keyRightShift, keyLeftCtrl, keyRightCtrl,
		keyLeftAlt, keyRightAlt, keyLeftMeta, keyCapsLock:
		return true
	}
	return false
}
