package mitm

// Scancode values named in MS-RDPBCGR 2.2.8.1.1.3.1.1.1 (keyboardLayout)
// that the input observer needs to special-case, independent of keyboard
// layout. All other printable keys are resolved through keyNames below.
const (
	scLShift     uint8 = 0x2A
	scRShift     uint8 = 0x36
	scCapsLock   uint8 = 0x3A
	scLControl   uint8 = 0x1D
	scRControl   uint8 = 0x1D // right control is scLControl + KBDFlagsExtended
	scBackspace  uint8 = 0x0E
	scTab        uint8 = 0x0F
	scKeyA       uint8 = 0x1E
	scSpace      uint8 = 0x39
	scReturn     uint8 = 0x1C
)

// keyNames maps the unshifted US QWERTY scancode set to the character it
// produces, covering enough of the keyboard to reconstruct typed
// credentials without modeling every locale's layout.
var keyNames = map[uint8]string{
	0x02: "1", 0x03: "2", 0x04: "3", 0x05: "4", 0x06: "5",
	0x07: "6", 0x08: "7", 0x09: "8", 0x0A: "9", 0x0B: "0",
	0x0C: "-", 0x0D: "=",
	0x10: "q", 0x11: "w", 0x12: "e", 0x13: "r", 0x14: "t",
	0x15: "y", 0x16: "u", 0x17: "i", 0x18: "o", 0x19: "p",
	0x1A: "[", 0x1B: "]",
	0x1E: "a", 0x1F: "s", 0x20: "d", 0x21: "f", 0x22: "g",
	0x23: "h", 0x24: "j", 0x25: "k", 0x26: "l",
	0x27: ";", 0x28: "'", 0x29: "`", 0x2B: "\\",
	0x2C: "z", 0x2D: "x", 0x2E: "c", 0x2F: "v", 0x30: "b",
	0x31: "n", 0x32: "m",
	0x33: ",", 0x34: ".", 0x35: "/",
}

// shiftedKeyNames maps the same scancodes to their shifted character,
// consulted when either shift key or caps lock (for letters only) is active.
var shiftedKeyNames = map[uint8]string{
	0x02: "!", 0x03: "@", 0x04: "#", 0x05: "$", 0x06: "%",
	0x07: "^", 0x08: "&", 0x09: "*", 0x0A: "(", 0x0B: ")",
	0x0C: "_", 0x0D: "+",
	0x1A: "{", 0x1B: "}",
	0x27: ":", 0x28: "\"", 0x29: "~", 0x2B: "|",
	0x33: "<", 0x34: ">", 0x35: "?",
}

// isLetter reports whether scanCode names an alphabetic key, the only
// class where caps lock (rather than shift) also flips case.
func isLetter(scanCode uint8) bool {
	switch scanCode {
	case 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19,
		0x1E, 0x1F, 0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26,
		0x2C, 0x2D, 0x2E, 0x2F, 0x30, 0x31, 0x32:
		return true
	default:
		return false
	}
}

// keyName resolves a scancode to the character it produces under the given
// modifier state, mirroring MS-RDPBCGR's locale-independent scancode table
// for the keys the credential heuristic cares about. It returns "" for
// scancodes with no single-character representation.
func keyName(scanCode uint8, shiftPressed, capsLockOn bool) string {
	upper := shiftPressed
	if isLetter(scanCode) {
		upper = shiftPressed != capsLockOn
	}

	if upper {
		if name, ok := shiftedKeyNames[scanCode]; ok {
			return name
		}
		if isLetter(scanCode) {
			if name, ok := keyNames[scanCode]; ok {
				return upperASCII(name)
			}
		}
		return ""
	}

	return keyNames[scanCode]
}

func upperASCII(s string) string {
	if len(s) != 1 || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0] - ('a' - 'A'))
}
