package keymap

import "github.com/char5742/g11-macrod/internal/macro"

// usageNames はHID Usage ID（キーボードページ）から名前付きキーへの対応表。
// 文字キーはここには含めず、usageChars側でUnicodeキーとして扱う
var usageNames = map[byte]string{
	0x28: "Return",
	0x29: "Escape",
	0x2A: "Backspace",
	0x2B: "Tab",
	0x39: "CapsLock",
	0x3A: "F1",
	0x3B: "F2",
	0x3C: "F3",
	0x3D: "F4",
	0x3E: "F5",
	0x3F: "F6",
	0x40: "F7",
	0x41: "F8",
	0x42: "F9",
	0x43: "F10",
	0x44: "F11",
	0x45: "F12",
	0x46: "PrintScr",
	0x47: "ScrollLock",
	0x48: "Pause",
	0x49: "Insert",
	0x4A: "Home",
	0x4B: "PageUp",
	0x4C: "Delete",
	0x4D: "End",
	0x4E: "PageDown",
	0x4F: "RightArrow",
	0x50: "LeftArrow",
	0x51: "DownArrow",
	0x52: "UpArrow",
	0x53: "Numlock",
	0x54: "Divide",
	0x55: "Multiply",
	0x56: "Subtract",
	0x57: "Add",
	0x58: "Return",
	0x59: "Numpad1",
	0x5A: "Numpad2",
	0x5B: "Numpad3",
	0x5C: "Numpad4",
	0x5D: "Numpad5",
	0x5E: "Numpad6",
	0x5F: "Numpad7",
	0x60: "Numpad8",
	0x61: "Numpad9",
	0x62: "Numpad0",
	0x63: "Decimal",

	0xE0: "LControl",
	0xE1: "LShift",
	0xE2: "Alt",
	0xE3: "Meta",
	0xE4: "RControl",
	0xE5: "RShift",
	0xE6: "Alt",
	0xE7: "Meta",
}

// usageChars はHID Usage IDから文字への対応表
var usageChars = map[byte]rune{
	0x2C: ' ',
	0x2D: '-',
	0x2E: '=',
	0x2F: '[',
	0x30: ']',
	0x31: '\\',
	0x33: ';',
	0x34: '\'',
	0x35: '`',
	0x36: ',',
	0x37: '.',
	0x38: '/',
}

// FromUsage はキーボードインターフェースのHID Usage IDを
// 録画用のKeyValueに変換する。対応するキーがなければfalseを返す
func FromUsage(usage byte) (macro.KeyValue, bool) {
	// 0x04〜0x1D: a〜z
	if usage >= 0x04 && usage <= 0x1D {
		return macro.UnicodeKey(rune('a' + usage - 0x04)), true
	}
	// 0x1E〜0x26: 1〜9
	if usage >= 0x1E && usage <= 0x26 {
		return macro.UnicodeKey(rune('1' + usage - 0x1E)), true
	}
	// 0x27: 0
	if usage == 0x27 {
		return macro.UnicodeKey('0'), true
	}
	if name, ok := usageNames[usage]; ok {
		return macro.NamedKey(name), true
	}
	if ch, ok := usageChars[usage]; ok {
		return macro.UnicodeKey(ch), true
	}
	return macro.KeyValue{}, false
}
