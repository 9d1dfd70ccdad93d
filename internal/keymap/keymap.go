package keymap

import (
	"fmt"

	"github.com/char5742/g11-macrod/internal/macro"
)

// Linuxのキーコード（input-event-codes.hのKEY_*より、必要なもののみ）
const (
	KeyEsc        = 1
	KeyMinus      = 12
	KeyEqual      = 13
	KeyBackspace  = 14
	KeyTab        = 15
	KeyLeftBrace  = 26
	KeyRightBrace = 27
	KeyEnter      = 28
	KeyLeftCtrl   = 29
	KeySemicolon  = 39
	KeyApostrophe = 40
	KeyGrave      = 41
	KeyLeftShift  = 42
	KeyBackslash  = 43
	KeyComma      = 51
	KeyDot        = 52
	KeySlash      = 53
	KeyRightShift = 54
	KeyKPAsterisk = 55
	KeyLeftAlt    = 56
	KeySpace      = 57
	KeyCapsLock   = 58
	KeyNumLock    = 69
	KeyScrollLock = 70
	KeyKPMinus    = 74
	KeyKPPlus     = 78
	KeyKP0        = 82
	KeyKPDot      = 83
	KeyF11        = 87
	KeyF12        = 88
	KeyKPEnter    = 96
	KeyRightCtrl  = 97
	KeyKPSlash    = 98
	KeySysRq      = 99
	KeyRightAlt   = 100
	KeyHome       = 102
	KeyUp         = 103
	KeyPageUp     = 104
	KeyLeft       = 105
	KeyRight      = 106
	KeyEnd        = 107
	KeyDown       = 108
	KeyPageDown   = 109
	KeyInsert     = 110
	KeyDelete     = 111
	KeyPause      = 119
	KeyLeftMeta   = 125
	KeyCompose    = 127
)

// namedKeys は名前付きキーからLinuxキーコードへの対応表。
// キー名は元の設定ファイルで使われる語彙（enigoのKey variant名）に揃えている
var namedKeys = map[string]uint16{
	"Alt":      KeyLeftAlt,
	"CapsLock": KeyCapsLock,
	"Control":  KeyLeftCtrl,
	"LControl": KeyLeftCtrl,
	"RControl": KeyRightCtrl,
	"Shift":    KeyLeftShift,
	"LShift":   KeyLeftShift,
	"RShift":   KeyRightShift,
	"Meta":     KeyLeftMeta,
	"LMenu":    KeyCompose,

	"DownArrow":  KeyDown,
	"LeftArrow":  KeyLeft,
	"RightArrow": KeyRight,
	"UpArrow":    KeyUp,

	"End":      KeyEnd,
	"Home":     KeyHome,
	"PageDown": KeyPageDown,
	"PageUp":   KeyPageUp,

	"F1":  59,
	"F2":  60,
	"F3":  61,
	"F4":  62,
	"F5":  63,
	"F6":  64,
	"F7":  65,
	"F8":  66,
	"F9":  67,
	"F10": 68,
	"F11": KeyF11,
	"F12": KeyF12,

	"Backspace": KeyBackspace,
	"Delete":    KeyDelete,
	"Escape":    KeyEsc,
	"Insert":    KeyInsert,
	"Return":    KeyEnter,
	"Space":     KeySpace,
	"Tab":       KeyTab,

	"Numlock":    KeyNumLock,
	"ScrollLock": KeyScrollLock,
	"Pause":      KeyPause,
	"PrintScr":   KeySysRq,

	"Numpad0": KeyKP0,
	"Numpad1": 79,
	"Numpad2": 80,
	"Numpad3": 81,
	"Numpad4": 75,
	"Numpad5": 76,
	"Numpad6": 77,
	"Numpad7": 71,
	"Numpad8": 72,
	"Numpad9": 73,

	"Add":      KeyKPPlus,
	"Decimal":  KeyKPDot,
	"Divide":   KeyKPSlash,
	"Multiply": KeyKPAsterisk,
	"Subtract": KeyKPMinus,
}

// charKey は1つの文字のキーコードとShift要否
type charKey struct {
	code  uint16
	shift bool
}

// charKeys はUnicode文字からキーコードへの対応表（USレイアウト）
var charKeys = map[rune]charKey{
	'1': {2, false}, '!': {2, true},
	'2': {3, false}, '@': {3, true},
	'3': {4, false}, '#': {4, true},
	'4': {5, false}, '$': {5, true},
	'5': {6, false}, '%': {6, true},
	'6': {7, false}, '^': {7, true},
	'7': {8, false}, '&': {8, true},
	'8': {9, false}, '*': {9, true},
	'9': {10, false}, '(': {10, true},
	'0': {11, false}, ')': {11, true},
	'-': {KeyMinus, false}, '_': {KeyMinus, true},
	'=': {KeyEqual, false}, '+': {KeyEqual, true},

	'q': {16, false}, 'w': {17, false}, 'e': {18, false}, 'r': {19, false},
	't': {20, false}, 'y': {21, false}, 'u': {22, false}, 'i': {23, false},
	'o': {24, false}, 'p': {25, false},
	'[': {KeyLeftBrace, false}, '{': {KeyLeftBrace, true},
	']': {KeyRightBrace, false}, '}': {KeyRightBrace, true},

	'a': {30, false}, 's': {31, false}, 'd': {32, false}, 'f': {33, false},
	'g': {34, false}, 'h': {35, false}, 'j': {36, false}, 'k': {37, false},
	'l': {38, false},
	';': {KeySemicolon, false}, ':': {KeySemicolon, true},
	'\'': {KeyApostrophe, false}, '"': {KeyApostrophe, true},
	'`': {KeyGrave, false}, '~': {KeyGrave, true},
	'\\': {KeyBackslash, false}, '|': {KeyBackslash, true},

	'z': {44, false}, 'x': {45, false}, 'c': {46, false}, 'v': {47, false},
	'b': {48, false}, 'n': {49, false}, 'm': {50, false},
	',': {KeyComma, false}, '<': {KeyComma, true},
	'.': {KeyDot, false}, '>': {KeyDot, true},
	'/': {KeySlash, false}, '?': {KeySlash, true},

	' ':  {KeySpace, false},
	'\n': {KeyEnter, false},
	'\t': {KeyTab, false},
}

func init() {
	// 大文字は対応する小文字+Shiftとして登録する
	for ch := 'a'; ch <= 'z'; ch++ {
		lower := charKeys[ch]
		charKeys[ch-'a'+'A'] = charKey{code: lower.code, shift: true}
	}
}

// Resolve はKeyValueをLinuxキーコードとShift要否に解決する。
// 解決できないキーはエラーを返す（呼び出し側でステップを読み飛ばす）
func Resolve(k macro.KeyValue) (code uint16, shift bool, err error) {
	if k.IsUnicode {
		runes := []rune(k.Value)
		if len(runes) != 1 {
			return 0, false, fmt.Errorf("Unicodeキーは1文字である必要があります: %q", k.Value)
		}
		ck, ok := charKeys[runes[0]]
		if !ok {
			return 0, false, fmt.Errorf("文字に対応するキーがありません: %q", k.Value)
		}
		return ck.code, ck.shift, nil
	}

	keyCode, ok := namedKeys[k.Value]
	if !ok {
		return 0, false, fmt.Errorf("不明なキー名です: %q", k.Value)
	}
	return keyCode, false, nil
}

// ResolveChar は1つの文字をキーコードとShift要否に解決する
func ResolveChar(ch rune) (code uint16, shift bool, ok bool) {
	ck, found := charKeys[ch]
	return ck.code, ck.shift, found
}
