package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/g11-macrod/internal/macro"
)

func TestResolve_NamedKeys(t *testing.T) {
	tests := []struct {
		name     string
		expected uint16
	}{
		{name: "Return", expected: KeyEnter},
		{name: "Control", expected: KeyLeftCtrl},
		{name: "LShift", expected: KeyLeftShift},
		{name: "Alt", expected: KeyLeftAlt},
		{name: "F12", expected: KeyF12},
		{name: "UpArrow", expected: KeyUp},
		{name: "Escape", expected: KeyEsc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, shift, err := Resolve(macro.NamedKey(tt.name))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, code)
			assert.False(t, shift)
		})
	}
}

func TestResolve_UnicodeKeys(t *testing.T) {
	tests := []struct {
		ch    rune
		shift bool
	}{
		{ch: 'a', shift: false},
		{ch: 'A', shift: true},
		{ch: '1', shift: false},
		{ch: '!', shift: true},
		{ch: ' ', shift: false},
		{ch: '\n', shift: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.ch), func(t *testing.T) {
			code, shift, err := Resolve(macro.UnicodeKey(tt.ch))
			require.NoError(t, err)
			assert.NotZero(t, code)
			assert.Equal(t, tt.shift, shift)
		})
	}
}

// 大文字と小文字は同じキーコードでShiftの有無だけが違う
func TestResolve_CaseSharesKeyCode(t *testing.T) {
	lower, lowerShift, err := Resolve(macro.UnicodeKey('q'))
	require.NoError(t, err)
	upper, upperShift, err := Resolve(macro.UnicodeKey('Q'))
	require.NoError(t, err)

	assert.Equal(t, lower, upper)
	assert.False(t, lowerShift)
	assert.True(t, upperShift)
}

func TestResolve_Unknown(t *testing.T) {
	_, _, err := Resolve(macro.NamedKey("NoSuchKey"))
	assert.Error(t, err)

	_, _, err = Resolve(macro.UnicodeKey('☃'))
	assert.Error(t, err)
}

func TestResolveChar(t *testing.T) {
	code, shift, ok := ResolveChar('%')
	require.True(t, ok)
	assert.NotZero(t, code)
	assert.True(t, shift)

	_, _, ok = ResolveChar('☃')
	assert.False(t, ok)
}

func TestFromUsage(t *testing.T) {
	tests := []struct {
		name     string
		usage    byte
		expected macro.KeyValue
	}{
		{name: "letter a", usage: 0x04, expected: macro.UnicodeKey('a')},
		{name: "letter z", usage: 0x1D, expected: macro.UnicodeKey('z')},
		{name: "digit 1", usage: 0x1E, expected: macro.UnicodeKey('1')},
		{name: "digit 0", usage: 0x27, expected: macro.UnicodeKey('0')},
		{name: "return", usage: 0x28, expected: macro.NamedKey("Return")},
		{name: "left shift", usage: 0xE1, expected: macro.NamedKey("LShift")},
		{name: "right control", usage: 0xE4, expected: macro.NamedKey("RControl")},
		{name: "space", usage: 0x2C, expected: macro.UnicodeKey(' ')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := FromUsage(tt.usage)
			require.True(t, ok)
			assert.Equal(t, tt.expected, key)
		})
	}
}

func TestFromUsage_Unknown(t *testing.T) {
	_, ok := FromUsage(0xFF)
	assert.False(t, ok)
}

// FromUsageの結果はResolveで必ずキーコードに解決できる
func TestFromUsage_ResolvesBack(t *testing.T) {
	for usage := byte(0x04); usage <= 0x63; usage++ {
		key, ok := FromUsage(usage)
		if !ok {
			continue
		}
		_, _, err := Resolve(key)
		assert.NoError(t, err, "usage=0x%02x key=%s", usage, key)
	}
	for usage := byte(0xE0); usage <= 0xE7; usage++ {
		key, ok := FromUsage(usage)
		require.True(t, ok)
		_, _, err := Resolve(key)
		assert.NoError(t, err, "usage=0x%02x", usage)
	}
}
