package macro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBindings_SingleKeyStep(t *testing.T) {
	text := `#![enable(explicit_struct_names, implicit_some)]
[
    KeyBinding(
        m: 1,
        g: 3,
        on: Press,
        script: [
            Key(A, Click),
        ],
    ),
]`

	bindings, err := ParseBindings(text)
	require.NoError(t, err)
	require.Len(t, bindings, 1)

	b := bindings[0]
	assert.Equal(t, 1, b.M)
	assert.Equal(t, 3, b.G)
	assert.Equal(t, Press, b.On)
	require.Len(t, b.Script, 1)
	assert.Equal(t, KeyStep{Key: NamedKey("A"), Direction: Click}, b.Script[0])
}

func TestParseBindings_StepVariants(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		expected Step
	}{
		{
			name:     "named key click",
			script:   `Key(Return, Click)`,
			expected: KeyStep{Key: NamedKey("Return"), Direction: Click},
		},
		{
			name:     "unicode key press",
			script:   `Key(Unicode('a'), Press)`,
			expected: KeyStep{Key: UnicodeKey('a'), Direction: Press},
		},
		{
			name:     "key with modifier",
			script:   `Key(Control, Unicode('c'), Click)`,
			expected: KeyStep{Modifier: NamedKey("Control"), Key: UnicodeKey('c'), Direction: Click},
		},
		{
			name:     "key with repeat",
			script:   `Key(Tab, Click, 5)`,
			expected: KeyStep{Key: NamedKey("Tab"), Direction: Click, Repeat: 5},
		},
		{
			name:     "modifier key and repeat",
			script:   `Key(Shift, F5, Click, 2)`,
			expected: KeyStep{Modifier: NamedKey("Shift"), Key: NamedKey("F5"), Direction: Click, Repeat: 2},
		},
		{
			name:     "text",
			script:   `Text("hello world")`,
			expected: TextStep{Text: "hello world"},
		},
		{
			name:     "text with escapes",
			script:   `Text("line1\nline2\t\"quoted\"")`,
			expected: TextStep{Text: "line1\nline2\t\"quoted\""},
		},
		{
			name:     "text with repeat",
			script:   `Text("ab", 3)`,
			expected: TextStep{Text: "ab", Repeat: 3},
		},
		{
			name:     "button click",
			script:   `Button(Left, Click)`,
			expected: ButtonStep{Button: ButtonLeft, Direction: Click},
		},
		{
			name:     "back button",
			script:   `Button(Back, Press)`,
			expected: ButtonStep{Button: ButtonBack, Direction: Press},
		},
		{
			name:     "move mouse relative default",
			script:   `MoveMouse(10, -20)`,
			expected: MoveMouseStep{X: 10, Y: -20, Coordinate: Rel},
		},
		{
			name:     "move mouse absolute",
			script:   `MoveMouse(100, 200, Abs)`,
			expected: MoveMouseStep{X: 100, Y: 200, Coordinate: Abs},
		},
		{
			name:     "move mouse with repeat but no coordinate",
			script:   `MoveMouse(5, 5, 4)`,
			expected: MoveMouseStep{X: 5, Y: 5, Coordinate: Rel, Repeat: 4},
		},
		{
			name:     "scroll vertical default",
			script:   `Scroll(-3)`,
			expected: ScrollStep{Magnitude: -3, Axis: Vertical},
		},
		{
			name:     "scroll horizontal with repeat",
			script:   `Scroll(2, Horizontal, 10)`,
			expected: ScrollStep{Magnitude: 2, Axis: Horizontal, Repeat: 10},
		},
		{
			name:     "run without args",
			script:   `Run(Program("firefox"))`,
			expected: RunStep{Program: "firefox"},
		},
		{
			name:     "run with args",
			script:   `Run(Program("xdg-open", ["https://example.com"]))`,
			expected: RunStep{Program: "xdg-open", Args: []string{"https://example.com"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := `[KeyBinding(m: 2, g: 7, on: Release, script: [` + tt.script + `])]`
			bindings, err := ParseBindings(text)
			require.NoError(t, err)
			require.Len(t, bindings, 1)
			require.Len(t, bindings[0].Script, 1)
			assert.Equal(t, tt.expected, bindings[0].Script[0])
		})
	}
}

func TestParseBindings_RepeatOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{name: "repeat zero", script: `Key(A, Click, 0)`},
		{name: "repeat above max", script: `Key(A, Click, 101)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := `[KeyBinding(m: 1, g: 1, on: Press, script: [` + tt.script + `])]`
			_, err := ParseBindings(text)
			assert.Error(t, err)
		})
	}
}

func TestParseBindings_MissingField(t *testing.T) {
	text := `[KeyBinding(m: 1, script: [Key(A, Click)])]`
	_, err := ParseBindings(text)
	assert.Error(t, err)
}

func TestParseBindings_UnknownStepSkipped(t *testing.T) {
	text := `[
    KeyBinding(
        m: 1,
        g: 1,
        on: Press,
        script: [
            Wave(3, Fancy("deep", [1, 2])),
            Key(A, Click),
        ],
    ),
]`

	bindings, err := ParseBindings(text)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	require.Len(t, bindings[0].Script, 1)
	assert.Equal(t, KeyStep{Key: NamedKey("A"), Direction: Click}, bindings[0].Script[0])
}

func TestParseBindings_UnknownFieldSkipped(t *testing.T) {
	text := `[KeyBinding(m: 1, g: 2, on: Press, color: (255, 0, 0), script: [Key(A, Click)])]`

	bindings, err := ParseBindings(text)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, 2, bindings[0].G)
}

func TestParseBindings_Comments(t *testing.T) {
	text := `// ブラウザ起動
[
    /* 一時的に無効化したバインディングはコメントで残す */
    KeyBinding(m: 3, g: 18, on: Press, script: [Run(Program("firefox"))]),
]`

	bindings, err := ParseBindings(text)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, 18, bindings[0].G)
}

func TestParseBindings_EmptyInput(t *testing.T) {
	bindings, err := ParseBindings("")
	require.NoError(t, err)
	assert.Empty(t, bindings)
}

func TestParseRecordings(t *testing.T) {
	text := `#![enable(explicit_struct_names, implicit_some)]
[
    Recording(
        id: "8f14e45f-ceea-467f-a34e-90b7f2c0e6a1",
        captured_at: "2026-08-30T21:15:04Z",
        script: [
            Key(Unicode('h'), Press),
            Key(Unicode('h'), Release),
        ],
    ),
]`

	recordings, err := ParseRecordings(text)
	require.NoError(t, err)
	require.Len(t, recordings, 1)

	rec := recordings[0]
	assert.Equal(t, "8f14e45f-ceea-467f-a34e-90b7f2c0e6a1", rec.ID)
	assert.Equal(t, time.Date(2026, 8, 30, 21, 15, 4, 0, time.UTC), rec.CapturedAt)
	require.Len(t, rec.Script, 2)
	assert.Equal(t, KeyStep{Key: UnicodeKey('h'), Direction: Press}, rec.Script[0])
	assert.Equal(t, KeyStep{Key: UnicodeKey('h'), Direction: Release}, rec.Script[1])
}

func TestParseRecordings_MissingID(t *testing.T) {
	text := `[Recording(captured_at: "2026-08-30T21:15:04Z", script: [])]`
	_, err := ParseRecordings(text)
	assert.Error(t, err)
}
