package macro

import (
	"fmt"
	"strings"
	"time"
)

// Direction はキーやボタン操作の向きを表す列挙型
type Direction int

const (
	Press Direction = iota
	Release
	Click
)

func (d Direction) String() string {
	switch d {
	case Press:
		return "Press"
	case Release:
		return "Release"
	case Click:
		return "Click"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection は識別子からDirectionを解析する
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "Press":
		return Press, nil
	case "Release":
		return Release, nil
	case "Click":
		return Click, nil
	}
	return 0, fmt.Errorf("不明な操作方向です: %q", s)
}

// Axis はスクロールの軸を表す列挙型
type Axis int

const (
	Vertical Axis = iota
	Horizontal
)

func (a Axis) String() string {
	if a == Horizontal {
		return "Horizontal"
	}
	return "Vertical"
}

// ParseAxis は識別子からAxisを解析する
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "Vertical":
		return Vertical, nil
	case "Horizontal":
		return Horizontal, nil
	}
	return 0, fmt.Errorf("不明なスクロール軸です: %q", s)
}

// Coordinate はマウス移動の座標系を表す列挙型
type Coordinate int

const (
	Rel Coordinate = iota
	Abs
)

func (c Coordinate) String() string {
	if c == Abs {
		return "Abs"
	}
	return "Rel"
}

// ParseCoordinate は識別子からCoordinateを解析する
func ParseCoordinate(s string) (Coordinate, error) {
	switch s {
	case "Rel":
		return Rel, nil
	case "Abs":
		return Abs, nil
	}
	return 0, fmt.Errorf("不明な座標系です: %q", s)
}

// MouseButton はマウスボタンを表す列挙型
type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonRight
	ButtonMiddle
	ButtonBack
	ButtonForward
)

func (b MouseButton) String() string {
	switch b {
	case ButtonLeft:
		return "Left"
	case ButtonRight:
		return "Right"
	case ButtonMiddle:
		return "Middle"
	case ButtonBack:
		return "Back"
	case ButtonForward:
		return "Forward"
	}
	return fmt.Sprintf("MouseButton(%d)", int(b))
}

// ParseMouseButton は識別子からMouseButtonを解析する
func ParseMouseButton(s string) (MouseButton, error) {
	switch s {
	case "Left":
		return ButtonLeft, nil
	case "Right":
		return ButtonRight, nil
	case "Middle":
		return ButtonMiddle, nil
	case "Back":
		return ButtonBack, nil
	case "Forward":
		return ButtonForward, nil
	}
	return 0, fmt.Errorf("不明なマウスボタンです: %q", s)
}

// KeyValue はKeyステップのキーを表す。名前付きキーまたはUnicode文字のどちらか
type KeyValue struct {
	IsUnicode bool
	Value     string
}

// NamedKey は名前付きキーのKeyValueを作成する
func NamedKey(name string) KeyValue {
	return KeyValue{Value: name}
}

// UnicodeKey はUnicode文字のKeyValueを作成する
func UnicodeKey(ch rune) KeyValue {
	return KeyValue{IsUnicode: true, Value: string(ch)}
}

func (k KeyValue) String() string {
	if k.IsUnicode {
		return fmt.Sprintf("'%s'", k.Value)
	}
	return k.Value
}

// Step はスクリプト内の1つの実行単位を表す。
// 種類は以下の6つで固定されており、インタプリタは型switchで網羅的に処理する
type Step interface {
	// RepeatCount はステップの繰り返し回数を返す（最低1）
	RepeatCount() int
	step()
}

// KeyStep はキー入力ステップ。Modifierは省略可能で、
// 指定された場合はキー操作の間押下され続ける
type KeyStep struct {
	Modifier  KeyValue // Value が空文字列なら修飾キーなし
	Key       KeyValue
	Direction Direction
	Repeat    int
}

// HasModifier は修飾キーが指定されているかを返す
func (s KeyStep) HasModifier() bool {
	return s.Modifier.Value != ""
}

// TextStep は文字列タイプステップ
type TextStep struct {
	Text   string
	Repeat int
}

// ButtonStep はマウスボタンステップ
type ButtonStep struct {
	Button    MouseButton
	Direction Direction
	Repeat    int
}

// MoveMouseStep はマウス移動ステップ
type MoveMouseStep struct {
	X          int
	Y          int
	Coordinate Coordinate
	Repeat     int
}

// ScrollStep はスクロールステップ
type ScrollStep struct {
	Magnitude int
	Axis      Axis
	Repeat    int
}

// RunStep は外部プログラム起動ステップ。繰り返しは持たない
type RunStep struct {
	Program string
	Args    []string
}

func (KeyStep) step()       {}
func (TextStep) step()      {}
func (ButtonStep) step()    {}
func (MoveMouseStep) step() {}
func (ScrollStep) step()    {}
func (RunStep) step()       {}

func (s KeyStep) RepeatCount() int       { return normalizeRepeat(s.Repeat) }
func (s TextStep) RepeatCount() int      { return normalizeRepeat(s.Repeat) }
func (s ButtonStep) RepeatCount() int    { return normalizeRepeat(s.Repeat) }
func (s MoveMouseStep) RepeatCount() int { return normalizeRepeat(s.Repeat) }
func (s ScrollStep) RepeatCount() int    { return normalizeRepeat(s.Repeat) }
func (RunStep) RepeatCount() int         { return 1 }

func normalizeRepeat(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func (s KeyStep) String() string {
	if s.HasModifier() {
		return fmt.Sprintf("Key %s+%s [%s]", s.Modifier, s.Key, s.Direction)
	}
	return fmt.Sprintf("Key %s [%s]", s.Key, s.Direction)
}

func (s TextStep) String() string {
	preview := s.Text
	if len(preview) > 28 {
		preview = preview[:28] + "…"
	}
	return fmt.Sprintf("Type %q", preview)
}

func (s ButtonStep) String() string {
	return fmt.Sprintf("Mouse %s [%s]", s.Button, s.Direction)
}

func (s MoveMouseStep) String() string {
	return fmt.Sprintf("Move Mouse (%d, %d) %s", s.X, s.Y, s.Coordinate)
}

func (s ScrollStep) String() string {
	return fmt.Sprintf("Scroll %d %s", s.Magnitude, s.Axis)
}

func (s RunStep) String() string {
	if len(s.Args) > 0 {
		return fmt.Sprintf("Run %s %s", s.Program, strings.Join(s.Args, " "))
	}
	return "Run " + s.Program
}

// KeyBinding はGキーへのマクロ割り当てを表す
type KeyBinding struct {
	M      int       // バンク (1〜3)
	G      int       // Gキー番号 (1〜18)
	On     Direction // PressまたはRelease
	Script []Step
}

// Identity はバインディングの一意な識別子
type Identity struct {
	M  int
	G  int
	On Direction
}

// Identity はバインディングの識別子を返す
func (b KeyBinding) Identity() Identity {
	return Identity{M: b.M, G: b.G, On: b.On}
}

func (id Identity) String() string {
	return fmt.Sprintf("M%d/G%d/%s", id.M, id.G, id.On)
}

// Recording は録画されたマクロの永続化アーティファクト
type Recording struct {
	ID         string
	CapturedAt time.Time
	Script     []Step
}

// バインディング検証の制約値
const (
	MinBank   = 1
	MaxBank   = 3
	MinGKey   = 1
	MaxGKey   = 18
	MaxRepeat = 100
)

// Validate はバインディングの値域と各ステップの制約を検証する
func (b KeyBinding) Validate() error {
	if b.M < MinBank || b.M > MaxBank {
		return fmt.Errorf("バンクが範囲外です: m=%d (1〜3)", b.M)
	}
	if b.G < MinGKey || b.G > MaxGKey {
		return fmt.Errorf("Gキー番号が範囲外です: g=%d (1〜18)", b.G)
	}
	if b.On != Press && b.On != Release {
		return fmt.Errorf("トリガーはPressまたはReleaseである必要があります: on=%s", b.On)
	}
	for i, step := range b.Script {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("ステップ %d: %w", i+1, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	var repeat int
	switch s := step.(type) {
	case KeyStep:
		repeat = s.Repeat
	case TextStep:
		repeat = s.Repeat
	case ButtonStep:
		repeat = s.Repeat
	case MoveMouseStep:
		repeat = s.Repeat
	case ScrollStep:
		repeat = s.Repeat
	case RunStep:
		if s.Program == "" {
			return fmt.Errorf("実行するプログラムが指定されていません")
		}
		return nil
	default:
		return fmt.Errorf("不明なステップ種別です: %T", step)
	}
	if repeat == 0 {
		return nil // 省略時は1回とみなす
	}
	if repeat < 1 || repeat > MaxRepeat {
		return fmt.Errorf("繰り返し回数が範囲外です: %d (1〜%d)", repeat, MaxRepeat)
	}
	return nil
}
