package engine

import (
	"log"

	"github.com/char5742/g11-macrod/internal/consts"
	"github.com/char5742/g11-macrod/internal/input"
	"github.com/char5742/g11-macrod/internal/keymap"
	"github.com/char5742/g11-macrod/internal/macro"
)

// Runner は外部プログラムを起動する関数。起動後の完了を待ってはならない
type Runner func(program string, args []string) error

// Interpreter はマクロスクリプトを注入サーフェスに対して実行する。
// 1つのスクリプトはステップ順に同期実行され、ステップの失敗は
// ログに記録されるだけで残りのステップの実行は継続する
type Interpreter struct {
	keyboard input.Keyboard
	mouse    input.Mouse
	run      Runner
}

// NewInterpreter は新しいInterpreterを作成する
func NewInterpreter(keyboard input.Keyboard, mouse input.Mouse, run Runner) *Interpreter {
	return &Interpreter{keyboard: keyboard, mouse: mouse, run: run}
}

// Execute はスクリプトを先頭から順に完了まで実行する。
// 各ステップの繰り返しは、そのステップの全アクションをN回連続で
// 実行してから次のステップに進む
func (it *Interpreter) Execute(script []macro.Step) {
	for _, step := range script {
		for i := 0; i < step.RepeatCount(); i++ {
			it.executeStep(step)
		}
	}
}

func (it *Interpreter) executeStep(step macro.Step) {
	switch s := step.(type) {
	case macro.KeyStep:
		it.executeKey(s)
	case macro.TextStep:
		it.executeText(s)
	case macro.ButtonStep:
		it.executeButton(s)
	case macro.MoveMouseStep:
		if s.Coordinate == macro.Abs {
			// 仮想マウスは相対移動デバイスのため絶対座標は注入できない
			log.Printf("絶対座標のマウス移動はサポートされていません。読み飛ばします: %s", s)
			return
		}
		if err := it.mouse.Move(int32(s.X), int32(s.Y)); err != nil {
			log.Printf("マウス移動の注入に失敗しました: %v", err)
		}
	case macro.ScrollStep:
		if err := it.mouse.Scroll(int32(s.Magnitude), s.Axis == macro.Horizontal); err != nil {
			log.Printf("スクロールの注入に失敗しました: %v", err)
		}
	case macro.RunStep:
		// 長時間動くプログラムが後続のキー処理を止めないよう、
		// 起動するだけで完了は待たない
		if err := it.run(s.Program, s.Args); err != nil {
			log.Printf("プログラムの起動に失敗しました (%s): %v", s.Program, err)
		}
	}
}

func (it *Interpreter) executeKey(s macro.KeyStep) {
	code, shift, err := keymap.Resolve(s.Key)
	if err != nil {
		log.Printf("キーを解決できませんでした。読み飛ばします: %v", err)
		return
	}

	// 押下中に保持する修飾キーのリスト。明示された修飾キーが先、
	// Unicode文字に必要なShiftが後
	var holds []uint16
	if s.HasModifier() {
		modCode, _, err := keymap.Resolve(s.Modifier)
		if err != nil {
			log.Printf("修飾キーを解決できませんでした。読み飛ばします: %v", err)
			return
		}
		holds = append(holds, modCode)
	}
	if shift {
		holds = append(holds, keymap.KeyLeftShift)
	}

	switch s.Direction {
	case macro.Click:
		for _, h := range holds {
			it.keyDown(h)
		}
		it.keyDown(code)
		it.keyUp(code)
		for i := len(holds) - 1; i >= 0; i-- {
			it.keyUp(holds[i])
		}
	case macro.Press:
		for _, h := range holds {
			it.keyDown(h)
		}
		it.keyDown(code)
	case macro.Release:
		it.keyUp(code)
		for i := len(holds) - 1; i >= 0; i-- {
			it.keyUp(holds[i])
		}
	}
}

func (it *Interpreter) executeText(s macro.TextStep) {
	for _, ch := range s.Text {
		code, shift, ok := keymap.ResolveChar(ch)
		if !ok {
			// 打鍵できない文字は読み飛ばす。致命的ではない
			log.Printf("文字に対応するキーがありません。読み飛ばします: %q", ch)
			continue
		}
		if shift {
			it.keyDown(keymap.KeyLeftShift)
		}
		it.keyDown(code)
		it.keyUp(code)
		if shift {
			it.keyUp(keymap.KeyLeftShift)
		}
	}
}

func (it *Interpreter) executeButton(s macro.ButtonStep) {
	code := buttonCode(s.Button)

	switch s.Direction {
	case macro.Click:
		it.buttonDown(code)
		it.buttonUp(code)
	case macro.Press:
		it.buttonDown(code)
	case macro.Release:
		it.buttonUp(code)
	}
}

func buttonCode(b macro.MouseButton) uint16 {
	switch b {
	case macro.ButtonRight:
		return consts.BtnRight
	case macro.ButtonMiddle:
		return consts.BtnMiddle
	case macro.ButtonBack:
		return consts.BtnSide
	case macro.ButtonForward:
		return consts.BtnExtra
	}
	return consts.BtnLeft
}

func (it *Interpreter) keyDown(code uint16) {
	if err := it.keyboard.KeyDown(code); err != nil {
		log.Printf("キー押下の注入に失敗しました (code=%d): %v", code, err)
	}
}

func (it *Interpreter) keyUp(code uint16) {
	if err := it.keyboard.KeyUp(code); err != nil {
		log.Printf("キー解放の注入に失敗しました (code=%d): %v", code, err)
	}
}

func (it *Interpreter) buttonDown(code uint16) {
	if err := it.mouse.ButtonDown(code); err != nil {
		log.Printf("ボタン押下の注入に失敗しました (code=%d): %v", code, err)
	}
}

func (it *Interpreter) buttonUp(code uint16) {
	if err := it.mouse.ButtonUp(code); err != nil {
		log.Printf("ボタン解放の注入に失敗しました (code=%d): %v", code, err)
	}
}
