package engine

import (
	"log"
	"sync"

	"github.com/char5742/g11-macrod/internal/hid"
	"github.com/char5742/g11-macrod/internal/keymap"
	"github.com/char5742/g11-macrod/internal/macro"
	"github.com/char5742/g11-macrod/internal/recording"
)

// Phase は録画状態機械のフェーズを表す
type Phase int

const (
	// PhaseIdle は通常状態
	PhaseIdle Phase = iota
	// PhaseSelecting はMRが押され、録画対象のGキーの選択を待っている状態
	PhaseSelecting
	// PhaseRecording は録画中
	PhaseRecording
)

func (p Phase) String() string {
	switch p {
	case PhaseSelecting:
		return "selecting"
	case PhaseRecording:
		return "recording"
	}
	return "idle"
}

// Machine はバンクと録画のデーモン状態を管理する状態機械。
// 状態の変更はイベント処理経路（単一ゴルーチン）からのみ行われ、
// ミューテックスはステータスAPIからの読み取りのためだけに存在する
type Machine struct {
	mu          sync.RWMutex
	bank        int
	phase       Phase
	targetKey   int
	sessionBank int // 録画開始時のバンク。録画中のバインディング参照に使う

	table  macro.BindingTable
	interp *Interpreter
	store  *recording.Store
	leds   *LEDWriter
	recent *DispatchLog
}

// NewMachine は新しいMachineを作成する。バンクは1から始まる
func NewMachine(table macro.BindingTable, interp *Interpreter, store *recording.Store, leds *LEDWriter, recent *DispatchLog) *Machine {
	return &Machine{
		bank:   1,
		phase:  PhaseIdle,
		table:  table,
		interp: interp,
		store:  store,
		leds:   leds,
		recent: recent,
	}
}

// Snapshot はステータスAPI向けの現在状態のコピー
type Snapshot struct {
	ActiveBank    int    `json:"active_bank"`
	Phase         string `json:"phase"`
	RecordingOpen bool   `json:"recording_open"`
	TargetKey     int    `json:"target_key,omitempty"`
}

// Snapshot は現在の状態のコピーを返す
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		ActiveBank:    m.bank,
		Phase:         m.phase.String(),
		RecordingOpen: m.phase == PhaseRecording,
	}
	if m.phase == PhaseRecording {
		s.TargetKey = m.targetKey
	}
	return s
}

// RefreshLEDs は現在の状態をLEDに反映する。forceなら前回値に
// 関わらず書き込む（デバイス再接続後に使う）
func (m *Machine) RefreshLEDs(force bool) {
	m.mu.RLock()
	bits := ComputeLEDBits(m.bank, m.phase == PhaseRecording)
	m.mu.RUnlock()

	if force {
		m.leds.Invalidate()
	}
	m.leds.Set(bits)
}

// HandleMacroEvent はマクロインターフェースの1イベントを処理する
func (m *Machine) HandleMacroEvent(ev hid.Event) {
	switch ev.Kind {
	case hid.KindBank:
		if !ev.Pressed {
			return
		}
		m.selectBank(ev.Number)

	case hid.KindMR:
		if !ev.Pressed {
			return
		}
		m.handleMR()

	case hid.KindGKey:
		m.handleGKey(ev.Number, ev.Pressed)
	}
}

// selectBank はアクティブバンクを切り替える。録画中の捕捉は中断しない
func (m *Machine) selectBank(bank int) {
	m.mu.Lock()
	changed := m.bank != bank
	m.bank = bank
	m.mu.Unlock()

	if changed {
		log.Printf("バンクを切り替えました: M%d", bank)
	}
	// 同じバンクの再選択ではLEDWriter側の合流によって書き込みは発生しない
	m.RefreshLEDs(false)
}

func (m *Machine) handleMR() {
	m.mu.Lock()
	switch m.phase {
	case PhaseIdle:
		m.phase = PhaseSelecting
		m.mu.Unlock()
		log.Println("録画対象のGキーを選択してください")

	case PhaseSelecting:
		// 対象が選ばれる前のMR再押下はキャンセル扱い
		m.phase = PhaseIdle
		m.mu.Unlock()
		log.Println("録画をキャンセルしました")

	case PhaseRecording:
		target := m.targetKey
		m.phase = PhaseIdle
		m.targetKey = 0
		m.mu.Unlock()

		rec, err := m.store.Finalize()
		if err != nil {
			log.Printf("録画の確定に失敗しました: %v", err)
		} else if rec == nil {
			log.Printf("空の録画セッションを破棄しました (G%d)", target)
		} else {
			log.Printf("録画を保存しました: id=%s steps=%d (G%d)", rec.ID, len(rec.Script), target)
		}

	default:
		m.mu.Unlock()
	}

	m.RefreshLEDs(false)
}

func (m *Machine) handleGKey(key int, pressed bool) {
	m.mu.Lock()
	if m.phase == PhaseSelecting && pressed {
		// このGキーの押下は録画対象の選択として消費され、
		// 捕捉スクリプトには含まれない
		m.phase = PhaseRecording
		m.targetKey = key
		m.sessionBank = m.bank
		bank := m.bank
		m.mu.Unlock()

		m.store.Begin(bank, key)
		log.Printf("録画を開始しました: M%d/G%d", bank, key)
		m.RefreshLEDs(false)
		return
	}

	// 録画中はセッション開始時のバンクで参照する。バンクの変更は
	// 録画終了後に実行されるイベントから反映される
	bank := m.bank
	if m.phase == PhaseRecording {
		bank = m.sessionBank
	}
	m.mu.Unlock()

	m.dispatch(bank, key, pressed)
}

// dispatch はバインディングを参照し、あれば実行する。未登録は何もしない
func (m *Machine) dispatch(bank, key int, pressed bool) {
	on := macro.Release
	if pressed {
		on = macro.Press
	}
	id := macro.Identity{M: bank, G: key, On: on}

	script, ok := m.table.Lookup(id)
	if !ok {
		return
	}

	log.Printf("バインディングを実行します: %s (%dステップ)", id, len(script))
	m.recent.Add(id, len(script))
	m.interp.Execute(script)
}

// HandleKeyEvent はキーボードインターフェースの1イベントを処理する。
// 録画中以外のイベントは破棄される
func (m *Machine) HandleKeyEvent(ev hid.KeyEvent) {
	m.mu.RLock()
	capturing := m.phase == PhaseRecording
	m.mu.RUnlock()

	if !capturing {
		return
	}

	key, ok := keymap.FromUsage(ev.Usage)
	if !ok {
		log.Printf("対応するキーがないため捕捉しません: usage=0x%02x", ev.Usage)
		return
	}

	dir := macro.Release
	if ev.Pressed {
		dir = macro.Press
	}
	m.store.Append(macro.KeyStep{Key: key, Direction: dir})
}
