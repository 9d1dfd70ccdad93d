package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/g11-macrod/internal/hid"
	"github.com/char5742/g11-macrod/internal/macro"
	"github.com/char5742/g11-macrod/internal/recording"
)

type machineFixture struct {
	machine  *Machine
	actions  *recorder
	store    *recording.Store
	dispatch *DispatchLog
	ledBits  []byte
}

func newMachineFixture(t *testing.T, table macro.BindingTable) *machineFixture {
	t.Helper()

	f := &machineFixture{
		actions:  &recorder{},
		dispatch: NewDispatchLog(16),
	}
	f.store = recording.NewStore(filepath.Join(t.TempDir(), "key_recordings.ron"))

	interp := NewInterpreter(f.actions, f.actions, f.actions.run)
	leds := NewLEDWriter(func(bits byte) error {
		f.ledBits = append(f.ledBits, bits)
		return nil
	})
	f.machine = NewMachine(table, interp, f.store, leds, f.dispatch)
	return f
}

func (f *machineFixture) pressMR() {
	f.machine.HandleMacroEvent(hid.Event{Kind: hid.KindMR, Pressed: true})
	f.machine.HandleMacroEvent(hid.Event{Kind: hid.KindMR, Pressed: false})
}

func (f *machineFixture) pressBank(n int) {
	f.machine.HandleMacroEvent(hid.Event{Kind: hid.KindBank, Number: n, Pressed: true})
	f.machine.HandleMacroEvent(hid.Event{Kind: hid.KindBank, Number: n, Pressed: false})
}

func (f *machineFixture) tapGKey(n int) {
	f.machine.HandleMacroEvent(hid.Event{Kind: hid.KindGKey, Number: n, Pressed: true})
	f.machine.HandleMacroEvent(hid.Event{Kind: hid.KindGKey, Number: n, Pressed: false})
}

func TestMachine_InitialState(t *testing.T) {
	f := newMachineFixture(t, macro.BindingTable{})

	snap := f.machine.Snapshot()
	assert.Equal(t, 1, snap.ActiveBank)
	assert.Equal(t, "idle", snap.Phase)
	assert.False(t, snap.RecordingOpen)
}

func TestMachine_BankSelection(t *testing.T) {
	f := newMachineFixture(t, macro.BindingTable{})

	f.pressBank(3)

	snap := f.machine.Snapshot()
	assert.Equal(t, 3, snap.ActiveBank)
	assert.Equal(t, []byte{hid.LEDM3}, f.ledBits)
}

// 同じバンクの再選択は冪等でLEDも書き直されない
func TestMachine_BankReselectIdempotent(t *testing.T) {
	f := newMachineFixture(t, macro.BindingTable{})

	f.pressBank(2)
	f.pressBank(2)

	assert.Equal(t, 2, f.machine.Snapshot().ActiveBank)
	assert.Equal(t, []byte{hid.LEDM2}, f.ledBits)
}

func TestMachine_DispatchesBinding(t *testing.T) {
	table := macro.BindingTable{
		{M: 1, G: 4, On: macro.Press}: {macro.ScrollStep{Magnitude: 1}},
	}
	f := newMachineFixture(t, table)

	f.tapGKey(4)

	assert.Equal(t, []string{"scroll 1 false"}, f.actions.actions)

	dispatches := f.dispatch.Recent()
	require.Len(t, dispatches, 1)
	assert.Equal(t, "M1/G4/Press", dispatches[0].Binding)
}

// 未登録のキーは何もしない
func TestMachine_UnboundKeyIgnored(t *testing.T) {
	f := newMachineFixture(t, macro.BindingTable{})

	f.tapGKey(7)

	assert.Empty(t, f.actions.actions)
	assert.Empty(t, f.dispatch.Recent())
}

// 押下と解放に別々のバインディングを割り当てられる
func TestMachine_PressAndReleaseTriggers(t *testing.T) {
	table := macro.BindingTable{
		{M: 1, G: 2, On: macro.Press}:   {macro.ScrollStep{Magnitude: 1}},
		{M: 1, G: 2, On: macro.Release}: {macro.ScrollStep{Magnitude: -1}},
	}
	f := newMachineFixture(t, table)

	f.tapGKey(2)

	assert.Equal(t, []string{"scroll 1 false", "scroll -1 false"}, f.actions.actions)
}

func TestMachine_RecordingFlow(t *testing.T) {
	f := newMachineFixture(t, macro.BindingTable{})

	// MR押下で対象選択状態に入る
	f.pressMR()
	assert.Equal(t, "selecting", f.machine.Snapshot().Phase)

	// Gキー押下で録画開始。この押下はバインディング実行にならない
	f.machine.HandleMacroEvent(hid.Event{Kind: hid.KindGKey, Number: 5, Pressed: true})
	f.machine.HandleMacroEvent(hid.Event{Kind: hid.KindGKey, Number: 5, Pressed: false})

	snap := f.machine.Snapshot()
	assert.Equal(t, "recording", snap.Phase)
	assert.True(t, snap.RecordingOpen)
	assert.Equal(t, 5, snap.TargetKey)
	assert.True(t, f.store.Open())

	// 録画中のLEDはMRが点灯する
	require.NotEmpty(t, f.ledBits)
	assert.Equal(t, byte(hid.LEDM1|hid.LEDMR), f.ledBits[len(f.ledBits)-1])

	// キーボードのキー遷移が捕捉される
	f.machine.HandleKeyEvent(hid.KeyEvent{Usage: 0x04, Pressed: true})
	f.machine.HandleKeyEvent(hid.KeyEvent{Usage: 0x04, Pressed: false})

	// MR押下で確定
	f.pressMR()

	snap = f.machine.Snapshot()
	assert.Equal(t, "idle", snap.Phase)
	assert.False(t, f.store.Open())
	assert.Equal(t, byte(hid.LEDM1), f.ledBits[len(f.ledBits)-1])

	recordings := f.store.Recordings()
	require.Len(t, recordings, 1)
	assert.NotEmpty(t, recordings[0].ID)
	assert.Equal(t, []macro.Step{
		macro.KeyStep{Key: macro.UnicodeKey('a'), Direction: macro.Press},
		macro.KeyStep{Key: macro.UnicodeKey('a'), Direction: macro.Release},
	}, recordings[0].Script)
}

// 対象選択中のMR再押下は録画をキャンセルする
func TestMachine_SelectingCancelledByMR(t *testing.T) {
	f := newMachineFixture(t, macro.BindingTable{})

	f.pressMR()
	f.pressMR()

	assert.Equal(t, "idle", f.machine.Snapshot().Phase)
	assert.False(t, f.store.Open())
	assert.Empty(t, f.store.Recordings())
}

// 空のセッションの確定は成果物を残さない
func TestMachine_EmptyRecordingDiscarded(t *testing.T) {
	f := newMachineFixture(t, macro.BindingTable{})

	f.pressMR()
	f.tapGKey(1)
	f.pressMR()

	assert.Equal(t, "idle", f.machine.Snapshot().Phase)
	assert.Empty(t, f.store.Recordings())
}

// 対象選択のGキー押下は既存のバインディングを実行しない
func TestMachine_TargetSelectionDoesNotDispatch(t *testing.T) {
	table := macro.BindingTable{
		{M: 1, G: 3, On: macro.Press}: {macro.ScrollStep{Magnitude: 1}},
	}
	f := newMachineFixture(t, table)

	f.pressMR()
	f.machine.HandleMacroEvent(hid.Event{Kind: hid.KindGKey, Number: 3, Pressed: true})

	assert.Empty(t, f.actions.actions)
	assert.Equal(t, "recording", f.machine.Snapshot().Phase)
}

// 録画中のバインディング参照はセッション開始時のバンクで行われ、
// バンク変更は録画終了後から反映される
func TestMachine_RecordingUsesSessionBank(t *testing.T) {
	table := macro.BindingTable{
		{M: 1, G: 2, On: macro.Press}: {macro.ScrollStep{Magnitude: 1}},
		{M: 2, G: 2, On: macro.Press}: {macro.ScrollStep{Magnitude: -1}},
	}
	f := newMachineFixture(t, table)

	f.pressMR()
	f.tapGKey(10) // 録画対象
	f.pressBank(2)

	// バンク2に切り替えた後でも録画中はバンク1のバインディングが実行される
	f.machine.HandleMacroEvent(hid.Event{Kind: hid.KindGKey, Number: 2, Pressed: true})
	assert.Equal(t, []string{"scroll 1 false"}, f.actions.actions)
	f.machine.HandleMacroEvent(hid.Event{Kind: hid.KindGKey, Number: 2, Pressed: false})

	f.pressMR()

	// 録画終了後はバンク2のバインディングに切り替わる
	f.machine.HandleMacroEvent(hid.Event{Kind: hid.KindGKey, Number: 2, Pressed: true})
	assert.Equal(t, []string{"scroll 1 false", "scroll -1 false"}, f.actions.actions)
}

// 録画中でないキーボードイベントは捕捉されない
func TestMachine_KeyEventsIgnoredWhenIdle(t *testing.T) {
	f := newMachineFixture(t, macro.BindingTable{})

	f.machine.HandleKeyEvent(hid.KeyEvent{Usage: 0x04, Pressed: true})

	f.pressMR()
	f.tapGKey(1)
	f.pressMR()

	assert.Empty(t, f.store.Recordings())
}

// 対応付けできないusageは読み飛ばして録画を続ける
func TestMachine_UnknownUsageSkipped(t *testing.T) {
	f := newMachineFixture(t, macro.BindingTable{})

	f.pressMR()
	f.tapGKey(1)

	f.machine.HandleKeyEvent(hid.KeyEvent{Usage: 0xFF, Pressed: true})
	f.machine.HandleKeyEvent(hid.KeyEvent{Usage: 0x05, Pressed: true})
	f.machine.HandleKeyEvent(hid.KeyEvent{Usage: 0x05, Pressed: false})

	f.pressMR()

	recordings := f.store.Recordings()
	require.Len(t, recordings, 1)
	assert.Len(t, recordings[0].Script, 2)
}

func TestMachine_RefreshLEDsForce(t *testing.T) {
	f := newMachineFixture(t, macro.BindingTable{})

	f.machine.RefreshLEDs(false)
	f.machine.RefreshLEDs(false)
	f.machine.RefreshLEDs(true)

	assert.Equal(t, []byte{hid.LEDM1, hid.LEDM1}, f.ledBits)
}
