package input

import (
	"fmt"
	"io"
	"os"

	"github.com/char5742/g11-macrod/internal/consts"
	"github.com/char5742/g11-macrod/internal/types"
)

// Mouse は仮想マウスへのボタン・移動・スクロール注入インターフェース
type Mouse interface {
	// ButtonDown は指定されたボタンコードの押下イベントを注入する
	ButtonDown(code uint16) error
	// ButtonUp は指定されたボタンコードの解放イベントを注入する
	ButtonUp(code uint16) error
	// Move は相対座標でポインタを移動する
	Move(dx, dy int32) error
	// Scroll はホイールを回転する。horizontalがtrueなら水平スクロール
	Scroll(amount int32, horizontal bool) error
	io.Closer
}

type virtualMouse struct {
	deviceFile *os.File
}

// CreateMouse は新しい仮想マウスデバイスを作成する
func CreateMouse(path string, name []byte) (Mouse, error) {
	deviceFile, err := createDeviceFile(path)
	if err != nil {
		return nil, fmt.Errorf("仮想マウスの作成に失敗しました: %v", err)
	}

	// ボタン入力イベント(EV_KEY)を登録する
	if err := registerEventType(deviceFile, uintptr(consts.Key)); err != nil {
		_ = deviceFile.Close()
		return nil, err
	}

	for _, code := range []int{
		consts.BtnLeft,
		consts.BtnRight,
		consts.BtnMiddle,
		consts.BtnSide,
		consts.BtnExtra,
	} {
		if err := ioctl(deviceFile, consts.SetKeyBit, uintptr(code)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("ボタンコードの登録に失敗しました %v: %v", code, err)
		}
	}

	// 相対座標イベント(EV_REL)を登録する
	if err := registerEventType(deviceFile, uintptr(consts.Rel)); err != nil {
		_ = deviceFile.Close()
		return nil, err
	}

	for _, code := range []int{
		consts.RelX,
		consts.RelY,
		consts.RelWheel,
		consts.RelHWheel,
	} {
		if err := ioctl(deviceFile, consts.SetRelBit, uintptr(code)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("相対座標軸の登録に失敗しました %v: %v", code, err)
		}
	}

	userDev := types.UserDev{
		Name: toUinputName(name),
		ID: types.InputID{
			Bustype: consts.BusUsb,
			Vendor:  0x046D,
			Product: 0xC225,
			Version: 1,
		},
	}

	fd, err := createDevice(deviceFile, userDev)
	if err != nil {
		return nil, fmt.Errorf("仮想マウスデバイスの作成に失敗しました: %v", err)
	}

	return &virtualMouse{deviceFile: fd}, nil
}

func (vm *virtualMouse) ButtonDown(code uint16) error {
	return writeEvents(vm.deviceFile, []types.Event{
		{Type: consts.Key, Code: code, Value: 1},
		{Type: consts.Syn, Code: consts.SynReport, Value: 0},
	})
}

func (vm *virtualMouse) ButtonUp(code uint16) error {
	return writeEvents(vm.deviceFile, []types.Event{
		{Type: consts.Key, Code: code, Value: 0},
		{Type: consts.Syn, Code: consts.SynReport, Value: 0},
	})
}

func (vm *virtualMouse) Move(dx, dy int32) error {
	return writeEvents(vm.deviceFile, []types.Event{
		{Type: consts.Rel, Code: consts.RelX, Value: dx},
		{Type: consts.Rel, Code: consts.RelY, Value: dy},
		{Type: consts.Syn, Code: consts.SynReport, Value: 0},
	})
}

func (vm *virtualMouse) Scroll(amount int32, horizontal bool) error {
	code := uint16(consts.RelWheel)
	if horizontal {
		code = consts.RelHWheel
	}
	return writeEvents(vm.deviceFile, []types.Event{
		{Type: consts.Rel, Code: code, Value: amount},
		{Type: consts.Syn, Code: consts.SynReport, Value: 0},
	})
}

func (vm *virtualMouse) Close() error {
	_ = releaseDevice(vm.deviceFile)
	return vm.deviceFile.Close()
}
